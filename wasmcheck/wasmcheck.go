// Package wasmcheck verifies that a file is a loadable WebAssembly module.
package wasmcheck

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

var (
	ErrMagic   = errors.New("not a wasm binary")
	ErrVersion = errors.New("unsupported wasm version")
)

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}
)

// Header checks the 8-byte preamble of a binary module.
func Header(b []byte) error {
	if len(b) < 8 || !bytes.Equal(b[:4], magic) {
		return ErrMagic
	}

	if !bytes.Equal(b[4:8], version) {
		return fmt.Errorf("%w: % x", ErrVersion, b[4:8])
	}

	return nil
}

// File checks the header of the module at path and compiles it without
// instantiating, so unresolved host imports are not an error.
func File(ctx context.Context, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := Header(b); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return Compile(ctx, b)
}

// Compile decodes and validates a module with wazero.  Bulk memory
// operations are part of the 2.0 core feature set.
func Compile(ctx context.Context, b []byte) error {
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithCoreFeatures(api.CoreFeaturesV2).
		WithCloseOnContextDone(true))
	defer r.Close(ctx)

	cm, err := r.CompileModule(ctx, b)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	return cm.Close(ctx)
}

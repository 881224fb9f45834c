// Package patch applies literal text substitutions to generated files.
package patch

import (
	"os"
	"strings"

	"github.com/pkg/errors"
)

const (
	// InitExport is how wasm-bindgen's web target exposes the module
	// initializer.  The host page is expected to call it.
	InitExport = "export default __wbg_init;"

	// InitCall runs the initializer as soon as the script is evaluated,
	// which is what a worker loaded without a bundler needs.
	InitCall = "__wbg_init();"
)

var ErrNotFound = errors.New("substring not found")

// Replace substitutes the first occurrence of old in src.  It fails
// rather than returning src unchanged when old is absent.
func Replace(src, old, new string) (string, error) {
	i := strings.Index(src, old)
	if i < 0 {
		return src, errors.Wrapf(ErrNotFound, "%q", old)
	}

	return src[:i] + new + src[i+len(old):], nil
}

// File applies Replace to the file at path, rewriting it in place.
func File(path, old, new string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	text, err := Replace(string(b), old, new)
	if err != nil {
		return errors.Wrap(err, path)
	}

	return os.WriteFile(path, []byte(text), info.Mode().Perm())
}

// AutoStart makes a wasm-bindgen glue script initialize itself on load.
func AutoStart(path string) error {
	return File(path, InitExport, InitCall)
}

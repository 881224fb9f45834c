package toolchain

import (
	"context"
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"
)

// MinBindgen is the oldest wasm-bindgen release whose web-target glue
// ends in `export default __wbg_init;`.  Older releases export `init`,
// which the auto-start patch cannot find.
var MinBindgen = semver.MustParse("0.2.84")

var versionRe = regexp.MustCompile(`\d+(\.\d+){0,2}`)

// Version asks a tool for its version with --version.
func Version(ctx context.Context, r Runner, tool string) (semver.Version, error) {
	out, err := r.Output(ctx, Invocation{
		Name: tool,
		Args: []string{"--version"},
	})
	if err != nil {
		return semver.Version{}, err
	}

	return ParseVersion(string(out))
}

// ParseVersion extracts the first version number from a tool banner,
// e.g. "wasm-bindgen 0.2.92" or "wasm-opt version 116 (version_116)".
func ParseVersion(banner string) (semver.Version, error) {
	s := versionRe.FindString(banner)
	if s == "" {
		return semver.Version{}, fmt.Errorf("no version in %q", banner)
	}

	return semver.ParseTolerant(s)
}

// Package scaffold prepares the output directory that the server exposes.
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

var (
	// ErrCollision is returned when something other than a symlink
	// occupies a link's name.
	ErrCollision = errors.New("name is taken by a non-symlink")

	// ErrDangling is returned when a link does not resolve to an
	// existing file.  The link is not left behind.
	ErrDangling = errors.New("link target does not exist")
)

// Link is a symbolic link to create inside the output directory.
// Target is interpreted relative to the directory holding the link.
type Link struct {
	Name   string
	Target string
}

// Ensure creates dir and the links inside it, skipping anything that is
// already in place.  Calling it repeatedly is safe.
func Ensure(dir string, links ...Link) error {
	if err := ensureDir(dir); err != nil {
		return err
	}

	var err error
	for _, l := range links {
		err = multierr.Append(err, ensureLink(dir, l))
	}

	return err
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return os.MkdirAll(dir, 0755)
	} else if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s: %w", dir, ErrCollision)
	}

	return nil
}

func ensureLink(dir string, l Link) error {
	path := filepath.Join(dir, l.Name)

	info, err := os.Lstat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err = os.Symlink(l.Target, path); err != nil {
			return err
		}

	case err != nil:
		return err

	case info.Mode()&fs.ModeSymlink == 0:
		return fmt.Errorf("%s: %w", path, ErrCollision)

	default:
		target, err := os.Readlink(path)
		if err != nil {
			return err
		}

		// Stale link from an earlier layout; point it at the new target.
		if target != l.Target {
			if err = os.Remove(path); err != nil {
				return err
			}
			if err = os.Symlink(l.Target, path); err != nil {
				return err
			}
		}
	}

	// Never leave a dangling link behind.
	if _, err = os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return multierr.Append(
			fmt.Errorf("%s -> %s: %w", path, l.Target, ErrDangling),
			os.Remove(path))
	}

	return err
}

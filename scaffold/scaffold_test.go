package scaffold_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/allsey87/bevy-webworker/scaffold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var links = []scaffold.Link{
	{Name: "index.html", Target: "../index.html"},
	{Name: "reset.css", Target: "../reset.css"},
}

// project creates a fake project root holding the two static assets.
func project(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<!doctype html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "reset.css"), []byte("* { margin: 0 }"), 0644))
	return root
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	root := project(t)
	out := filepath.Join(root, "output")

	require.NoError(t, scaffold.Ensure(out, links...))

	for _, l := range links {
		path := filepath.Join(out, l.Name)

		info, err := os.Lstat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&os.ModeSymlink, "%s should be a symlink", l.Name)

		target, err := os.Readlink(path)
		require.NoError(t, err)
		assert.Equal(t, l.Target, target)

		resolved, err := filepath.EvalSymlinks(path)
		require.NoError(t, err)
		want, err := filepath.EvalSymlinks(filepath.Join(root, l.Name))
		require.NoError(t, err)
		assert.Equal(t, want, resolved)
	}
}

func TestEnsure_Idempotent(t *testing.T) {
	t.Parallel()

	root := project(t)
	out := filepath.Join(root, "output")

	require.NoError(t, scaffold.Ensure(out, links...))
	first := listing(t, out)

	require.NoError(t, scaffold.Ensure(out, links...))
	assert.Equal(t, first, listing(t, out))
	assert.Len(t, first, len(links))
}

func TestEnsure_Collision(t *testing.T) {
	t.Parallel()

	root := project(t)
	out := filepath.Join(root, "output")
	require.NoError(t, os.Mkdir(out, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("stale copy"), 0644))

	err := scaffold.Ensure(out, links...)
	require.ErrorIs(t, err, scaffold.ErrCollision)

	// the other link is still created
	_, err = os.Lstat(filepath.Join(out, "reset.css"))
	require.NoError(t, err)

	// and the regular file is left alone
	b, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "stale copy", string(b))
}

func TestEnsure_OutputIsFile(t *testing.T) {
	t.Parallel()

	root := project(t)
	out := filepath.Join(root, "output")
	require.NoError(t, os.WriteFile(out, nil, 0644))

	require.ErrorIs(t, scaffold.Ensure(out, links...), scaffold.ErrCollision)
}

func TestEnsure_Relink(t *testing.T) {
	t.Parallel()

	root := project(t)
	out := filepath.Join(root, "output")
	require.NoError(t, os.Mkdir(out, 0755))
	require.NoError(t, os.Symlink("../old.html", filepath.Join(out, "index.html")))

	require.NoError(t, scaffold.Ensure(out, links...))

	target, err := os.Readlink(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "../index.html", target)
}

func TestEnsure_Dangling(t *testing.T) {
	t.Parallel()

	root := project(t)
	out := filepath.Join(root, "output")

	logo := scaffold.Link{Name: "logo.png", Target: "../logo.png"}
	err := scaffold.Ensure(out, logo)
	require.ErrorIs(t, err, scaffold.ErrDangling)

	// the broken link is not left in the output directory
	_, err = os.Lstat(filepath.Join(out, "logo.png"))
	require.ErrorIs(t, err, os.ErrNotExist)

	// once the target exists the same call succeeds
	require.NoError(t, os.WriteFile(filepath.Join(root, "logo.png"), nil, 0644))
	require.NoError(t, scaffold.Ensure(out, logo))
}

func TestEnsure_DanglingRelink(t *testing.T) {
	t.Parallel()

	root := project(t)
	out := filepath.Join(root, "output")
	require.NoError(t, os.Mkdir(out, 0755))
	require.NoError(t, os.Symlink("../index.html", filepath.Join(out, "logo.png")))

	err := scaffold.Ensure(out, scaffold.Link{Name: "logo.png", Target: "../logo.png"})
	require.ErrorIs(t, err, scaffold.ErrDangling)

	_, err = os.Lstat(filepath.Join(out, "logo.png"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func listing(t *testing.T, dir string) map[string]string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	m := make(map[string]string, len(entries))
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		m[e.Name()] = target
	}
	return m
}

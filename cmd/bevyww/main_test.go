package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/allsey87/bevy-webworker/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bindgenScript = `#!/bin/sh
name=$(basename "$1" .wasm)
printf 'wasm' > "$3/${name}_bg.wasm"
printf 'let wasm;\nexport default __wbg_init;\n' > "$3/$name.js"
`

// project changes into a fresh project root holding the static assets.
func project(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<!doctype html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "reset.css"), []byte("* {}"), 0644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return root
}

// fakeTools writes stand-ins for the external tools and returns the
// flags selecting them.  The compiler exits with cargoStatus.
func fakeTools(t *testing.T, cargoStatus int) []string {
	t.Helper()

	dir := t.TempDir()
	script := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0755))
		return path
	}

	return []string{
		"--cargo", script("cargo", fmt.Sprintf("#!/bin/sh\nexit %d\n", cargoStatus)),
		"--wasm-bindgen", script("wasm-bindgen", bindgenScript),
		"--wasm-opt", script("wasm-opt", "#!/bin/sh\nexit 0\n"),
	}
}

func freePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
}

// start runs the app in the background.  The returned function
// interrupts it, as SIGINT would, and returns the app's standard output
// and error.
func start(t *testing.T, args ...string) func() (string, error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var stdout bytes.Buffer

	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = io.Discard

	errc := make(chan error, 1)
	go func() {
		errc <- app.RunContext(ctx, append([]string{"bevyww"}, args...))
	}()

	stop := sync.OnceValues(func() (string, error) {
		cancel()
		select {
		case err := <-errc:
			return stdout.String(), err
		case <-time.After(10 * time.Second):
			return "", errors.New("app did not stop")
		}
	})
	t.Cleanup(func() { _, _ = stop() })

	return stop
}

// fetch waits for url to answer 200 and returns the body.
func fetch(t *testing.T, url string) string {
	t.Helper()

	var body string
	require.Eventually(t, func() bool {
		res, err := http.Get(url)
		if err != nil {
			return false
		}
		defer res.Body.Close()

		b, err := io.ReadAll(res.Body)
		body = string(b)
		return err == nil && res.StatusCode == http.StatusOK
	}, 10*time.Second, 20*time.Millisecond, "GET %s", url)

	return body
}

// The bare command builds, then serves the result until interrupted.
func TestDefaultAction(t *testing.T) {
	project(t)
	port := freePort(t)

	stop := start(t, append([]string{"--host", "127.0.0.1", "--port", port},
		fakeTools(t, 0)...)...)

	base := "http://127.0.0.1:" + port
	assert.Contains(t, fetch(t, base+"/worker.js"), "__wbg_init();",
		"worker glue must be patched before serving")
	assert.Equal(t, "<!doctype html>", fetch(t, base+"/index.html"))

	stdout, err := stop()
	require.NoError(t, err, "an interrupt is a clean exit")
	assert.Equal(t, 0, exitCode(err))
	assert.Contains(t, stdout, "Serving on http://127.0.0.1:"+port+"/")
}

// Flags given before the subcommand are honored by it.
func TestServe_RootFlags(t *testing.T) {
	root := project(t)
	port := freePort(t)

	out := filepath.Join(root, "dist")
	require.NoError(t, os.Mkdir(out, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("dist"), 0644))

	stop := start(t, "--host", "127.0.0.1", "--port", port, "--output", out, "serve")
	assert.Equal(t, "dist", fetch(t, "http://127.0.0.1:"+port+"/index.html"))

	stdout, err := stop()
	require.NoError(t, err)
	assert.Contains(t, stdout, "Serving on http://127.0.0.1:"+port+"/")
}

func TestBuild_ToolExitStatus(t *testing.T) {
	project(t)

	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard

	err := app.Run(append(append([]string{"bevyww"}, fakeTools(t, 3)...), "build"))

	var exit *toolchain.ExitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 3, exitCode(err))

	_, err = os.Stat("output")
	require.ErrorIs(t, err, os.ErrNotExist, "nothing runs after the compiler fails")
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 101, exitCode(fmt.Errorf("compile: %w",
		&toolchain.ExitError{Tool: "cargo", Code: 101})))
}

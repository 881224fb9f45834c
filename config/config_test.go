package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/allsey87/bevy-webworker/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:3000", cfg.Addr())
	assert.Equal(t, "http://localhost:3000/", cfg.URL())
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, []string{"build", "--release"}, cfg.CargoArgs)
	assert.Equal(t, []config.Asset{
		{Name: "index.html", Target: "../index.html"},
		{Name: "reset.css", Target: "../reset.css"},
	}, cfg.Assets)

	require.Len(t, cfg.Modules, 2)
	main, worker := cfg.Modules[0], cfg.Modules[1]
	assert.False(t, main.AutoStart)
	assert.True(t, worker.AutoStart)

	assert.Equal(t, filepath.FromSlash("target/wasm32-unknown-unknown/debug/main.wasm"), main.Binary(cfg))
	assert.Equal(t, filepath.FromSlash("output/worker_bg.wasm"), worker.Wasm(cfg))
	assert.Equal(t, filepath.FromSlash("output/worker.js"), worker.Glue(cfg))
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bevyww.yaml")
	err := os.WriteFile(path, []byte(`
port: 8080
output_dir: dist
shutdown_timeout: 2s
tools:
  wasm_opt: /opt/binaryen/bin/wasm-opt
`), 0644)
	require.NoError(t, err)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "dist", cfg.OutputDir)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/opt/binaryen/bin/wasm-opt", cfg.Tools.Optimizer)

	// untouched keys keep their defaults
	assert.Equal(t, "wasm-bindgen", cfg.Tools.Bindgen)
	assert.Equal(t, config.DefaultHost, cfg.Host)
	assert.Len(t, cfg.Modules, 2)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{
			name:   "no modules",
			mutate: func(c *config.Config) { c.Modules = nil },
			want:   config.ErrNoModules,
		},
		{
			name:   "no output dir",
			mutate: func(c *config.Config) { c.OutputDir = "" },
			want:   config.ErrNoOutputDir,
		},
		{
			name: "duplicate module",
			mutate: func(c *config.Config) {
				c.Modules = append(c.Modules, config.Module{Name: "main"})
			},
			want: config.ErrDuplicateName,
		},
		{
			name: "duplicate asset",
			mutate: func(c *config.Config) {
				c.Assets = append(c.Assets, config.Asset{Name: "reset.css", Target: "../other.css"})
			},
			want: config.ErrDuplicateName,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}

	cfg := config.Default()
	cfg.Port = 70000
	require.Error(t, cfg.Validate())
}

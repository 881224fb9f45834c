// Package config holds the settings of the build-and-serve workflow.
//
// Defaults reproduce the fixed layout of a Bevy web-worker project: two
// modules (main and worker) compiled for wasm32-unknown-unknown, a static
// output directory holding symlinks to the project's index.html and
// reset.css, and a local HTTP server on port 3000.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultHost            = "localhost"
	DefaultPort            = 3000
	DefaultOutputDir       = "output"
	DefaultArtifactDir     = "target/wasm32-unknown-unknown/debug"
	DefaultOptLevel        = "-O1"
	DefaultShutdownTimeout = 5 * time.Second
)

var (
	ErrNoModules     = errors.New("no modules configured")
	ErrNoOutputDir   = errors.New("output directory not set")
	ErrDuplicateName = errors.New("duplicate name")
)

type Config struct {
	Host      string   `yaml:"host"`
	Port      int      `yaml:"port"`
	OutputDir string   `yaml:"output_dir"`
	Assets    []Asset  `yaml:"assets"`
	Modules   []Module `yaml:"modules"`

	// ArtifactDir is where the compiler leaves the raw .wasm binaries,
	// relative to the project root.
	ArtifactDir string   `yaml:"artifact_dir"`
	Tools       Tools    `yaml:"tools"`
	CargoArgs   []string `yaml:"cargo_args"`
	OptLevel    string   `yaml:"opt_level"`
	Features    []string `yaml:"features"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Verify          bool          `yaml:"verify"`
}

// Asset is a file in the project root that is linked into the output
// directory.  Target is relative to the link, not the working directory.
type Asset struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
}

// Module is one compiled WebAssembly binary and its generated glue.
type Module struct {
	Name string `yaml:"name"`

	// AutoStart rewrites the glue script so that it initializes itself
	// when loaded, which is what a web worker needs without a bundler.
	AutoStart bool `yaml:"auto_start"`
}

type Tools struct {
	Cargo     string `yaml:"cargo"`
	Bindgen   string `yaml:"wasm_bindgen"`
	Optimizer string `yaml:"wasm_opt"`
}

func Default() Config {
	return Config{
		Host:      DefaultHost,
		Port:      DefaultPort,
		OutputDir: DefaultOutputDir,
		Assets: []Asset{
			{Name: "index.html", Target: "../index.html"},
			{Name: "reset.css", Target: "../reset.css"},
		},
		Modules: []Module{
			{Name: "main"},
			{Name: "worker", AutoStart: true},
		},
		ArtifactDir: DefaultArtifactDir,
		Tools: Tools{
			Cargo:     "cargo",
			Bindgen:   "wasm-bindgen",
			Optimizer: "wasm-opt",
		},
		CargoArgs:       []string{"build", "--release"},
		OptLevel:        DefaultOptLevel,
		Features:        []string{"bulk-memory"},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Load reads a YAML project file on top of the defaults.  Keys absent
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	if c.OutputDir == "" {
		return ErrNoOutputDir
	}

	if len(c.Modules) == 0 {
		return ErrNoModules
	}

	seen := make(map[string]bool, len(c.Modules))
	for _, m := range c.Modules {
		if m.Name == "" {
			return errors.New("module name is empty")
		} else if seen[m.Name] {
			return fmt.Errorf("module %q: %w", m.Name, ErrDuplicateName)
		}
		seen[m.Name] = true
	}

	links := make(map[string]bool, len(c.Assets))
	for _, a := range c.Assets {
		if a.Name == "" || a.Target == "" {
			return fmt.Errorf("asset %q: name and target are required", a.Name)
		} else if links[a.Name] {
			return fmt.Errorf("asset %q: %w", a.Name, ErrDuplicateName)
		}
		links[a.Name] = true
	}

	return nil
}

// Addr returns the host:port pair the server binds to.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL is the address printed for the browser.
func (c Config) URL() string {
	return "http://" + c.Addr() + "/"
}

// Binary is the compiler output for m.
func (m Module) Binary(c Config) string {
	return filepath.Join(c.ArtifactDir, m.Name+".wasm")
}

// Wasm is the binary written by the binding generator, which the
// optimizer rewrites in place.
func (m Module) Wasm(c Config) string {
	return filepath.Join(c.OutputDir, m.Name+"_bg.wasm")
}

// Glue is the JavaScript loader written by the binding generator.
func (m Module) Glue(c Config) string {
	return filepath.Join(c.OutputDir, m.Name+".js")
}

package flags

import (
	"github.com/allsey87/bevy-webworker/config"
	"github.com/urfave/cli/v2"
)

// GlobalFlags returns the flags understood by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "load settings from a YAML `file`",
			EnvVars: []string{"BWW_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "project",
			Aliases: []string{"C"},
			Usage:   "change to `dir` before doing anything",
			EnvVars: []string{"BWW_PROJECT"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "one of debug, info, warn, error",
			Value:   "info",
			EnvVars: []string{"BWW_LOG_LEVEL"},
		},
	}
}

// OutputFlags returns the flags locating the served directory.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Category: "OUTPUT",
			Aliases:  []string{"o"},
			Usage:    "output `dir` holding the generated files",
			Value:    config.DefaultOutputDir,
			EnvVars:  []string{"BWW_OUTPUT"},
		},
	}
}

// BuildFlags returns the flags controlling the build pipeline.
func BuildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "artifact-dir",
			Category: "BUILD",
			Usage:    "`dir` holding the compiled .wasm binaries",
			Value:    config.DefaultArtifactDir,
			EnvVars:  []string{"BWW_ARTIFACT_DIR"},
		},
		&cli.BoolFlag{
			Name:     "skip-compile",
			Category: "BUILD",
			Usage:    "reuse the binaries from a previous compile",
			EnvVars:  []string{"BWW_SKIP_COMPILE"},
		},
		&cli.BoolFlag{
			Name:     "verify",
			Category: "BUILD",
			Usage:    "check that the optimized modules still compile",
			EnvVars:  []string{"BWW_VERIFY"},
		},
	}
}

// ToolFlags returns the flags naming the external tools.
func ToolFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "cargo",
			Category: "TOOLS",
			Usage:    "cargo `executable`",
			Value:    "cargo",
			EnvVars:  []string{"BWW_CARGO"},
		},
		&cli.StringFlag{
			Name:     "wasm-bindgen",
			Category: "TOOLS",
			Usage:    "wasm-bindgen `executable`",
			Value:    "wasm-bindgen",
			EnvVars:  []string{"BWW_WASM_BINDGEN"},
		},
		&cli.StringFlag{
			Name:     "wasm-opt",
			Category: "TOOLS",
			Usage:    "wasm-opt `executable`",
			Value:    "wasm-opt",
			EnvVars:  []string{"BWW_WASM_OPT"},
		},
	}
}

// HTTPFlags returns the flags controlling the file server.
func HTTPFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "host",
			Category: "HTTP",
			Usage:    "interface to listen on",
			Value:    config.DefaultHost,
			EnvVars:  []string{"BWW_HOST"},
		},
		&cli.IntFlag{
			Name:     "port",
			Category: "HTTP",
			Aliases:  []string{"p"},
			Usage:    "port to listen on",
			Value:    config.DefaultPort,
			EnvVars:  []string{"BWW_PORT"},
		},
		&cli.DurationFlag{
			Name:     "shutdown-timeout",
			Category: "HTTP",
			Usage:    "time allowed for in-flight requests after an interrupt",
			Value:    config.DefaultShutdownTimeout,
			EnvVars:  []string{"BWW_SHUTDOWN_TIMEOUT"},
		},
	}
}

// Config assembles the settings for c: defaults, then the config file,
// then any flag that was set explicitly on c or on one of its parents.
func Config(c *cli.Context) (cfg config.Config, err error) {
	cfg = config.Default()
	if path := c.String("config"); path != "" {
		if cfg, err = config.Load(path); err != nil {
			return
		}
	}

	for name, apply := range map[string]func(*cli.Context){
		"output":           func(c *cli.Context) { cfg.OutputDir = c.String("output") },
		"artifact-dir":     func(c *cli.Context) { cfg.ArtifactDir = c.String("artifact-dir") },
		"verify":           func(c *cli.Context) { cfg.Verify = c.Bool("verify") },
		"cargo":            func(c *cli.Context) { cfg.Tools.Cargo = c.String("cargo") },
		"wasm-bindgen":     func(c *cli.Context) { cfg.Tools.Bindgen = c.String("wasm-bindgen") },
		"wasm-opt":         func(c *cli.Context) { cfg.Tools.Optimizer = c.String("wasm-opt") },
		"host":             func(c *cli.Context) { cfg.Host = c.String("host") },
		"port":             func(c *cli.Context) { cfg.Port = c.Int("port") },
		"shutdown-timeout": func(c *cli.Context) { cfg.ShutdownTimeout = c.Duration("shutdown-timeout") },
	} {
		if set := Lookup(c, name); set != nil {
			apply(set)
		}
	}

	return cfg, cfg.Validate()
}

// Lookup returns the innermost context in c's lineage on which name was
// set, or nil.  A subcommand that redeclares a flag of its parent would
// otherwise shadow the parent's value with its own default.
func Lookup(c *cli.Context, name string) *cli.Context {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx
		}
	}

	return nil
}

// Bool reports the value of a boolean flag, wherever in c's lineage it
// was set.
func Bool(c *cli.Context, name string) bool {
	if set := Lookup(c, name); set != nil {
		return set.Bool(name)
	}

	return false
}

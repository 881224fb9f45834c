package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/allsey87/bevy-webworker/cmd/internal/flags"
	"github.com/allsey87/bevy-webworker/config"
	"github.com/allsey87/bevy-webworker/server"
	"github.com/allsey87/bevy-webworker/util"
	"github.com/urfave/cli/v2"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "serve the output directory until interrupted",
		Flags:  append(flags.OutputFlags(), flags.HTTPFlags()...),
		Action: Main,
	}
}

func Main(c *cli.Context) error {
	cfg, err := flags.Config(c)
	if err != nil {
		return err
	}

	return Serve(c, cfg)
}

// Serve binds the configured address and serves cfg.OutputDir until the
// context is cancelled.  Bind failures are returned before anything is
// served.
func Serve(c *cli.Context, cfg config.Config) error {
	if info, err := os.Stat(cfg.OutputDir); err != nil {
		return fmt.Errorf("output directory: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("output directory: %s is not a directory", cfg.OutputDir)
	}

	srv := &server.Server{
		Root:            cfg.OutputDir,
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.ShutdownTimeout,
		Log:             slog.Default(),
	}

	l, err := srv.Listen(c.Context)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Serving on %s\n", cfg.URL())

	// Give the supervisor room for the server's own shutdown timeout.
	timeout := cfg.ShutdownTimeout + time.Second
	err = util.Supervise(c.Context, slog.Default(), timeout, &util.Once{
		Name: srv.String(),
		Run: func(ctx context.Context) error {
			return srv.Serve(ctx, l)
		},
	})

	slog.DebugContext(c.Context, "server stopped",
		"state", srv.State())
	return err
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allsey87/bevy-webworker/cmd/bevyww/build"
	"github.com/allsey87/bevy-webworker/cmd/bevyww/run"
	"github.com/allsey87/bevy-webworker/cmd/bevyww/serve"
	"github.com/allsey87/bevy-webworker/cmd/bevyww/tools"
	"github.com/allsey87/bevy-webworker/cmd/internal/flags"
	"github.com/allsey87/bevy-webworker/toolchain"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM)
	defer cancel()

	err := newApp().RunContext(ctx, os.Args)
	if err != nil {
		slog.ErrorContext(ctx, err.Error())
	}

	os.Exit(exitCode(err))
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "bevyww",
		Usage:  "build a Bevy web-worker app and serve it for the browser",
		Flags:  append(flags.GlobalFlags(), run.Flags()...),
		Before: setup,
		Action: run.Main,
		Commands: []*cli.Command{
			run.Command(),
			build.Command(),
			serve.Command(),
			tools.Command(),
		},
	}
}

// exitCode maps the error returned by the app to a process exit status.
// A failing tool's own exit status is passed through.
func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var exit *toolchain.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}

	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}

	return 1
}

func setup(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		return err
	}

	slog.SetDefault(slog.New(tint.NewHandler(c.App.ErrWriter, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	if dir := c.String("project"); dir != "" {
		if err := os.Chdir(dir); err != nil {
			return err
		}
		slog.Debug("changed directory", "dir", dir)
	}

	return nil
}

package build

import (
	"log/slog"

	"github.com/allsey87/bevy-webworker/cmd/internal/flags"
	"github.com/allsey87/bevy-webworker/config"
	"github.com/allsey87/bevy-webworker/pipeline"
	"github.com/allsey87/bevy-webworker/toolchain"
	"github.com/urfave/cli/v2"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "compile, bind, optimize and patch into the output directory",
		Flags: append(append(
			flags.OutputFlags(),
			flags.BuildFlags()...),
			flags.ToolFlags()...),
		Action: Main,
	}
}

func Main(c *cli.Context) error {
	cfg, err := flags.Config(c)
	if err != nil {
		return err
	}

	p := Pipeline(c, cfg)
	if err := p.Run(c.Context); err != nil {
		return err
	}

	return p.Summary(c.App.Writer)
}

// Pipeline returns the build pipeline for cfg.  Tool output is sent to
// the app's error stream so that stdout carries only the summary.
func Pipeline(c *cli.Context, cfg config.Config) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Config: cfg,
		Runner: toolchain.Exec{
			Stdout: c.App.ErrWriter,
			Stderr: c.App.ErrWriter,
		},
		Log:         slog.Default(),
		SkipCompile: flags.Bool(c, "skip-compile"),
	}
}

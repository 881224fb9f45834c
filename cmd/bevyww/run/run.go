package run

import (
	"github.com/allsey87/bevy-webworker/cmd/bevyww/build"
	"github.com/allsey87/bevy-webworker/cmd/bevyww/serve"
	"github.com/allsey87/bevy-webworker/cmd/internal/flags"
	"github.com/urfave/cli/v2"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "build, then serve the output directory (default)",
		Flags:  Flags(),
		Action: Main,
	}
}

// Flags is the union of the build and serve flags.
func Flags() []cli.Flag {
	var fs []cli.Flag
	for _, group := range [][]cli.Flag{
		flags.OutputFlags(),
		flags.BuildFlags(),
		flags.ToolFlags(),
		flags.HTTPFlags(),
	} {
		fs = append(fs, group...)
	}
	return fs
}

func Main(c *cli.Context) error {
	cfg, err := flags.Config(c)
	if err != nil {
		return err
	}

	if err := build.Pipeline(c, cfg).Run(c.Context); err != nil {
		return err
	}

	return serve.Serve(c, cfg)
}

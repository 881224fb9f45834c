package tools

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/allsey87/bevy-webworker/cmd/internal/flags"
	"github.com/allsey87/bevy-webworker/toolchain"
	"github.com/urfave/cli/v2"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:   "tools",
		Usage:  "report the versions of the external build tools",
		Flags:  flags.ToolFlags(),
		Action: Main,
	}
}

func Main(c *cli.Context) error {
	cfg, err := flags.Config(c)
	if err != nil {
		return err
	}

	r := toolchain.Exec{Stderr: c.App.ErrWriter}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tVERSION\tSTATUS")

	var missing int
	for _, tool := range []string{
		cfg.Tools.Cargo,
		cfg.Tools.Bindgen,
		cfg.Tools.Optimizer,
	} {
		v, err := toolchain.Version(c.Context, r, tool)
		switch {
		case errors.Is(err, toolchain.ErrNotFound):
			missing++
			fmt.Fprintf(tw, "%s\t-\tmissing\n", tool)

		case err != nil:
			fmt.Fprintf(tw, "%s\t-\t%v\n", tool, err)

		case tool == cfg.Tools.Bindgen && v.LT(toolchain.MinBindgen):
			fmt.Fprintf(tw, "%s\t%s\toutdated, need %s or later\n", tool, v, toolchain.MinBindgen)

		default:
			fmt.Fprintf(tw, "%s\t%s\tok\n", tool, v)
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if missing > 0 {
		return cli.Exit(fmt.Sprintf("%d tool(s) not found in PATH", missing), 1)
	}

	return nil
}

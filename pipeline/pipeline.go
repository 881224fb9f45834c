// Package pipeline runs the build steps that turn the Rust workspace
// into a directory the browser can load: compile, scaffold the output
// directory, generate bindings, optimize and patch.
//
// Steps run strictly one after another.  Each step consumes what the
// previous one produced, so the first failure aborts the rest.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/allsey87/bevy-webworker/artifact"
	"github.com/allsey87/bevy-webworker/config"
	"github.com/allsey87/bevy-webworker/toolchain"
)

type Step struct {
	Name string
	Run  func(context.Context) error
}

type Pipeline struct {
	Config   config.Config
	Runner   toolchain.Runner
	Registry *artifact.Registry
	Log      *slog.Logger

	// SkipCompile reuses the binaries already in Config.ArtifactDir.
	SkipCompile bool
}

// Steps returns the ordered steps of the pipeline.
func (p *Pipeline) Steps() []Step {
	var steps []Step
	if !p.SkipCompile {
		steps = append(steps, Step{"compile", p.compile})
	}

	steps = append(steps,
		Step{"scaffold", p.scaffold},
		Step{"bindgen", p.bindgen},
		Step{"optimize", p.optimize},
		Step{"patch", p.patch})

	if p.Config.Verify {
		steps = append(steps, Step{"verify", p.verify})
	}

	return steps
}

func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.init(); err != nil {
		return err
	}

	for _, step := range p.Steps() {
		log := p.log().With("step", step.Name)
		log.DebugContext(ctx, "step started")

		t0 := time.Now()
		if err := step.Run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}

		log.InfoContext(ctx, "step finished",
			"took", time.Since(t0).Round(time.Millisecond))
	}

	return nil
}

func (p *Pipeline) init() (err error) {
	if p.Registry == nil {
		if p.Registry, err = artifact.NewRegistry(); err != nil {
			return
		}
	}

	stage := artifact.Pending
	if p.SkipCompile {
		stage = artifact.Compiled
	}

	for _, m := range p.Config.Modules {
		if err = p.Registry.Put(artifact.Artifact{
			Name:   m.Name,
			Binary: m.Binary(p.Config),
			Wasm:   m.Wasm(p.Config),
			Glue:   m.Glue(p.Config),
			Stage:  stage,
		}); err != nil {
			return
		}
	}

	return
}

// Summary writes one line per artifact with its stage, size and digest.
func (p *Pipeline) Summary(w io.Writer) error {
	as, err := p.Registry.List()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tSTAGE\tSIZE\tDIGEST\tWASM")
	for _, a := range as {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			a.Name, a.Stage, a.Size, a.Digest, a.Wasm)
	}

	return tw.Flush()
}

func (p *Pipeline) log() *slog.Logger {
	if p.Log == nil {
		return slog.Default()
	}
	return p.Log
}

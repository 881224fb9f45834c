package pipeline

import (
	"context"
	"fmt"

	"github.com/allsey87/bevy-webworker/artifact"
	"github.com/allsey87/bevy-webworker/config"
	"github.com/allsey87/bevy-webworker/patch"
	"github.com/allsey87/bevy-webworker/scaffold"
	"github.com/allsey87/bevy-webworker/toolchain"
	"github.com/allsey87/bevy-webworker/wasmcheck"
)

// CompileInvocation builds every module of the workspace.
func CompileInvocation(c config.Config) toolchain.Invocation {
	return toolchain.Invocation{
		Name: c.Tools.Cargo,
		Args: c.CargoArgs,
	}
}

// BindgenInvocation generates the web-target glue and the _bg.wasm
// binary for m in the output directory.
func BindgenInvocation(c config.Config, m config.Module) toolchain.Invocation {
	return toolchain.Invocation{
		Name: c.Tools.Bindgen,
		Args: []string{
			m.Binary(c),
			"--out-dir", c.OutputDir,
			"--target", "web",
			"--no-typescript",
		},
	}
}

// OptimizeInvocation rewrites the binary at path in place.
func OptimizeInvocation(c config.Config, path string) toolchain.Invocation {
	args := []string{c.OptLevel}
	for _, f := range c.Features {
		args = append(args, "--enable-"+f)
	}

	return toolchain.Invocation{
		Name: c.Tools.Optimizer,
		Args: append(args, "--output", path, path),
	}
}

func (p *Pipeline) compile(ctx context.Context) error {
	if err := p.Runner.Run(ctx, CompileInvocation(p.Config)); err != nil {
		return err
	}

	for _, m := range p.Config.Modules {
		if err := p.Registry.Advance(m.Name, artifact.Pending, artifact.Compiled, nil); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) scaffold(ctx context.Context) error {
	links := make([]scaffold.Link, len(p.Config.Assets))
	for i, a := range p.Config.Assets {
		links[i] = scaffold.Link{Name: a.Name, Target: a.Target}
	}

	return scaffold.Ensure(p.Config.OutputDir, links...)
}

func (p *Pipeline) bindgen(ctx context.Context) error {
	for _, m := range p.Config.Modules {
		p.log().InfoContext(ctx, "generating bindings",
			"module", m.Name)

		if err := p.bindOne(ctx, m); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
	}

	return nil
}

func (p *Pipeline) bindOne(ctx context.Context, m config.Module) error {
	if _, err := p.Registry.Expect(m.Name, artifact.Compiled); err != nil {
		return err
	}

	if err := p.Runner.Run(ctx, BindgenInvocation(p.Config, m)); err != nil {
		return err
	}

	return p.Registry.Advance(m.Name, artifact.Compiled, artifact.Bound, nil)
}

func (p *Pipeline) optimize(ctx context.Context) error {
	for _, m := range p.Config.Modules {
		p.log().InfoContext(ctx, "optimizing",
			"module", m.Name)

		if err := p.optimizeOne(ctx, m); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
	}

	return nil
}

func (p *Pipeline) optimizeOne(ctx context.Context, m config.Module) error {
	a, err := p.Registry.Expect(m.Name, artifact.Bound)
	if err != nil {
		return err
	}

	if err = p.Runner.Run(ctx, OptimizeInvocation(p.Config, a.Wasm)); err != nil {
		return err
	}

	digest, size, err := artifact.Fingerprint(a.Wasm)
	if err != nil {
		return err
	}

	return p.Registry.Advance(m.Name, artifact.Bound, artifact.Optimized, func(a *artifact.Artifact) error {
		a.Digest, a.Size = digest, size
		return nil
	})
}

func (p *Pipeline) patch(ctx context.Context) error {
	for _, m := range p.Config.Modules {
		if !m.AutoStart {
			continue
		}

		if err := p.patchOne(m); err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}

		p.log().DebugContext(ctx, "patched glue to start on load",
			"module", m.Name,
			"path", m.Glue(p.Config))
	}

	return nil
}

func (p *Pipeline) patchOne(m config.Module) error {
	a, err := p.Registry.Expect(m.Name, artifact.Optimized)
	if err != nil {
		return err
	}

	if err = patch.AutoStart(a.Glue); err != nil {
		return err
	}

	return p.Registry.Advance(m.Name, artifact.Optimized, artifact.Patched, nil)
}

func (p *Pipeline) verify(ctx context.Context) error {
	as, err := p.Registry.List()
	if err != nil {
		return err
	}

	for _, a := range as {
		if err := wasmcheck.File(ctx, a.Wasm); err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
	}

	return nil
}

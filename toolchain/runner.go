//go:generate mockgen -source=runner.go -destination=mocks/runner.go -package=mocks

// Package toolchain runs the external build tools as subprocesses.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

var ErrNotFound = errors.New("executable not found")

// Invocation describes a single run of an external tool.
type Invocation struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

func (inv Invocation) String() string {
	return strings.Join(append([]string{inv.Name}, inv.Args...), " ")
}

type Runner interface {
	// Run executes the tool to completion, streaming its output.
	Run(ctx context.Context, inv Invocation) error

	// Output executes the tool to completion and returns its stdout.
	Output(ctx context.Context, inv Invocation) ([]byte, error)
}

// ExitError reports a tool that exited with a non-zero status.
type ExitError struct {
	Tool string
	Args []string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exec is the Runner backed by os/exec.  Cancelling the context kills
// the running tool.
type Exec struct {
	Stdout, Stderr io.Writer
	Log            *slog.Logger
}

var _ Runner = (*Exec)(nil)

func (x Exec) Run(ctx context.Context, inv Invocation) error {
	cmd := x.command(ctx, inv)
	cmd.Stdout = x.stdout()
	cmd.Stderr = x.stderr()

	x.log().DebugContext(ctx, "exec",
		"cmd", inv.String(),
		"dir", inv.Dir)

	return x.wrap(inv, cmd.Run())
}

func (x Exec) Output(ctx context.Context, inv Invocation) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := x.command(ctx, inv)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		x.log().DebugContext(ctx, "tool wrote to stderr",
			"cmd", inv.String(),
			"stderr", strings.TrimSpace(stderr.String()))
	}

	return out, x.wrap(inv, err)
}

func (x Exec) command(ctx context.Context, inv Invocation) *exec.Cmd {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	return cmd
}

func (x Exec) wrap(inv Invocation, err error) error {
	var exit *exec.ExitError
	switch {
	case err == nil:
		return nil

	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%s: %w", inv.Name, ErrNotFound)

	case errors.As(err, &exit):
		code := exit.ExitCode()
		if code < 0 {
			// killed by a signal, most likely our own cancellation
			code = 1
		}
		return &ExitError{
			Tool: inv.Name,
			Args: inv.Args,
			Code: code,
			Err:  err,
		}
	}

	return fmt.Errorf("%s: %w", inv.Name, err)
}

func (x Exec) stdout() io.Writer {
	if x.Stdout == nil {
		return os.Stdout
	}
	return x.Stdout
}

func (x Exec) stderr() io.Writer {
	if x.Stderr == nil {
		return os.Stderr
	}
	return x.Stderr
}

func (x Exec) log() *slog.Logger {
	if x.Log == nil {
		return slog.Default()
	}
	return x.Log
}

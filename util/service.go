package util

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"
	"go.uber.org/atomic"
)

// EventHook returns a suture event hook that reports supervisor events
// to log.
func EventHook(log *slog.Logger) suture.EventHook {
	return func(e suture.Event) {
		var args []any
		for k, v := range e.Map() {
			args = append(args, k, v)
		}

		switch e.Type() {
		case suture.EventTypeBackoff, suture.EventTypeResume:
			log.Info(e.String(), args...)

		case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
			log.Warn(e.String(), args...)

		case suture.EventTypeStopTimeout:
			log.Error(e.String(), args...)

		default:
			log.Debug(e.String(), args...)
		}
	}
}

// Once adapts a run-to-completion function into a supervised service
// that is never restarted.  A clean return leaves the supervisor
// running until its context expires; a failure tears the whole tree
// down and is kept for Err.
type Once struct {
	Name string
	Run  func(context.Context) error

	err     atomic.Error
	started atomic.Bool
	done    chan struct{}
	finish  sync.Once
}

var _ suture.Service = (*Once)(nil)

func (o *Once) String() string {
	return o.Name
}

func (o *Once) Serve(ctx context.Context) error {
	o.started.Store(true)
	defer o.finish.Do(o.close)

	if err := o.Run(ctx); err != nil {
		o.err.Store(err)
		return suture.ErrTerminateSupervisorTree
	}

	return suture.ErrDoNotRestart
}

func (o *Once) close() {
	if o.done != nil {
		close(o.done)
	}
}

// Err returns the error that terminated the service, if any.
func (o *Once) Err() error {
	return o.err.Load()
}

// Supervise runs svc under a fresh supervisor until ctx expires or svc
// fails, and returns svc's error.  Timeout bounds how long the
// supervisor waits for svc to stop before reporting a stop timeout; a
// zero value keeps suture's default.  Supervise itself always waits for
// svc to return, so the service must bound its own shutdown.
func Supervise(ctx context.Context, log *slog.Logger, timeout time.Duration, svc *Once) error {
	svc.done = make(chan struct{})

	sup := suture.New(svc.Name, suture.Spec{
		EventHook: EventHook(log),
		Timeout:   timeout,
	})
	sup.Add(svc)

	err := sup.Serve(ctx)
	if svc.started.Load() {
		<-svc.done
	}

	if e := svc.Err(); e != nil {
		return e
	}

	if err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, suture.ErrTerminateSupervisorTree) {
		return nil
	}

	return err
}

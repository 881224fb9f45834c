// Package server serves the output directory over plain HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

const DefaultShutdownTimeout = 5 * time.Second

var (
	ErrAddrInUse = errors.New("address already in use")
	ErrStopped   = errors.New("server already stopped")
)

type State int32

const (
	NotStarted State = iota
	Serving
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Serving:
		return "serving"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	}

	return fmt.Sprintf("State(%d)", int32(s))
}

// Server is a static file server rooted at Root.  It serves at most
// once: after Serve returns it stays in the Stopped state.
type Server struct {
	Root            string
	Addr            string
	ShutdownTimeout time.Duration
	Log             *slog.Logger
	ListenConfig    *net.ListenConfig

	state atomic.Int32
}

func (s *Server) String() string {
	return "http"
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Listen binds the server's address.  A port held by another process
// is reported as ErrAddrInUse.
func (s *Server) Listen(ctx context.Context) (net.Listener, error) {
	lc := s.ListenConfig
	if lc == nil {
		lc = &net.ListenConfig{}
	}

	l, err := lc.Listen(ctx, "tcp", s.Addr)
	if errors.Is(err, syscall.EADDRINUSE) {
		return nil, fmt.Errorf("listen %s: %w", s.Addr, ErrAddrInUse)
	} else if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.Addr, err)
	}

	return l, nil
}

// Handler serves files from Root, resolving directories to their
// index.html.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Handle("/*", s.files())
	return r
}

func (s *Server) files() http.Handler {
	fs := http.FileServer(http.Dir(s.Root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// http.FileServer redirects .../index.html to ./, whereas the
		// page is expected to load from its own name.
		if path.Base(r.URL.Path) == "index.html" {
			s.serveFile(w, r)
			return
		}

		fs.ServeHTTP(w, r)
	})
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	f, err := http.Dir(s.Root).Open(r.URL.Path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// Serve accepts connections on l until ctx expires, then stops accepting
// and waits up to ShutdownTimeout for in-flight requests to finish.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	if !s.state.CompareAndSwap(int32(NotStarted), int32(Serving)) {
		l.Close()
		return ErrStopped
	}
	defer s.state.Store(int32(Stopped))

	// In-flight requests outlive ctx so that they can complete during
	// shutdown.
	base := context.WithoutCancel(ctx)
	hs := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return base
		},
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group

	// Babysit the context and shut the server down when it expires.
	// The listener is closed by Shutdown, which makes hs.Serve return.
	g.Go(func() error {
		<-ctx.Done()
		s.state.Store(int32(ShuttingDown))
		s.log().Debug("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()

		return hs.Shutdown(ctx)
	})

	s.log().DebugContext(ctx, "serving",
		"url", "http://"+l.Addr().String()+"/",
		"root", s.Root)

	// Blocks until Shutdown is called or the listener fails.
	err := hs.Serve(l)
	cancel()

	if err == http.ErrServerClosed {
		err = nil
	}

	if serr := g.Wait(); err == nil {
		err = serr
	}

	return err
}

// ListenAndServe binds the server's address, then serves until ctx
// expires.  Bind errors are returned before anything is served.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := s.Listen(ctx)
	if err != nil {
		return err
	}

	return s.Serve(ctx, l)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		t0 := time.Now()
		next.ServeHTTP(ww, r)

		s.log().DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(t0))
	})
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return s.ShutdownTimeout
}

func (s *Server) log() *slog.Logger {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	return log.With("service", s.String())
}

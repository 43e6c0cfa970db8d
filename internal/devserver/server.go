// Package devserver provides the LiveView development server.
//
// The server is the peer a LiveView client talks to:
//   - An HTTP source server that returns module text for GET /<id>.js
//   - A TCP event server that pushes control-plane frames to connected apps
//   - A WebSocket mirror of the same frames for browser tooling
//   - An optional file watcher that broadcasts a reload when sources change
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Status represents the current status of a development server.
type Status string

const (
	// StatusStopped indicates the server is not running.
	StatusStopped Status = "stopped"

	// StatusStarting indicates the server is binding its listeners.
	StatusStarting Status = "starting"

	// StatusRunning indicates the server is running and ready.
	StatusRunning Status = "running"

	// StatusStopping indicates the server is closing its listeners and clients.
	StatusStopping Status = "stopping"

	// StatusError indicates the server failed to start.
	StatusError Status = "error"
)

// DefaultDebounce is the minimum spacing between watcher-triggered reloads.
const DefaultDebounce = 250 * time.Millisecond

// Options configures a Server.
type Options struct {
	// Resources is the directory sources are served from.
	Resources string

	// EventAddr is the TCP event server bind address (e.g. ":8323").
	EventAddr string

	// HTTPAddr is the HTTP source server bind address (e.g. ":8324").
	HTTPAddr string

	// Watch enables reload broadcasts on file changes.
	Watch bool

	// Debounce spaces watcher-triggered reloads. Defaults to DefaultDebounce.
	Debounce time.Duration

	// Logger defaults to the package logger.
	Logger *log.Logger
}

// Server is a LiveView development server.
type Server struct {
	opts   Options
	logger *log.Logger

	events  *eventHub
	sockets *wsHub
	handler http.Handler

	// mu protects the lifecycle fields below.
	mu            sync.Mutex
	status        Status
	eventListener net.Listener
	httpListener  net.Listener
	httpServer    *http.Server
	watcher       *watcher
	reloads       int
}

// New creates a Server. Nothing is bound until Start.
//
// Parameters:
//   - opts: Server configuration
//
// Returns:
//   - *Server: A new, stopped server
func New(opts Options) *Server {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("devserver")
	}

	s := &Server{
		opts:    opts,
		logger:  logger,
		events:  newEventHub(logger.WithPrefix("events")),
		sockets: newWSHub(logger.WithPrefix("ws")),
		status:  StatusStopped,
	}
	s.handler = s.routes()
	return s
}

// Start binds the event and HTTP listeners, starts serving and, when
// enabled, starts the file watcher. It returns once the server is ready.
//
// Parameters:
//   - ctx: Context for cancellation; when done the server stops
//
// Returns:
//   - error: nil if the server started, otherwise the bind or watch error
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning || s.status == StatusStarting {
		return fmt.Errorf("dev server is already running")
	}
	if s.status == StatusStopping {
		return fmt.Errorf("dev server is still stopping")
	}
	s.status = StatusStarting

	eventLn, err := net.Listen("tcp", s.opts.EventAddr)
	if err != nil {
		s.status = StatusError
		return fmt.Errorf("failed to listen for events on %s: %w", s.opts.EventAddr, err)
	}
	httpLn, err := net.Listen("tcp", s.opts.HTTPAddr)
	if err != nil {
		_ = eventLn.Close()
		s.status = StatusError
		return fmt.Errorf("failed to listen for sources on %s: %w", s.opts.HTTPAddr, err)
	}

	if s.opts.Watch {
		w, err := newWatcher(s.opts.Resources, s.opts.Debounce, s.logger.WithPrefix("watch"), func(name string) {
			s.logger.Info("change detected", "file", name)
			s.Reload()
		})
		if err != nil {
			_ = eventLn.Close()
			_ = httpLn.Close()
			s.status = StatusError
			return err
		}
		s.watcher = w
	}

	s.eventListener = eventLn
	s.httpListener = httpLn
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.events.serve(eventLn)
	go func(srv *http.Server, ln net.Listener) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("source server stopped", "err", err)
		}
	}(s.httpServer, httpLn)

	s.status = StatusRunning
	s.logger.Info("dev server ready",
		"events", eventLn.Addr().String(),
		"sources", httpLn.Addr().String(),
		"resources", s.opts.Resources,
		"watch", s.opts.Watch,
	)

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	return nil
}

// Stop closes listeners, connected clients and the watcher. It is idempotent.
//
// Returns:
//   - error: The first error encountered while shutting down
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return nil
	}

	watcher := s.watcher
	eventListener := s.eventListener
	httpServer := s.httpServer
	s.watcher = nil
	s.eventListener = nil
	s.httpListener = nil
	s.httpServer = nil
	s.status = StatusStopping
	s.mu.Unlock()

	// Shutdown can wait on in-flight requests; status readers must not block on it.
	var firstErr error
	if watcher != nil {
		if err := watcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := eventListener.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.events.closeAll()
	s.sockets.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	s.mu.Lock()
	s.status = StatusStopped
	s.mu.Unlock()
	s.logger.Debug("dev server stopped")
	return firstErr
}

// Reload broadcasts a reload event to every connected client.
//
// Returns:
//   - int: The number of clients the frame was queued for
func (s *Server) Reload() int {
	frame, err := ReloadFrame()
	if err != nil {
		s.logger.Error("failed to build reload frame", "err", err)
		return 0
	}

	n := s.events.broadcast(append(frame, '\n'))
	n += s.sockets.broadcast(frame)

	s.mu.Lock()
	s.reloads++
	s.mu.Unlock()

	s.logger.Info("reload broadcast", "clients", n)
	return n
}

// Status returns the server's lifecycle status.
func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Reloads returns how many reloads have been broadcast.
func (s *Server) Reloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reloads
}

// Clients returns the number of connected event and WebSocket clients.
func (s *Server) Clients() int {
	return s.events.count() + s.sockets.count()
}

// EventPort returns the bound event port, or 0 when stopped.
func (s *Server) EventPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listenerPort(s.eventListener)
}

// FetchPort returns the bound HTTP port, or 0 when stopped.
func (s *Server) FetchPort() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return listenerPort(s.httpListener)
}

// Handler returns the HTTP handler serving sources and control endpoints.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func listenerPort(ln net.Listener) int {
	if ln == nil {
		return 0
	}
	if addr, ok := ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Package liveview connects a module loader to a LiveView dev server.
//
// A Session keeps a control-plane socket open to the dev server's event port
// and listens for reload events. On reload it clears the loader's module
// cache and restarts the application, either through a Restarter (full
// restart) or by re-requiring the entry module in place.
//
// Socket callbacks run on the socket's goroutines; every loader call happens
// on the goroutine running Session.Run.
package liveview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/tidwall/gjson"

	"github.com/revyl/liveview/internal/loader"
	"github.com/revyl/liveview/internal/socket"
)

const (
	// DefaultEventPort is the dev server's control-plane port.
	DefaultEventPort = 8323

	// DefaultFetchPort is the dev server's source port.
	DefaultFetchPort = loader.DefaultFetchPort

	// DefaultReconnectInterval is the retry period after the server ends the stream.
	DefaultReconnectInterval = 2 * time.Second

	// EntryModule is the application's entry module.
	EntryModule = "app"
)

// ErrConnectionRefused is matched by the fatal error returned when the event
// server refuses the control-plane connection.
var ErrConnectionRefused = errors.New("connection refused")

// Restarter performs a full application restart. When it returns nil the
// session assumes the restart is underway.
type Restarter interface {
	Restart() error
}

// RestarterFunc adapts a function to Restarter.
type RestarterFunc func() error

// Restart implements Restarter.
func (f RestarterFunc) Restart() error {
	return f()
}

// Options configures a Session.
type Options struct {
	// Host is the dev server host. Defaults to socket.DefaultHost.
	Host string

	// EventPort defaults to DefaultEventPort.
	EventPort int

	// FetchPort defaults to DefaultFetchPort.
	FetchPort int

	// Platform is sent with every source request.
	Platform string

	// FetchTimeout bounds each source fetch.
	FetchTimeout time.Duration

	// Entry defaults to EntryModule.
	Entry string

	// Loader overrides the loader built from LoaderOptions.
	Loader *loader.Loader

	// LoaderOptions are used to build the loader when Loader is nil. A nil
	// Source becomes an HTTPSource for Host:FetchPort.
	LoaderOptions loader.Options

	// Restarter, when set, is preferred over the in-place reload.
	Restarter Restarter

	// IgnoreCodes are socket error codes that are never fatal.
	IgnoreCodes []int

	// KeepAlive enables control-plane pings at this interval when positive.
	KeepAlive time.Duration

	// ReconnectInterval defaults to DefaultReconnectInterval.
	ReconnectInterval time.Duration

	// Logger defaults to the package logger.
	Logger *log.Logger
}

// Session drives the loader from dev server events.
type Session struct {
	host              string
	eventPort         int
	fetchPort         int
	entry             string
	restarter         Restarter
	keepAlive         time.Duration
	reconnectInterval time.Duration
	logger            *log.Logger

	loader *loader.Loader
	socket *socket.Client

	// reloads carries reload requests from the socket to Run.
	reloads chan struct{}

	// fatal carries the first fatal control-plane error to Run.
	fatal chan error

	// mu protects the reconnect ticker.
	mu        sync.Mutex
	retryStop chan struct{}

	reloadCount atomic.Int64
}

// NewSession creates a Session. Nothing connects until Run.
//
// Parameters:
//   - opts: Session configuration
//
// Returns:
//   - *Session: A new session
//   - error: If the loader could not be created
func NewSession(opts Options) (*Session, error) {
	s := &Session{
		host:              opts.Host,
		eventPort:         opts.EventPort,
		fetchPort:         opts.FetchPort,
		entry:             opts.Entry,
		restarter:         opts.Restarter,
		keepAlive:         opts.KeepAlive,
		reconnectInterval: opts.ReconnectInterval,
		logger:            opts.Logger,
		loader:            opts.Loader,
		reloads:           make(chan struct{}, 1),
		fatal:             make(chan error, 1),
	}
	if s.host == "" {
		s.host = socket.DefaultHost
	}
	if s.eventPort == 0 {
		s.eventPort = DefaultEventPort
	}
	if s.fetchPort == 0 {
		s.fetchPort = DefaultFetchPort
	}
	if s.entry == "" {
		s.entry = EntryModule
	}
	if s.reconnectInterval <= 0 {
		s.reconnectInterval = DefaultReconnectInterval
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("liveview")
	}

	if s.loader == nil {
		lopts := opts.LoaderOptions
		if lopts.Source == nil {
			src := loader.NewHTTPSource(s.host, s.fetchPort, opts.Platform)
			if opts.FetchTimeout > 0 {
				src.Timeout = opts.FetchTimeout
			}
			lopts.Source = src
		}
		if lopts.Logger == nil {
			lopts.Logger = s.logger.WithPrefix("loader")
		}
		l, err := loader.New(lopts)
		if err != nil {
			return nil, fmt.Errorf("failed to create loader: %w", err)
		}
		s.loader = l
	}

	s.socket = socket.New(socket.Options{
		Host:        s.host,
		Port:        s.eventPort,
		IgnoreCodes: opts.IgnoreCodes,
	}, s.logger.WithPrefix("socket"))
	s.wireSocket()

	return s, nil
}

// Loader returns the session's module loader.
func (s *Session) Loader() *loader.Loader {
	return s.loader
}

// Socket returns the control-plane socket.
func (s *Session) Socket() *socket.Client {
	return s.socket
}

// Reloads returns how many reloads the session has performed.
func (s *Session) Reloads() int64 {
	return s.reloadCount.Load()
}

// wireSocket registers the control-plane event handlers.
func (s *Session) wireSocket() {
	s.socket.On(socket.EventData, func(args ...any) {
		if data, ok := args[0].([]byte); ok {
			s.handlePayload(data)
		}
	})
	s.socket.On(socket.EventConnect, func(args ...any) {
		s.stopReconnect()
		s.logger.Info("connected to event server", "addr", s.socket.Addr())
		if s.keepAlive > 0 {
			s.socket.SetKeepAlive(true, s.keepAlive)
		}
	})
	s.socket.On(socket.EventEnd, func(args ...any) {
		s.logger.Warn("event server closed the connection, retrying", "every", s.reconnectInterval)
		s.startReconnect()
	})
	s.socket.On(socket.EventError, func(args ...any) {
		if ev, ok := args[0].(*socket.ErrorEvent); ok {
			s.handleSocketError(ev)
		}
	})
}

// handlePayload inspects a control-plane chunk. Each line must be a complete
// JSON object; anything else is dropped.
func (s *Session) handlePayload(data []byte) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !gjson.Valid(line) {
			continue
		}
		msg := gjson.Parse(line)
		if msg.Get("type").String() != "event" {
			continue
		}
		switch msg.Get("name").String() {
		case "reload":
			s.requestReload()
		}
	}
}

// requestReload queues a reload for Run. Bursts collapse into one reload.
func (s *Session) requestReload() {
	select {
	case s.reloads <- struct{}{}:
	default:
	}
}

// handleSocketError turns a control-plane error into a fatal error. While
// reconnecting after the server ended the stream, failures are retried.
func (s *Session) handleSocketError(ev *socket.ErrorEvent) {
	if s.reconnecting() {
		s.logger.Debug("reconnect attempt failed", "code", ev.Code, "err", ev.Err)
		return
	}

	var err error = ev
	if ev.IsConnectionRefused() {
		err = fmt.Errorf("%w: unable to connect to LiveView event server at %s:%d, check that the dev server is running and reachable from this device",
			ErrConnectionRefused, s.host, s.eventPort)
	}

	select {
	case s.fatal <- err:
	default:
	}
}

// startReconnect begins the recurring reconnect attempts.
func (s *Session) startReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryStop != nil {
		return
	}
	stop := make(chan struct{})
	s.retryStop = stop

	go func() {
		ticker := time.NewTicker(s.reconnectInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.socket.Connect(socket.ConnectOptions{})
			}
		}
	}()
}

func (s *Session) stopReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryStop != nil {
		close(s.retryStop)
		s.retryStop = nil
	}
}

func (s *Session) reconnecting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryStop != nil
}

// Run connects to the event server, requires the entry module and then
// serves reload requests until ctx is done or a fatal error occurs.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: The fatal error, or ctx.Err() when cancelled
func (s *Session) Run(ctx context.Context) error {
	defer s.shutdown()

	s.connect()

	if _, err := s.loader.Require(s.entry); err != nil {
		return fmt.Errorf("failed to load %s: %w", s.entry, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-s.fatal:
			return err

		case <-s.reloads:
			if err := s.reload(); err != nil {
				return err
			}
		}
	}
}

func (s *Session) connect() {
	s.logger.Debug("connecting to event server", "host", s.host, "port", s.eventPort)
	s.socket.Connect(socket.ConnectOptions{Host: s.host, Port: s.eventPort})
}

// reload clears the module cache and restarts the application.
func (s *Session) reload() error {
	s.reloadCount.Add(1)
	s.loader.ClearCache()

	if s.restarter != nil {
		err := s.restarter.Restart()
		if err == nil {
			s.logger.Info("restarting app")
			return nil
		}
		s.logger.Warn("full restart unavailable, reloading in place", "err", err)
	}

	s.logger.Info("reloading app via legacy method")
	s.socket.Close(false)
	if _, err := s.loader.Require(s.entry); err != nil {
		return fmt.Errorf("failed to reload %s: %w", s.entry, err)
	}
	s.connect()
	return nil
}

func (s *Session) shutdown() {
	s.stopReconnect()
	s.socket.Close(false)
}

// Bootstrap is the single LiveView entry point: it installs globals, opens
// the control-plane connection and requires the "app" module.
//
// Parameters:
//   - ctx: Context for cancellation
//   - globals: Values exposed on the script global object
//   - host: Dev server host or IP
//   - port: Dev server source port
//
// Returns:
//   - error: The fatal error that stopped the session, or ctx.Err()
func Bootstrap(ctx context.Context, globals map[string]any, host string, port int) error {
	s, err := NewSession(Options{
		Host:          host,
		FetchPort:     port,
		LoaderOptions: loader.Options{Globals: globals},
	})
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

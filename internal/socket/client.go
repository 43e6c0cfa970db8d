// Package socket provides a reconnecting TCP client with event callbacks.
//
// The Client wraps a raw TCP connection and reports its lifecycle through an
// embedded emitter.Emitter instead of returning transport errors:
//
//	disconnected -> connecting -> connected -> (close | end) -> [reconnecting] -> connecting
//
// Events:
//   - "connect" / "reconnect": the dial succeeded (reconnect when it was a retry)
//   - "data": a chunk was read, argument is []byte
//   - "error" / "error ignored": dial failed, argument is *ErrorEvent
//   - "end": the server closed the stream
//   - "close": the client was closed locally
//   - "reconnecting": a scheduled retry is starting
package socket

import (
	"fmt"
	"net"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/revyl/liveview/internal/emitter"
)

// Event names emitted by Client.
const (
	EventConnect      = "connect"
	EventReconnect    = "reconnect"
	EventData         = "data"
	EventError        = "error"
	EventErrorIgnored = "error ignored"
	EventEnd          = "end"
	EventClose        = "close"
	EventReconnecting = "reconnecting"
)

const (
	// DefaultHost is used when no host was configured.
	DefaultHost = "127.0.0.1"

	// DefaultKeepAliveInterval is the ping period when SetKeepAlive gets no interval.
	DefaultKeepAliveInterval = 300000 * time.Millisecond

	// DefaultKeepAlivePayload is written on every keep-alive tick.
	DefaultKeepAlivePayload = "ping"

	dialTimeout    = 10 * time.Second
	readBufferSize = 64 * 1024
	writeQueueSize = 64

	// writeTimeout bounds each transport write.
	writeTimeout = 10 * time.Second
)

// flushTimeout bounds how long a local Close waits for queued writes.
var flushTimeout = 2 * time.Second

// Options configures a Client.
type Options struct {
	// Host is the server host. Defaults to DefaultHost.
	Host string

	// Port is the server port.
	Port int

	// Retry is the delay before reconnecting after the server ends the
	// stream. Zero disables reconnects.
	Retry time.Duration

	// IgnoreCodes lists error codes reported as "error ignored" instead of "error".
	IgnoreCodes []int

	// KeepAlivePayload overrides DefaultKeepAlivePayload.
	KeepAlivePayload string
}

// ConnectOptions are merged over the stored Options on each Connect.
// Zero fields keep the stored value.
type ConnectOptions struct {
	Host  string
	Port  int
	Retry time.Duration

	// Reconnect marks the attempt as a retry, so success emits "reconnect".
	Reconnect bool

	// OnConnect is invoked once when this attempt connects, before the
	// connect event is emitted.
	OnConnect func()
}

// WriteCallback receives the raw completion results of a Write.
type WriteCallback func(n int, err error)

type writeReq struct {
	payload []byte
	cb      WriteCallback
}

// link is one live transport connection and its ordered write queue.
type link struct {
	conn    net.Conn
	queue   chan writeReq
	drained chan struct{}
}

// Client is a reconnecting TCP client.
type Client struct {
	*emitter.Emitter

	// mu protects the connection state below.
	mu sync.Mutex

	host         string
	port         int
	retry        time.Duration
	ignore       map[int]bool
	pingPayload  string
	link         *link
	connected    bool
	closing      bool
	generation   int
	retryTimer   *time.Timer
	keepAliveEnd chan struct{}

	bytesRead    atomic.Int64
	bytesWritten atomic.Int64

	logger *log.Logger
}

// New creates a Client. Nothing is dialled until Connect is called.
//
// Parameters:
//   - opts: Connection defaults
//   - logger: Logger to use, or nil for the default logger
//
// Returns:
//   - *Client: A new, disconnected client
func New(opts Options, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default().WithPrefix("socket")
	}
	ignore := make(map[int]bool, len(opts.IgnoreCodes))
	for _, code := range opts.IgnoreCodes {
		ignore[code] = true
	}
	payload := opts.KeepAlivePayload
	if payload == "" {
		payload = DefaultKeepAlivePayload
	}
	return &Client{
		Emitter:     emitter.New(),
		host:        opts.Host,
		port:        opts.Port,
		retry:       opts.Retry,
		ignore:      ignore,
		pingPayload: payload,
		logger:      logger,
	}
}

// Connect merges opts over the stored settings and dials in the background.
// The outcome is reported through events, never returned.
//
// Parameters:
//   - opts: Settings for this attempt; zero fields keep stored values
func (c *Client) Connect(opts ConnectOptions) {
	c.mu.Lock()
	if opts.Host != "" {
		c.host = opts.Host
	}
	if c.host == "" {
		c.host = DefaultHost
	}
	if opts.Port != 0 {
		c.port = opts.Port
	}
	if opts.Retry != 0 {
		c.retry = opts.Retry
	}
	c.closing = false
	c.generation++
	gen := c.generation
	addr := net.JoinHostPort(c.host, strconv.Itoa(c.port))
	c.mu.Unlock()

	go c.dial(gen, addr, opts)
}

func (c *Client) dial(gen int, addr string, opts ConnectOptions) {
	c.logger.Debug("dialing", "addr", addr, "reconnect", opts.Reconnect)

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		c.emitError(newErrorEvent(err))
		if opts.Reconnect {
			c.scheduleReconnect()
		}
		return
	}

	l := &link{
		conn:    conn,
		queue:   make(chan writeReq, writeQueueSize),
		drained: make(chan struct{}),
	}

	c.mu.Lock()
	if c.closing || gen != c.generation || c.link != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.link = l
	c.connected = true
	c.mu.Unlock()

	go c.writeLoop(l)

	if opts.OnConnect != nil {
		opts.OnConnect()
	}
	if opts.Reconnect {
		c.Emit(EventReconnect)
	} else {
		c.Emit(EventConnect)
	}
	c.logger.Debug("connected", "addr", addr)

	c.readPump(l)
}

// readPump forwards chunks as data events until the stream fails.
func (c *Client) readPump(l *link) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := l.conn.Read(buf)
		if n > 0 {
			c.bytesRead.Add(int64(n))
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.Emit(EventData, chunk)
		}
		if err != nil || n <= 0 {
			c.streamClosed(l)
			return
		}
	}
}

// streamClosed handles a stream that ended underneath us.
func (c *Client) streamClosed(l *link) {
	c.mu.Lock()
	current := c.link == l
	c.mu.Unlock()

	if !current {
		// Already detached by a local Close.
		return
	}
	c.Close(true)
}

func (c *Client) writeLoop(l *link) {
	defer close(l.drained)
	for req := range l.queue {
		_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		n, err := l.conn.Write(req.payload)
		c.bytesWritten.Add(int64(n))
		if req.cb != nil {
			req.cb(n, err)
		}
	}
}

// Write queues data for writing. Falsy values become the empty string; other
// values are converted with Stringify. Writes are performed in order on a
// background goroutine and cb, when set, receives the raw results. Write
// never blocks: when the queue is full cb gets ErrWriteQueueFull. cb must not
// call Close.
//
// Parameters:
//   - data: The payload
//   - cb: Optional completion callback
func (c *Client) Write(data any, cb WriteCallback) {
	payload := []byte(Stringify(data))

	c.mu.Lock()
	l := c.link
	if l == nil {
		c.mu.Unlock()
		if cb != nil {
			go cb(0, ErrNotConnected)
		}
		return
	}
	select {
	case l.queue <- writeReq{payload: payload, cb: cb}:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.logger.Debug("write queue full, dropping write", "bytes", len(payload))
		if cb != nil {
			go cb(0, ErrWriteQueueFull)
		}
	}
}

// Close shuts the connection.
//
// A local close (serverEnded false) flushes queued writes for up to
// flushTimeout, closes the transport, cancels timers and emits "close". A
// server-ended close emits "end" and, when a retry interval is set,
// schedules a reconnect.
//
// Parameters:
//   - serverEnded: True when the remote side ended the stream
func (c *Client) Close(serverEnded bool) {
	c.mu.Lock()
	l := c.link
	c.link = nil
	c.connected = false
	if !serverEnded {
		c.closing = true
		c.generation++
		if c.retryTimer != nil {
			c.retryTimer.Stop()
			c.retryTimer = nil
		}
	}
	c.mu.Unlock()

	if !serverEnded {
		if l != nil {
			close(l.queue)
			select {
			case <-l.drained:
			case <-time.After(flushTimeout):
				c.logger.Debug("write flush timed out, dropping queued writes")
			}
			// Closing unblocks a stuck write; remaining requests fail fast.
			_ = l.conn.Close()
		}
		c.SetKeepAlive(false, 0)
		c.logger.Debug("closed locally")
		c.Emit(EventClose)
		return
	}

	if l != nil {
		_ = l.conn.Close()
		close(l.queue)
	}
	c.logger.Debug("stream ended by server")
	c.Emit(EventEnd)
	c.scheduleReconnect()
}

// scheduleReconnect arms the retry timer when a retry interval is set.
func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing || c.retry <= 0 {
		return
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(c.retry, func() {
		c.mu.Lock()
		closing := c.closing
		c.retryTimer = nil
		c.mu.Unlock()
		if closing {
			return
		}
		c.Emit(EventReconnecting)
		c.Connect(ConnectOptions{Reconnect: true})
	})
}

// SetKeepAlive starts or stops the periodic ping writer. Enabling replaces
// any running keep-alive.
//
// Parameters:
//   - enable: Whether pings should be sent
//   - interval: Ping period; zero means DefaultKeepAliveInterval
func (c *Client) SetKeepAlive(enable bool, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keepAliveEnd != nil {
		close(c.keepAliveEnd)
		c.keepAliveEnd = nil
	}
	if !enable {
		return
	}
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}

	stop := make(chan struct{})
	c.keepAliveEnd = stop
	payload := c.pingPayload
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Write(payload, nil)
			}
		}
	}()
}

// emitError reports err as "error", or "error ignored" when its code is in
// the ignore list.
func (c *Client) emitError(ev *ErrorEvent) {
	c.mu.Lock()
	ignored := c.ignore[ev.Code]
	c.mu.Unlock()

	if ignored {
		c.logger.Debug("ignoring socket error", "code", ev.Code, "err", ev.Err)
		c.Emit(EventErrorIgnored, ev)
		return
	}
	c.Emit(EventError, ev)
}

// Connected reports whether the transport is currently connected.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Addr returns the host:port the client dials.
func (c *Client) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	host := c.host
	if host == "" {
		host = DefaultHost
	}
	return net.JoinHostPort(host, strconv.Itoa(c.port))
}

// BytesRead returns the number of bytes read across all connections.
func (c *Client) BytesRead() int64 {
	return c.bytesRead.Load()
}

// BytesWritten returns the number of bytes written across all connections.
func (c *Client) BytesWritten() int64 {
	return c.bytesWritten.Load()
}

// Stringify converts a write payload to its string form.
//
// Parameters:
//   - data: Payload value
//
// Returns:
//   - string: Empty for nil, false and numeric zero, the value for strings
//     and byte slices, String() for fmt.Stringer, fmt.Sprint otherwise
func Stringify(data any) string {
	if isFalsy(data) {
		return ""
	}
	switch v := data.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// isFalsy reports nil, false and zero numbers.
func isFalsy(data any) bool {
	if data == nil {
		return true
	}
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	}
	return false
}

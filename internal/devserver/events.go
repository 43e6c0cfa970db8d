package devserver

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tidwall/sjson"
)

const (
	// clientQueueSize bounds frames queued for a slow client.
	clientQueueSize = 16

	// writeWait bounds a single frame write.
	writeWait = 5 * time.Second
)

// ReloadFrame returns the control-plane frame that asks clients to reload.
//
// Returns:
//   - []byte: {"type":"event","name":"reload"}
//   - error: If the frame could not be built
func ReloadFrame() ([]byte, error) {
	return EventFrame("reload")
}

// EventFrame builds a control-plane event frame.
//
// Parameters:
//   - name: The event name
//
// Returns:
//   - []byte: {"type":"event","name":<name>}
//   - error: If the frame could not be built
func EventFrame(name string) ([]byte, error) {
	frame, err := sjson.SetBytes(nil, "type", "event")
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(frame, "name", name)
}

// eventClient is one connected app on the event port.
type eventClient struct {
	id        string
	conn      net.Conn
	send      chan []byte
	createdAt time.Time
	closeOnce sync.Once
}

func (c *eventClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// eventHub tracks event clients and fans frames out to them.
type eventHub struct {
	logger *log.Logger

	mu      sync.Mutex
	clients map[string]*eventClient
}

func newEventHub(logger *log.Logger) *eventHub {
	return &eventHub{
		logger:  logger,
		clients: make(map[string]*eventClient),
	}
}

// serve accepts clients until ln is closed.
func (h *eventHub) serve(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				h.logger.Error("accept failed", "err", err)
			}
			return
		}
		h.add(conn)
	}
}

func (h *eventHub) add(conn net.Conn) {
	c := &eventClient{
		id:        uuid.New().String(),
		conn:      conn,
		send:      make(chan []byte, clientQueueSize),
		createdAt: time.Now(),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Info("app connected", "client", c.id, "addr", conn.RemoteAddr().String())

	go h.writePump(c)
	go h.readPump(c)
}

func (h *eventHub) remove(c *eventClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Info("app disconnected", "client", c.id, "connected_for", time.Since(c.createdAt).Round(time.Second))
	}
}

// readPump drains keep-alive pings and detects disconnects.
func (h *eventHub) readPump(c *eventClient) {
	defer h.remove(c)

	buf := make([]byte, 512)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			h.logger.Debug("client data", "client", c.id, "bytes", n)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				h.logger.Debug("client read failed", "client", c.id, "err", err)
			}
			return
		}
	}
}

func (h *eventHub) writePump(c *eventClient) {
	for frame := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := c.conn.Write(frame); err != nil {
			h.logger.Debug("client write failed", "client", c.id, "err", err)
			go h.remove(c)
			return
		}
	}
}

// broadcast queues frame for every client. Clients whose queue is full are
// dropped.
func (h *eventHub) broadcast(frame []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for id, c := range h.clients {
		select {
		case c.send <- frame:
			n++
		default:
			h.logger.Warn("dropping slow client", "client", id)
			delete(h.clients, id)
			c.close()
		}
	}
	return n
}

func (h *eventHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *eventHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*eventClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

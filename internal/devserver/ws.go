package devserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// pongWait is how long a browser client may stay silent.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// wsClient is one browser tool subscribed to control-plane events.
type wsClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// wsHub mirrors control-plane frames to WebSocket clients.
type wsHub struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*wsClient
}

func newWSHub(logger *log.Logger) *wsHub {
	return &wsHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			// Local development tool; any origin may subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*wsClient),
	}
}

// ServeHTTP upgrades the request and registers the client.
func (h *wsHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	c := &wsClient{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, clientQueueSize),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "client", c.id)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *wsHub) remove(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Debug("websocket client disconnected", "client", c.id)
	}
}

func (h *wsHub) readPump(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *wsHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *wsHub) broadcast(frame []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for id, c := range h.clients {
		select {
		case c.send <- frame:
			n++
		default:
			h.logger.Warn("dropping slow websocket client", "client", id)
			delete(h.clients, id)
			c.close()
		}
	}
	return n
}

func (h *wsHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*wsClient)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

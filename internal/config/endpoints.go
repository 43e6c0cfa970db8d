package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// portCheckTimeout is the timeout for checking if a port is open.
const portCheckTimeout = 100 * time.Millisecond

// EventAddr returns the control-plane address the client dials.
//
// Returns:
//   - string: host:event_port
func (c *Config) EventAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.EventPort))
}

// FetchURL returns the base URL sources are fetched from.
//
// Returns:
//   - string: http://host:fetch_port
func (c *Config) FetchURL() string {
	return fmt.Sprintf("http://%s", net.JoinHostPort(c.Host, strconv.Itoa(c.FetchPort)))
}

// ReloadURL returns the dev server endpoint that triggers a reload broadcast.
//
// Returns:
//   - string: The reload endpoint URL
func (c *Config) ReloadURL() string {
	return c.FetchURL() + "/__liveview/reload"
}

// EventsURL returns the WebSocket endpoint mirroring control-plane events.
//
// Returns:
//   - string: ws://host:fetch_port/__liveview/events
func (c *Config) EventsURL() string {
	return fmt.Sprintf("ws://%s/__liveview/events", net.JoinHostPort(c.Host, strconv.Itoa(c.FetchPort)))
}

// ListenAddrs returns the dev server's event and fetch bind addresses.
//
// Returns:
//   - string: Event server bind address
//   - string: HTTP server bind address
func (c *Config) ListenAddrs() (string, string) {
	listen := c.Serve.Listen
	if listen == "" {
		listen = DefaultListen
	}
	return net.JoinHostPort(listen, strconv.Itoa(c.EventPort)),
		net.JoinHostPort(listen, strconv.Itoa(c.FetchPort))
}

// IsPortOpen checks if a TCP port is open on the given host.
//
// Parameters:
//   - host: The hostname to check
//   - port: The port number to check
//
// Returns:
//   - bool: True if the port is open and accepting connections
func IsPortOpen(host string, port int) bool {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", address, portCheckTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Package mcp provides the MCP (Model Context Protocol) server implementation.
//
// This package exposes a running LiveView dev server as tools that AI agents
// can call: trigger a reload, inspect server state, and read sources the way
// an app would fetch them.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/revyl/liveview/internal/devserver"
)

// Server wraps the MCP server with dev server tools.
type Server struct {
	mcpServer *mcp.Server
	client    *devserver.Client
	platform  string
	version   string
}

// NewServer creates a new LiveView MCP server.
//
// Parameters:
//   - version: The CLI version string
//   - client: Client for the dev server the tools act on
//   - platform: Default platform override for read_source
//
// Returns:
//   - *Server: A new server instance
func NewServer(version string, client *devserver.Client, platform string) *Server {
	s := &Server{
		client:   client,
		platform: platform,
		version:  version,
	}

	s.mcpServer = mcp.NewServer(
		&mcp.Implementation{
			Name:    "liveview",
			Version: version,
		},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server over stdio.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: Any error that occurred during execution
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

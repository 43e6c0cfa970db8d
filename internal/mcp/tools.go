package mcp

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// boolPtr returns a pointer to a bool value. Used for ToolAnnotations fields.
func boolPtr(b bool) *bool { return &b }

// maxSourceBytes caps how much of a file read_source returns.
const maxSourceBytes = 256 * 1024

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "reload",
		Description: "Broadcast a reload to every app connected to the LiveView dev server. Apps drop their module cache and re-run their entry module.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Reload Apps",
			DestructiveHint: boolPtr(false),
		},
	}, s.handleReload)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "status",
		Description: "Report the LiveView dev server state: running status, connected apps and reload count.",
		Annotations: &mcp.ToolAnnotations{
			Title: "Dev Server Status",
		},
	}, s.handleStatus)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "read_source",
		Description: "Read a source file exactly as an app on the given platform would fetch it, including platform overrides.",
		Annotations: &mcp.ToolAnnotations{
			Title: "Read Source",
		},
	}, s.handleReadSource)
}

type ReloadInput struct{}

type ReloadOutput struct {
	Success  bool   `json:"success"`
	Notified int    `json:"notified"`
	Reloads  int    `json:"reloads"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleReload(ctx context.Context, req *mcp.CallToolRequest, input ReloadInput) (*mcp.CallToolResult, ReloadOutput, error) {
	info, err := s.client.Reload(ctx)
	if err != nil {
		return nil, ReloadOutput{Success: false, Error: err.Error()}, nil
	}
	return nil, ReloadOutput{
		Success:  true,
		Notified: info.Notified,
		Reloads:  info.Reloads,
	}, nil
}

type StatusInput struct{}

type StatusOutput struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Status  string `json:"status,omitempty"`
	Clients int    `json:"clients"`
	Reloads int    `json:"reloads"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleStatus(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
	info, err := s.client.Status(ctx)
	if err != nil {
		return nil, StatusOutput{Success: false, URL: s.client.BaseURL(), Error: err.Error()}, nil
	}
	return nil, StatusOutput{
		Success: true,
		URL:     s.client.BaseURL(),
		Status:  string(info.Status),
		Clients: info.Clients,
		Reloads: info.Reloads,
	}, nil
}

type ReadSourceInput struct {
	Path     string `json:"path" jsonschema:"Path relative to the resources directory, e.g. app.js or lib/util.js."`
	Platform string `json:"platform,omitempty" jsonschema:"Platform override directory to prefer (ios, android, ...). Defaults to the configured platform."`
}

type ReadSourceOutput struct {
	Success   bool   `json:"success"`
	Path      string `json:"path"`
	Platform  string `json:"platform,omitempty"`
	Content   string `json:"content,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleReadSource(ctx context.Context, req *mcp.CallToolRequest, input ReadSourceInput) (*mcp.CallToolResult, ReadSourceOutput, error) {
	if input.Path == "" {
		return nil, ReadSourceOutput{Success: false, Error: "path is required"}, nil
	}

	platform := input.Platform
	if platform == "" {
		platform = s.platform
	}

	data, err := s.client.Source(ctx, input.Path, platform)
	if err != nil {
		return nil, ReadSourceOutput{
			Success:  false,
			Path:     input.Path,
			Platform: platform,
			Error:    fmt.Sprintf("failed to read %s: %v", input.Path, err),
		}, nil
	}

	out := ReadSourceOutput{Success: true, Path: input.Path, Platform: platform}
	if len(data) > maxSourceBytes {
		data = truncateUTF8(data, maxSourceBytes)
		out.Truncated = true
	}
	out.Content = string(data)
	return nil, out, nil
}

// truncateUTF8 cuts data to at most limit bytes without splitting a rune.
func truncateUTF8(data []byte, limit int) []byte {
	if len(data) <= limit {
		return data
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(data[cut]) {
		cut--
	}
	return data[:cut]
}

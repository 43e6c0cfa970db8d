package main

import (
	"github.com/spf13/cobra"

	"github.com/revyl/liveview/internal/devserver"
	"github.com/revyl/liveview/internal/mcp"
)

// mcpCmd is the parent command for MCP operations.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long: `MCP (Model Context Protocol) server commands.

The MCP server lets AI agents drive a running LiveView dev server.

Commands:
  serve  - Start the MCP server over stdio`,
}

// mcpServeCmd starts the MCP server.
var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start MCP server over stdio",
	Long: `Start the LiveView MCP server over stdio.

The server exposes the following tools:
  - reload: Broadcast a reload to connected apps
  - status: Report dev server state
  - read_source: Read a source as an app would fetch it

Example configuration:
  {
    "mcpServers": {
      "liveview": {
        "command": "liveview",
        "args": ["mcp", "serve", "--host", "127.0.0.1"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	registerEndpointFlags(mcpServeCmd.Flags())
	mcpServeCmd.Flags().String("platform", "", "Default platform for read_source")
	mcpCmd.AddCommand(mcpServeCmd)
}

// runMCPServe starts the MCP server. It blocks until the client disconnects.
func runMCPServe(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	server := mcp.NewServer(version, devserver.NewClient(cfg.FetchURL()), cfg.Platform)
	return server.Run(cmd.Context())
}

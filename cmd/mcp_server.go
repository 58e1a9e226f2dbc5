package cmd

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/mj1618/uiautomator-server/internal/server"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start an MCP server exposing the automation tools",
	Long: `Start a Model Context Protocol (MCP) server whose tools locate elements,
tap them, read text, dump the page source and take screenshots. The tools
share one automation session, created on first use.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  uiautomator-server mcp
  uiautomator-server mcp --transport streamable-http --http-port 8080
  uiautomator-server mcp --fixture window_dump.xml`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	mcpCmd.Flags().Int("http-port", 8080, "HTTP port for streamable-http transport")
	mcpCmd.Flags().String("fixture", "", "Serve an in-memory tree loaded from a hierarchy dump")
	mcpCmd.Flags().Duration("implicit-wait", 0, "Implicit wait of the tool session")
}

func runMCP(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("http-port")
	if transport != "stdio" && transport != "streamable-http" {
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}

	prov, err := newProvider(appConfig.Platform.Fixture)
	if err != nil {
		return fmt.Errorf("failed to open platform: %w", err)
	}
	m := server.NewMCP(newServer(prov, appConfig, logger), version)

	if transport == "stdio" {
		return mcpserver.ServeStdio(m)
	}
	return mcpserver.NewStreamableHTTPServer(m).Start(fmt.Sprintf(":%d", port))
}

package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/levelsai/levels/api"
	"github.com/levelsai/levels/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is the name announced to MCP clients
const ServerName = "Levels AI"

// Server represents the MCP server for levels
type Server struct {
	server *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(d Deps) *Server {
	s := server.NewMCPServer(ServerName, api.Version,
		server.WithToolCapabilities(true),
	)

	registerTools(s, d)

	return &Server{
		server: s,
	}
}

// Run serves MCP over stdin and stdout until ctx is done or stdin closes
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves MCP over the given streams
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.server)
	stdio.SetErrorLogger(slog.NewLogLogger(log.Logger.Handler(), slog.LevelError))

	log.Info("Starting MCP server", "name", ServerName, "version", api.Version)
	return stdio.Listen(ctx, in, out)
}

// registerTools registers all available tools with the MCP server
func registerTools(s *server.MCPServer, d Deps) {
	tools := InitTools(d)
	s.AddTools(tools...)
}

func newServerTool(tool mcp.Tool, handler server.ToolHandlerFunc) server.ServerTool {
	return server.ServerTool{
		Tool:    tool,
		Handler: handler,
	}
}

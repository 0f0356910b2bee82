// Package mcp implements the Model Context Protocol server for Tasuki.
//
// The MCP server exposes the same task operations as the HTTP API, allowing
// MCP-compatible AI agents to manage a user's tasks directly. The owning
// user is always taken from the authenticated request context, never from
// tool arguments.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/tools"
)

// Server wraps the MCP server with Tasuki's tool layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	tools     *tools.Tools
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(toolSet *tools.Tools, logger *slog.Logger) *Server {
	s := &Server{
		tools:  toolSet,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"tasuki",
		"0.1.0",
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func (s *Server) registerResources() {
	// tasuki://tasks — the requesting user's current task list.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"tasuki://tasks",
			"My Tasks",
			mcplib.WithResourceDescription("The requesting user's current task list"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleTasksResource,
	)
}

func (s *Server) handleTasksResource(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	userID := ctxutil.UserIDFromContext(ctx)
	if userID == "" {
		return nil, fmt.Errorf("mcp: no authenticated user in context")
	}

	env := s.tools.ListTasks(ctx, userID, tools.ListTasksInput{})
	if !env.Success {
		return nil, fmt.Errorf("mcp: list tasks: %s", env.Error)
	}

	data, err := json.MarshalIndent(env.Data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal tasks: %w", err)
	}

	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      "tasuki://tasks",
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

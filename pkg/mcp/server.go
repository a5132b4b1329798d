// Package mcp exposes the trigger engine to agents over the Model
// Context Protocol: ticking, firing and spawning triggers, enqueueing
// fuses, and reading/writing the shared data context.
package mcp

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/opkit/pkg/ops"
	"github.com/rendis/opkit/pkg/ops/trigger"
)

// ServerDeps holds the dependencies for creating a Server.
type ServerDeps struct {
	Engine *trigger.Engine
	Data   *ops.DataContext
	Refs   *ops.ReferenceContext
	Queue  trigger.FuseQueue // optional; nil disables opkit.fuse
	Logger *slog.Logger
}

// Server wraps an MCP server with opkit-specific tool handlers. All tool
// calls against the shared context pair are serialized through one mutex:
// the engine assumes exclusive access to a pair during a perform tree.
type Server struct {
	engine *trigger.Engine
	data   *ops.DataContext
	refs   *ops.ReferenceContext
	queue  trigger.FuseQueue
	logger *slog.Logger

	mu        sync.Mutex
	mcpServer *server.MCPServer
}

// NewServer creates a Server with all tools registered.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	s := &Server{
		engine: deps.Engine,
		data:   deps.Data,
		refs:   deps.Refs,
		queue:  deps.Queue,
		logger: logger,
	}

	mcpSrv := server.NewMCPServer(
		"opkit",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Opkit is a composable operation-execution engine. Use opkit.tick to evaluate all primary triggers, opkit.fire to fire one trigger by name, opkit.fuse to defer a trigger invocation, and opkit.context_get / opkit.context_set to inspect or seed the shared data context."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: tickTool(), Handler: s.handleTick},
		{Tool: fireTool(), Handler: s.handleFire},
		{Tool: fuseTool(), Handler: s.handleFuse},
		{Tool: contextGetTool(), Handler: s.handleContextGet},
		{Tool: contextSetTool(), Handler: s.handleContextSet},
		{Tool: triggersTool(), Handler: s.handleTriggers},
	}
}

// --- Tool definitions ---

func tickTool() mcp.Tool {
	return mcp.NewTool("opkit.tick",
		mcp.WithDescription("Evaluate every primary trigger once against the shared context"),
	)
}

func fireTool() mcp.Tool {
	return mcp.NewTool("opkit.fire",
		mcp.WithDescription("Spawn a trigger by name and fire it against the shared context"),
		mcp.WithString("trigger", mcp.Required(), mcp.Description("Registered trigger name (primary or secondary)")),
		mcp.WithObject("params", mcp.Description("Values merged into the data context before firing")),
	)
}

func fuseTool() mcp.Tool {
	return mcp.NewTool("opkit.fuse",
		mcp.WithDescription("Enqueue a deferred trigger invocation (a fuse) in the durable queue"),
		mcp.WithString("trigger", mcp.Required(), mcp.Description("Trigger name to fire when the fuse is drained")),
		mcp.WithObject("params", mcp.Description("Parameter values carried by the fuse")),
	)
}

func contextGetTool() mcp.Tool {
	return mcp.NewTool("opkit.context_get",
		mcp.WithDescription("Read the shared data context (all values, or one key)"),
		mcp.WithString("key", mcp.Description("Specific key to read (default: all values and control flags)")),
	)
}

func contextSetTool() mcp.Tool {
	return mcp.NewTool("opkit.context_set",
		mcp.WithDescription("Insert values into the shared data context"),
		mcp.WithObject("values", mcp.Required(), mcp.Description("Key/value pairs to insert")),
	)
}

func triggersTool() mcp.Tool {
	return mcp.NewTool("opkit.triggers",
		mcp.WithDescription("List registered trigger names by registry"),
	)
}

// Package mcp exposes the GZCLP calculator and the stored program state as
// MCP tools and resources.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("GZCLP", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("GZCLP progression tracker. Detect a stage from logged reps, calculate the next session for T1/T2/T3 lifts, and read the stored program and progression state. Weights in state are kilograms; tool output also shows the user's unit."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolDetectStage, Handler: h.detectStage},
		server.ServerTool{Tool: toolCalculateProgression, Handler: h.calculateProgression},
		server.ServerTool{Tool: toolGetProgressionState, Handler: h.getProgressionState},
		server.ServerTool{Tool: toolGetProgram, Handler: h.getProgram},
		server.ServerTool{Tool: toolGetSyncHistory, Handler: h.getSyncHistory},
		server.ServerTool{Tool: toolGetStats, Handler: h.getStats},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resProgram, Handler: h.programResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resProgram = mcp.NewResource(
	"gzclp://program",
	"Program",
	mcp.WithResourceDescription("The four training days with each exercise's tier, current weight and scheme"),
	mcp.WithMIMEType("application/json"),
)

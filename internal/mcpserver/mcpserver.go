// Package mcpserver exposes fixed-form analyses as MCP tools over stdio.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/panbanda/fortmap/internal/service/analysis"
)

// Server wraps the MCP server and registers all fortmap analysis tools.
type Server struct {
	server *mcp.Server
	svc    *analysis.Service
}

// NewServer creates a new MCP server with all fortmap tools registered.
// Tools share svc, and with it the dialect and result cache; a nil svc
// uses the discovered configuration.
func NewServer(version string, svc *analysis.Service) *Server {
	if version == "" {
		version = "dev"
	}
	if svc == nil {
		svc = analysis.New()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fortmap",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, svc: svc}
	s.registerTools()
	s.registerPrompts()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

const (
	toolCallGraph  = "analyze_call_graph"
	toolSignatures = "analyze_signatures"
	toolBlocks     = "analyze_blocks"
)

// tools lists every registered tool in registration order.
var tools = []struct {
	name     string
	describe func() string
}{
	{toolCallGraph, describeCallGraph},
	{toolSignatures, describeSignatures},
	{toolBlocks, describeBlocks},
}

func toolDescription(name string) string {
	for _, t := range tools {
		if t.name == name {
			return t.describe()
		}
	}
	return ""
}

// registerTools adds all fortmap tools to the server. Every name in tools
// must get a handler here.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolCallGraph,
		Description: toolDescription(toolCallGraph),
	}, s.handleAnalyzeCallGraph)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolSignatures,
		Description: toolDescription(toolSignatures),
	}, s.handleAnalyzeSignatures)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        toolBlocks,
		Description: toolDescription(toolBlocks),
	}, s.handleAnalyzeBlocks)
}

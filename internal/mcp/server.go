package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/regqa/internal/answer"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

// Version is set via ldflags at build time.
var Version = "dev"

// KnowledgeBase is the part of the orchestrator exposed as MCP tools.
type KnowledgeBase interface {
	Query(ctx context.Context, question string) (*answer.Answer, error)
	Search(ctx context.Context, question string, k int) ([]vectordb.SearchResult, error)
	ListDocuments(ctx context.Context) ([]string, error)
}

// Server wraps an MCP server that exposes the regulatory documents as tools.
type Server struct {
	kb  KnowledgeBase
	mcp *server.MCPServer
}

// NewServer creates a new MCP server backed by kb.
func NewServer(kb KnowledgeBase) *Server {
	s := &Server{kb: kb}

	s.mcp = server.NewMCPServer(
		"regqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askDocumentsTool, s.handleAskDocuments)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
	s.mcp.AddTool(listDocumentsTool, s.handleListDocuments)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

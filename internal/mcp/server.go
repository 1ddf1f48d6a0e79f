package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ziadkadry99/brandchat/internal/audit"
	"github.com/ziadkadry99/brandchat/internal/corpus"
	"github.com/ziadkadry99/brandchat/internal/retrieval"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Backend answers and ranks queries. *retrieval.Orchestrator satisfies it.
type Backend interface {
	AnswerQuery(ctx context.Context, query string) (*retrieval.Result, error)
	Rank(ctx context.Context, query string) ([]retrieval.ScoredDocument, error)
	Corpus() *corpus.Corpus
}

// QueryLogger records ask_brand outcomes. *audit.Store satisfies it.
type QueryLogger interface {
	Log(ctx context.Context, entry audit.Entry) error
}

// Server exposes the brand knowledge to MCP clients.
type Server struct {
	backend Backend
	queries QueryLogger
	logger  *zap.Logger
	mcp     *server.MCPServer
}

// NewServer creates an MCP server. queries and logger may be nil.
func NewServer(backend Backend, queries QueryLogger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		backend: backend,
		queries: queries,
		logger:  logger.Named("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"brandchat",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcp.AddTool(askBrandTool, s.handleAskBrand)
	s.mcp.AddTool(searchKnowledgeTool, s.handleSearchKnowledge)
	s.mcp.AddTool(getDocumentTool, s.handleGetDocument)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

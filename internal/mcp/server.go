package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/repoctx-mcp/internal/answerer"
	"github.com/dshills/repoctx-mcp/internal/embedder"
	"github.com/dshills/repoctx-mcp/internal/indexer"
	"github.com/dshills/repoctx-mcp/internal/searcher"
	"github.com/dshills/repoctx-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "repoctx-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.repoctx/indices"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	answerer *answerer.Answerer
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string) (*Server, error) {
	return NewServerWithLogger(dbPath, slog.Default())
}

// NewServerWithLogger creates an MCP server with a custom logger
func NewServerWithLogger(dbPath string, logger *slog.Logger) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".repoctx", "indices")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// All indexed repositories share one database file
	dbFile := filepath.Join(dbPath, "repoctx.db")

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Create embedder (shared between indexer and searcher so embeddings
	// cached during indexing are available at query time)
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	// Create indexer
	idx := indexer.NewWithLogger(store, emb, logger)

	// Create searcher
	srch := searcher.NewSearcherWithLogger(store, emb, logger)

	// Create answerer. A missing chat provider is not fatal: ingestion and
	// status still work, ask_codebase reports the configuration problem.
	var ans *answerer.Answerer
	chat, err := answerer.NewChatFromEnv()
	if err != nil {
		logger.Warn("chat provider not configured, ask_codebase disabled", "error", err)
	} else {
		ans = answerer.NewWithLogger(srch, chat, logger)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  store,
		indexer:  idx,
		searcher: srch,
		answerer: ans,
		logger:   logger,
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	// Register ingest_repository tool
	s.mcp.AddTool(ingestRepositoryTool(), s.handleIngestRepository)

	// Register ask_codebase tool
	s.mcp.AddTool(askCodebaseTool(), s.handleAskCodebase)

	// Register get_status tool
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}

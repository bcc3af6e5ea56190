package mcp

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/ctxrank/internal/indexer"
	"github.com/dshills/ctxrank/internal/workspace"
)

const (
	// ServerName is the MCP server name
	ServerName = "ctxrank"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	ws     *workspace.Workspace
	logger *slog.Logger

	mu          sync.Mutex
	root        string
	stopWatch   context.CancelFunc
	watchCorpus indexer.DirCorpus
}

// NewServer creates a new MCP server over ws
func NewServer(ws *workspace.Workspace, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			ServerVersion,
			server.WithToolCapabilities(false),
		),
		ws:     ws,
		logger: logger,
	}
	s.registerTools()

	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		s.unwatch()
		_ = s.ws.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCorpusTool(), s.handleIndexCorpus)
	s.mcp.AddTool(cancelIndexTool(), s.handleCancelIndex)
	s.mcp.AddTool(clearIndexTool(), s.handleClearIndex)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(suggestRelatedTool(), s.handleSuggestRelated)
}

// watch rebuilds corpus on change until unwatch or the next index_corpus
func (s *Server) watch(corpus indexer.DirCorpus, opts indexer.BuildOptions) {
	s.unwatch()

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.stopWatch = cancel
	s.watchCorpus = corpus
	s.mu.Unlock()

	go func() {
		err := s.ws.Indexer.Watch(ctx, corpus, opts, s.ws.Config.Indexer.Debounce())
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("watch stopped", "root", corpus.Root, "error", err)
		}
	}()
}

// unwatch stops the current watch, if any
func (s *Server) unwatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch == nil {
		return false
	}
	s.stopWatch()
	s.stopWatch = nil
	s.watchCorpus = indexer.DirCorpus{}
	return true
}

func (s *Server) watching() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watchCorpus.Root
}

func (s *Server) setRoot(root string) {
	s.mu.Lock()
	s.root = root
	s.mu.Unlock()
}

func (s *Server) currentRoot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.root
}

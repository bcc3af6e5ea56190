package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/ctxrank/internal/indexer"
	"github.com/dshills/ctxrank/internal/relevance"
	"github.com/dshills/ctxrank/internal/workspace"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeCorpusNotFound = -32001 // Path is not a readable directory
	ErrorCodeEmptyQuery     = -32004 // Nothing to search with
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// handleIndexCorpus handles the index_corpus tool invocation
func (s *Server) handleIndexCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	corpus, err := s.ws.Corpus(path)
	if err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, workspace.ErrRootNotFound) || errors.Is(err, workspace.ErrNotDirectory) {
			code = ErrorCodeCorpusNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	corpus.IncludeTests = getBoolDefault(args, "include_tests", corpus.IncludeTests)
	corpus.IncludeVendor = getBoolDefault(args, "include_vendor", corpus.IncludeVendor)
	if _, present := args["extensions"]; present {
		extensions, err := getStringSlice(args, "extensions")
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
				"param": "extensions",
			})
		}
		corpus.Extensions = extensions
	}

	wait := getBoolDefault(args, "wait", false)
	watch := getBoolDefault(args, "watch", false)
	opts := s.ws.BuildOptions()

	s.unwatch()
	s.setRoot(path)

	response := map[string]interface{}{
		"path":     path,
		"watching": watch,
	}

	if wait {
		stats, err := s.ws.Indexer.Build(ctx, corpus, opts)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["run_id"] = stats.RunID
		response["status"] = stats.Status
		response["statistics"] = statisticsMap(stats)
	} else {
		runID, err := s.ws.Indexer.Start(ctx, corpus, opts)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "indexing failed to start", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["run_id"] = runID
		response["status"] = indexer.StatusRunning
		response["message"] = "Indexing started. Use get_status to follow progress."
	}

	if watch {
		s.watch(corpus, opts)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCancelIndex handles the cancel_index tool invocation
func (s *Server) handleCancelIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stoppedWatch := s.unwatch()
	cancelled := s.ws.Indexer.Cancel()

	response := map[string]interface{}{
		"cancelled":     cancelled,
		"watch_stopped": stoppedWatch,
		"message":       s.ws.Indexer.ProgressText(),
	}
	if !cancelled {
		response["message"] = "No indexing run in progress."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearIndex handles the clear_index tool invocation
func (s *Server) handleClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.unwatch()
	s.ws.Indexer.Clear()
	s.setRoot("")

	response := map[string]interface{}{
		"cleared": true,
		"message": "Index cleared. The embedding cache is kept, so re-indexing is cheap.",
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	svc := s.ws.Indexer
	progress := svc.Progress()
	idx := svc.Index()

	run := map[string]interface{}{
		"run_id":              progress.RunID,
		"status":              progress.Status,
		"phase":               progress.Phase,
		"documents_total":     progress.DocumentsTotal,
		"documents_processed": progress.DocumentsProcessed,
		"documents_skipped":   progress.DocumentsSkipped,
		"chunks_total":        progress.ChunksTotal,
		"chunks_embedded":     progress.ChunksEmbedded,
		"cache_hits":          progress.CacheHits,
	}
	if !progress.StartTime.IsZero() {
		run["started_at"] = progress.StartTime.Format(time.RFC3339)
	}
	if !progress.EndTime.IsZero() {
		run["finished_at"] = progress.EndTime.Format(time.RFC3339)
	}

	response := map[string]interface{}{
		"message": svc.ProgressText(),
		"run":     run,
		"index": map[string]interface{}{
			"root":      s.currentRoot(),
			"documents": len(idx.Documents()),
			"chunks":    idx.Len(),
			"watching":  s.watching(),
		},
		"embedder": map[string]interface{}{
			"provider":  s.ws.Embedder.Provider(),
			"model":     s.ws.Embedder.Model(),
			"dimension": s.ws.Embedder.Dimension(),
		},
		"cache_entries": svc.Cache().Len(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	include, err := getStringSlice(args, "include")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{"param": "include"})
	}

	limit, err := getLimit(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.ws.Facade.Search(ctx, query, include)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(resultsMap(resp, limit))), nil
}

// handleSuggestRelated handles the suggest_related tool invocation
func (s *Server) handleSuggestRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	prompt := getStringDefault(args, "prompt", "")
	selected, err := getStringSlice(args, "selected")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{"param": "selected"})
	}
	if prompt == "" && len(selected) == 0 {
		return nil, newMCPError(ErrorCodeEmptyQuery, "prompt or selected is required", map[string]interface{}{
			"param":  "prompt",
			"reason": "nothing to search with",
		})
	}

	limit, err := getLimit(args)
	if err != nil {
		return nil, err
	}

	resp, err := s.ws.Facade.Suggest(ctx, prompt, selected)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "suggestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(resultsMap(resp, limit))), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func statisticsMap(stats *indexer.Statistics) map[string]interface{} {
	m := map[string]interface{}{
		"documents_indexed": stats.DocumentsIndexed,
		"documents_skipped": stats.DocumentsSkipped,
		"chunks_total":      stats.ChunksTotal,
		"chunks_embedded":   stats.ChunksEmbedded,
		"cache_hits":        stats.CacheHits,
		"batches_failed":    stats.BatchesFailed,
		"entries_pruned":    stats.EntriesPruned,
		"duration_ms":       stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		// Include first few errors
		errorCount := len(stats.ErrorMessages)
		if errorCount > 5 {
			m["errors"] = stats.ErrorMessages[:5]
			m["error_count"] = errorCount
		} else {
			m["errors"] = stats.ErrorMessages
		}
	}
	return m
}

func resultsMap(resp *relevance.Response, limit int) map[string]interface{} {
	results := resp.Results
	if len(results) > limit {
		results = results[:limit]
	}

	out := make([]map[string]interface{}, len(results))
	for i, r := range results {
		out[i] = map[string]interface{}{
			"rank":   i + 1,
			"path":   r.Path,
			"score":  math.Round(r.Score*1000) / 1000,
			"chunks": r.Chunks,
		}
	}

	return map[string]interface{}{
		"status":  resp.Status,
		"total":   len(resp.Results),
		"results": out,
	}
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	switch val := args[key].(type) {
	case nil:
		return nil, nil
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be an array of strings", key)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}
}

func getLimit(args map[string]interface{}) (int, error) {
	limit := getIntDefault(args, "limit", defaultLimit)
	if limit < 1 || limit > maxLimit {
		return 0, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// Package mcp implements the Model Context Protocol (MCP) server for ctxrank.
//
// The MCP server exposes six tools to AI coding assistants:
//   - index_corpus: Index a directory, optionally waiting or watching for changes
//   - cancel_index: Cancel the running build and stop watching
//   - clear_index: Drop every indexed vector
//   - get_status: Report build progress and index size
//   - search: Rank indexed documents against a query
//   - suggest_related: Suggest documents related to a prompt and a selection
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started with:
//
//	ctxrank serve
//
// It listens on stdin and writes responses to stdout; logs go to stderr.
//
// # Tool: index_corpus
//
//	Request:
//	{
//	  "name": "index_corpus",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "extensions": [".go", ".md"],
//	    "wait": false,
//	    "watch": true
//	  }
//	}
//
//	Response:
//	{
//	  "path": "/path/to/project",
//	  "run_id": "5d0c0f3e-...",
//	  "status": "running",
//	  "watching": true,
//	  "message": "Indexing started. Use get_status to follow progress."
//	}
//
// With "wait": true the response carries the run's statistics instead.
// Starting a build cancels the one in flight.
//
// # Tool: get_status
//
//	Response:
//	{
//	  "message": "Indexing: 12/40 documents, 30/120 chunks embedded (45 cached)",
//	  "run": {"status": "running", "phase": "embedding", ...},
//	  "index": {"root": "/path/to/project", "documents": 12, "chunks": 75},
//	  "embedder": {"provider": "local", "model": "local-hash-384", "dimension": 384},
//	  "cache_entries": 75
//	}
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {"query": "where is the config parsed", "limit": 5}
//	}
//
//	Response:
//	{
//	  "status": "Found 3 relevant documents.",
//	  "total": 3,
//	  "results": [
//	    {"rank": 1, "path": "internal/config/config.go", "score": 1.412, "chunks": ["..."]}
//	  ]
//	}
//
// # Tool: suggest_related
//
// Takes a prompt, a list of selected document paths, or both. Selected
// documents are never returned:
//
//	{
//	  "name": "suggest_related",
//	  "arguments": {"prompt": "add retries", "selected": ["internal/embedder/providers.go"]}
//	}
//
// # Error Handling
//
// Tool errors are returned as *MCPError with JSON-RPC codes:
//
//	-32602  Invalid parameters (missing path, bad limit, wrong argument types)
//	-32603  Internal error (corpus could not be enumerated, provider failure)
//	-32001  Path does not exist or is not a directory
//	-32004  Nothing to search with (empty query, no prompt and no selection)
//
// An empty index or a query that matches nothing is not an error: the
// response has no results and a status message saying why.
package mcp

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func stringArray(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items": map[string]interface{}{
			"type": "string",
		},
	}
}

func limitProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of documents to return (1-100)",
		"default":     defaultLimit,
		"minimum":     1,
		"maximum":     maxLimit,
	}
}

// indexCorpusTool returns the tool definition for index_corpus
func indexCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_corpus",
		Description: "Index a directory of documents for semantic search. Replaces any running build.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the directory to index",
				},
				"extensions": stringArray("Only index files with these suffixes, e.g. [\".go\", \".md\"]. Empty indexes every text file"),
				"include_tests": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index *_test.go files",
				},
				"include_vendor": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, index vendor/ directories",
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, return only when the build has finished",
					"default":     false,
				},
				"watch": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, rebuild automatically when files under path change",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// cancelIndexTool returns the tool definition for cancel_index
func cancelIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_index",
		Description: "Cancel the running index build and stop watching. Vectors already computed are kept.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// clearIndexTool returns the tool definition for clear_index
func clearIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_index",
		Description: "Drop every indexed vector. The embedding cache is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report indexing progress, index size and the embedding provider in use",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Rank indexed documents against a natural language or keyword query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"include": stringArray("Restrict results to these document paths, relative to the indexed root"),
				"limit":   limitProperty(),
			},
			Required: []string{"query"},
		},
	}
}

// suggestRelatedTool returns the tool definition for suggest_related
func suggestRelatedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "suggest_related",
		Description: "Suggest documents related to a prompt and to documents already selected. Selected documents are never suggested.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prompt": map[string]interface{}{
					"type":        "string",
					"description": "What the user is working on",
				},
				"selected": stringArray("Document paths already in context, relative to the indexed root"),
				"limit":    limitProperty(),
			},
		},
	}
}

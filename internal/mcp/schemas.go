package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestRepositoryTool returns the tool definition for ingest_repository
func ingestRepositoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_repository",
		Description: "Clone or read a repository, chunk its source files, and index them for question answering",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "GitHub repository URL (https://github.com/owner/repo) or path to a local directory",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-index all files ignoring content hashes (full rebuild)",
					"default":     false,
				},
			},
			Required: []string{"source"},
		},
	}
}

// askCodebaseTool returns the tool definition for ask_codebase
func askCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ask_codebase",
		Description: "Ask a natural-language question about an indexed codebase and get an answer grounded in its code, with file and line citations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question about the codebase (e.g. 'How is authentication implemented?'). 'Where do I start?' returns a guided codebase overview.",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of code chunks to retrieve as context (1-20)",
					"default":     5,
					"minimum":     1,
					"maximum":     20,
				},
				"repo": map[string]interface{}{
					"type":        "string",
					"description": "Repository name (owner/repo) to scope the question to; omit to search all indexed repos",
				},
			},
			Required: []string{"question"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query indexing status and statistics, for one repository or the whole index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"repo": map[string]interface{}{
					"type":        "string",
					"description": "Repository name (owner/repo) for detailed status; omit to list all indexed repositories",
				},
			},
		},
	}
}

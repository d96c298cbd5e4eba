package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	searchToolName    = "engram_search"
	searchDescription = "Recall stored memories relevant to a query. Uses embedding similarity when an embedder is configured and falls back to keyword matching otherwise. Use this at the start of a conversation to recover what is known about the user."
)

// defaultLimit caps search results when the caller does not ask for a
// specific count.
const defaultLimit = 5

// SearchInput represents the input arguments for the engram_search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search text to recall memories for"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of memories to return (default: 5)"`
}

// SearchOutput represents the output of the search tool.
type SearchOutput struct {
	Query    string          `json:"query"`
	Count    int             `json:"count"`
	Memories []memory.Record `json:"memories"`
}

// handleSearch processes a recall request.
func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	logger := s.config.Logger

	if input.Query == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "query is required"},
			},
		}, SearchOutput{}, nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	logger.Debug("MCP search request",
		"query", input.Query,
		"limit", limit,
	)

	records, err := s.config.Manager.SearchSemantic(ctx, input.Query, limit)
	if err != nil {
		logger.Error("MCP search failed", "query", input.Query, "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Search failed: %v", err)},
			},
		}, SearchOutput{}, nil
	}

	if records == nil {
		records = []memory.Record{}
	}

	output := SearchOutput{
		Query:    input.Query,
		Count:    len(records),
		Memories: records,
	}

	// Serialize the structured output as JSON for the text field
	// Per MCP spec: tools returning structured content should also return
	// serialized JSON in a TextContent block for backwards compatibility
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		logger.Error("failed to marshal search output", "error", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize results: %v", err)},
			},
		}, SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

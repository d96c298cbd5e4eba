package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	statsToolName    = "engram_stats"
	statsDescription = "Report totals for the memory store: how many memories exist, the count per type, and the average importance."
)

// StatsInput represents the (empty) input arguments for the engram_stats tool.
type StatsInput struct{}

// StatsOutput represents the structured output of a stats request.
type StatsOutput struct {
	Stats memory.Stats `json:"stats"`
}

// handleStats reports store totals via MCP.
func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.config.Manager.Stats(ctx)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to load stats: %v", err)},
			},
		}, StatsOutput{}, nil
	}

	output := StatsOutput{Stats: stats}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize result: %v", err)},
			},
		}, StatsOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	rememberToolName    = "engram_remember"
	rememberDescription = "Store a memory about the user. Use this whenever the conversation reveals something durable: a fact, a preference, an event, a milestone, or an explicit request. Stored memories persist across sessions and surface through engram_search."
)

// RememberInput represents the input arguments for the engram_remember tool.
type RememberInput struct {
	Content         string   `json:"content" jsonschema:"the memory text to store"`
	Type            string   `json:"type,omitempty" jsonschema:"memory type: fact, preference, event, milestone, reflection, request or pattern (default: fact)"`
	Context         string   `json:"context,omitempty" jsonschema:"where the memory came from"`
	Importance      *float64 `json:"importance,omitempty" jsonschema:"importance from 1 to 10 (default: 5)"`
	EmotionalWeight *float64 `json:"emotional_weight,omitempty" jsonschema:"emotional weight from -5 to 5 (default: 0)"`
	Tags            []string `json:"tags,omitempty" jsonschema:"labels for later filtering"`
	RelatedUser     string   `json:"related_user,omitempty" jsonschema:"the person this memory is about"`
}

// RememberOutput represents the structured output of a stored memory.
type RememberOutput struct {
	Memory memory.Record `json:"memory"`
}

// handleRemember stores a new memory via MCP.
func (s *Server) handleRemember(ctx context.Context, _ *mcp.CallToolRequest, input RememberInput) (*mcp.CallToolResult, RememberOutput, error) {
	if input.Content == "" {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: "content is required"},
			},
		}, RememberOutput{}, nil
	}

	recType := memory.Type(input.Type)
	if recType != "" && !recType.Valid() {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("unknown memory type: %q", input.Type)},
			},
		}, RememberOutput{}, nil
	}

	rec, err := s.config.Manager.RememberWithEmbedding(ctx, input.Content, recType, engram.RememberOpts{
		Context:         input.Context,
		Importance:      input.Importance,
		EmotionalWeight: input.EmotionalWeight,
		Tags:            input.Tags,
		RelatedUser:     input.RelatedUser,
	})
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to store memory: %v", err)},
			},
		}, RememberOutput{}, nil
	}

	output := RememberOutput{Memory: rec}

	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Failed to serialize result: %v", err)},
			},
		}, RememberOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

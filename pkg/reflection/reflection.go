// Package reflection composes reflection records: the model reads a window
// of recent memories and writes back one insight about the user, stored as
// a regular record of type reflection.
package reflection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/memory"
)

// DefaultSources is how many recent memories feed a reflection when the
// caller does not say otherwise.
const DefaultSources = 20

// ErrNoMemories is returned when the store holds nothing to reflect on.
var ErrNoMemories = errors.New("no memories to reflect on")

// Composer turns stored memories into reflection records.
type Composer struct {
	driver memory.Driver
	call   llm.CallFunc
}

// NewComposer creates a Composer over the given store and model.
func NewComposer(driver memory.Driver, call llm.CallFunc) *Composer {
	return &Composer{
		driver: driver,
		call:   call,
	}
}

// Compose selects up to limit recent memories, prompts the model for one
// reflection, and stores it. Model or parse failures return an error and
// write nothing. Reading the sources does not count as an access.
func (c *Composer) Compose(ctx context.Context, limit int) (memory.Record, error) {
	if limit <= 0 {
		limit = DefaultSources
	}

	records, err := c.driver.All(ctx)
	if err != nil {
		return memory.Record{}, fmt.Errorf("loading memories: %w", err)
	}

	sources := selectSources(records, limit)
	if len(sources) == 0 {
		return memory.Record{}, ErrNoMemories
	}

	response, err := c.call(ctx, buildPrompt(sources))
	if err != nil {
		return memory.Record{}, fmt.Errorf("llm call: %w", err)
	}

	parsed, err := parseReflection(response)
	if err != nil {
		return memory.Record{}, fmt.Errorf("parse response: %w", err)
	}

	draft := memory.Draft{
		Type:       memory.TypeReflection,
		Content:    parsed.Content,
		Context:    fmt.Sprintf("reflection over %d memories", len(sources)),
		Importance: parsed.Importance,
		Tags:       parsed.Tags,
	}

	record, err := c.driver.Create(ctx, draft)
	if err != nil {
		return memory.Record{}, fmt.Errorf("storing reflection: %w", err)
	}

	return record, nil
}

// selectSources picks the most recent non-reflection records, returned
// oldest first so the prompt reads chronologically. Reflections are
// excluded as sources so reflections never feed on themselves.
func selectSources(records []memory.Record, limit int) []memory.Record {
	sources := make([]memory.Record, 0, len(records))
	for _, record := range records {
		if record.Type == memory.TypeReflection {
			continue
		}
		sources = append(sources, record)
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].CreatedAt.After(sources[j].CreatedAt)
	})
	if len(sources) > limit {
		sources = sources[:limit]
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i].CreatedAt.Before(sources[j].CreatedAt)
	})

	return sources
}

func buildPrompt(sources []memory.Record) string {
	var b strings.Builder
	b.WriteString("These are memories you hold about one person, oldest first:\n\n")
	for _, record := range sources {
		fmt.Fprintf(&b, "- [%s] %s (importance %d)\n", record.Type, record.Content, record.Importance)
	}
	b.WriteString("\nWrite one reflection: a single insight that connects or summarizes what these memories say about this person.\nReturn ONLY valid JSON with these fields:\n\n{\n  \"content\": \"the reflection, one or two sentences\",\n  \"importance\": 1-10,\n  \"tags\": [\"up to three short lowercase tags\"]\n}\n")
	return b.String()
}

type parsedReflection struct {
	Content    string   `json:"content"`
	Importance *float64 `json:"importance"`
	Tags       []string `json:"tags"`
}

func parseReflection(response string) (*parsedReflection, error) {
	// Extract JSON from the response (may be wrapped in markdown code blocks)
	jsonStr := response
	if idx := strings.Index(response, "{"); idx >= 0 {
		endIdx := strings.LastIndex(response, "}")
		if endIdx > idx {
			jsonStr = response[idx : endIdx+1]
		}
	}

	var parsed parsedReflection
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal reflection JSON: %w", err)
	}
	if strings.TrimSpace(parsed.Content) == "" {
		return nil, errors.New("reflection content is empty")
	}

	return &parsed, nil
}

// Package recall ranks stored memories by relevance to a query string.
//
// Two strategies exist. Keyword matching tokenizes the query and scores
// records by importance and access history; it always produces something
// for a non-empty store. Semantic matching embeds the query and scores
// stored vectors by cosine similarity; it needs an embedder and records
// that carry embeddings.
//
// A [Chain] runs strategies in order and returns the first non-empty
// result, so semantic recall degrades to keyword recall when no embedder
// is configured, embedding fails, or nothing clears the similarity floor.
package recall

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

// Strategy produces records relevant to a query, best first. A strategy
// that cannot contribute returns an empty result with a nil error so a
// chain can fall through to the next one; errors abort the whole lookup.
type Strategy interface {
	// Name identifies the strategy in logs.
	Name() string

	// Find returns up to limit relevant records, most relevant first.
	// A non-positive limit means no cap.
	Find(ctx context.Context, text string, limit int) ([]memory.Record, error)
}

// Chain consults strategies in order and returns the first non-empty
// result.
type Chain struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewChain creates a chain over the given strategies.
func NewChain(log *slog.Logger, strategies ...Strategy) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	return &Chain{strategies: strategies, log: log}
}

// Find runs each strategy until one yields records.
func (c *Chain) Find(ctx context.Context, text string, limit int) ([]memory.Record, error) {
	for _, s := range c.strategies {
		recs, err := s.Find(ctx, text, limit)
		if err != nil {
			return nil, err
		}
		if len(recs) > 0 {
			return recs, nil
		}
		c.log.Debug("recall strategy yielded nothing", "strategy", s.Name())
	}
	return nil, nil
}

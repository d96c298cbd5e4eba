package recall

import (
	"context"
	"log/slog"
	"sort"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

// DefaultMinSimilarity is the cosine similarity floor. Matches at or
// below it are discarded as noise.
const DefaultMinSimilarity = 0.3

// Semantic ranks records by cosine similarity between the query embedding
// and stored record embeddings. It contributes nothing (empty result, nil
// error) when no embedder is configured, the embedder fails, or no stored
// vector clears the floor; a chain then falls through to the next
// strategy. Embedding failures are deliberately swallowed here and never
// reach the caller. Semantic hits do not count as accesses.
type Semantic struct {
	driver        memory.Driver
	embedder      embeddings.Embedder
	minSimilarity float64
	log           *slog.Logger
}

// SemanticConfig holds configuration for the semantic strategy.
type SemanticConfig struct {
	// MinSimilarity discards matches at or below this score.
	// Zero means DefaultMinSimilarity.
	MinSimilarity float64

	// Logger records fallback decisions. Nil disables logging.
	Logger *slog.Logger
}

// NewSemantic creates the semantic strategy. The embedder may be nil, in
// which case the strategy never contributes.
func NewSemantic(driver memory.Driver, embedder embeddings.Embedder, cfg SemanticConfig) *Semantic {
	min := cfg.MinSimilarity
	if min == 0 {
		min = DefaultMinSimilarity
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Semantic{
		driver:        driver,
		embedder:      embedder,
		minSimilarity: min,
		log:           log,
	}
}

var _ Strategy = (*Semantic)(nil)

// Name identifies the strategy in logs.
func (s *Semantic) Name() string { return "semantic" }

// Find returns up to limit records whose embeddings are closest to the
// query embedding.
func (s *Semantic) Find(ctx context.Context, text string, limit int) ([]memory.Record, error) {
	if s.embedder == nil {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.log.Debug("query embedding failed, deferring to next strategy", "error", err)
		return nil, nil
	}

	recs, err := s.driver.All(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec   memory.Record
		score float64
	}
	var matched []scored
	for _, rec := range recs {
		if len(rec.Embedding) == 0 {
			continue
		}
		score := embeddings.CosineSimilarity(queryVec, rec.Embedding)
		if score <= s.minSimilarity {
			continue
		}
		matched = append(matched, scored{rec: rec, score: score})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]memory.Record, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.rec)
	}
	return out, nil
}

package recall

import (
	"context"
	"log/slog"
	"sort"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/vector"
)

// IndexedSemantic is the Semantic strategy narrowed through a vector index.
// The index picks the candidate set; scores and the similarity floor still
// come from the stored embeddings, so results match the unindexed strategy
// whenever the index mirrors the store. Index trouble is treated like a
// failed embedding: the strategy yields nothing and the chain moves on.
type IndexedSemantic struct {
	driver        memory.Driver
	index         vector.Driver
	embedder      embeddings.Embedder
	minSimilarity float64
	log           *slog.Logger
}

// NewIndexedSemantic builds the strategy over driver and index.
func NewIndexedSemantic(driver memory.Driver, index vector.Driver, embedder embeddings.Embedder, cfg SemanticConfig) *IndexedSemantic {
	minSim := cfg.MinSimilarity
	if minSim == 0 {
		minSim = DefaultMinSimilarity
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &IndexedSemantic{
		driver:        driver,
		index:         index,
		embedder:      embedder,
		minSimilarity: minSim,
		log:           log,
	}
}

func (s *IndexedSemantic) Name() string { return "semantic-indexed" }

// Find embeds the query, asks the index for the closest candidates, then
// rescores them from the store. Results are not counted as accesses.
func (s *IndexedSemantic) Find(ctx context.Context, text string, limit int) ([]memory.Record, error) {
	if s.embedder == nil {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.log.Debug("query embedding failed", "error", err)
		return nil, nil
	}

	hits, err := s.index.Query(ctx, queryVec, limit)
	if err != nil {
		s.log.Debug("vector index query failed", "error", err)
		return nil, nil
	}
	if len(hits) == 0 {
		return nil, nil
	}

	wanted := make(map[string]bool, len(hits))
	for _, hit := range hits {
		wanted[hit.ID] = true
	}

	records, err := s.driver.All(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec   memory.Record
		score float64
	}
	var matches []scored
	for _, rec := range records {
		if !wanted[rec.ID] || len(rec.Embedding) == 0 {
			continue
		}
		score := embeddings.CosineSimilarity(queryVec, rec.Embedding)
		if score > s.minSimilarity {
			matches = append(matches, scored{rec: rec, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]memory.Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.rec)
	}
	return out, nil
}

var _ Strategy = (*IndexedSemantic)(nil)

package recall

import (
	"context"
	"sort"
	"strings"

	"github.com/papercomputeco/engram/pkg/memory"
)

// ImportanceFloor is the minimum importance used when a query yields no
// usable tokens: with nothing to match on, keyword recall surfaces what
// matters most instead.
const ImportanceFloor = 6

// Keyword ranks records by token overlap. A record qualifies when its
// content or context contains any query token as a substring; candidates
// are ordered by importance*2 + accessCount so that frequently recalled
// memories outrank rarely used ones of similar weight. Returned records
// count as accessed.
type Keyword struct {
	driver memory.Driver
}

// NewKeyword creates the keyword strategy over the given store.
func NewKeyword(driver memory.Driver) *Keyword {
	return &Keyword{driver: driver}
}

var _ Strategy = (*Keyword)(nil)

// Name identifies the strategy in logs.
func (k *Keyword) Name() string { return "keyword" }

// Find returns up to limit records relevant to text.
func (k *Keyword) Find(ctx context.Context, text string, limit int) ([]memory.Record, error) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return k.driver.Query(ctx, memory.Query{
			MinImportance: ImportanceFloor,
			Limit:         limit,
		})
	}

	recs, err := k.driver.All(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		rec   memory.Record
		score int
	}
	var matched []scored
	for _, rec := range recs {
		if !containsAny(rec, tokens) {
			continue
		}
		matched = append(matched, scored{
			rec:   rec,
			score: rec.Importance*2 + rec.AccessCount,
		})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].score > matched[j].score
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]memory.Record, 0, len(matched))
	ids := make([]string, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.rec)
		ids = append(ids, m.rec.ID)
	}
	if err := k.driver.Touch(ctx, ids); err != nil {
		return nil, err
	}
	return out, nil
}

func containsAny(rec memory.Record, tokens []string) bool {
	content := strings.ToLower(rec.Content)
	context := strings.ToLower(rec.Context)
	for _, tok := range tokens {
		if strings.Contains(content, tok) || strings.Contains(context, tok) {
			return true
		}
	}
	return false
}

package upkeep

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/papercomputeco/engram/pkg/memory"
)

// DefaultThreshold is the similarity at which two records count as
// duplicates.
const DefaultThreshold = 0.8

// DedupOptions tune a dedup pass. Zero values take the defaults.
type DedupOptions struct {
	// Threshold is the minimum similarity for a pair to merge.
	Threshold float64
}

// Duplicate is a candidate pair found by FindDuplicates. A was created
// before B.
type Duplicate struct {
	A     memory.Record
	B     memory.Record
	Score float64
}

// Similarity scores two texts by the overlap of their significant words:
// lowercase, punctuation stripped, words longer than two characters, compared
// as sets. Two empty sets score 1, one empty set scores 0.
func Similarity(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 && len(wb) == 0 {
		return 1
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	shared := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(wa)+len(wb))
}

// FindDuplicates reports every record pair at or above threshold without
// changing the store. Pairs are ordered by creation time. A threshold of 0
// means DefaultThreshold.
func FindDuplicates(ctx context.Context, driver memory.Driver, threshold float64) ([]Duplicate, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	records, err := driver.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan memories for duplicates: %w", err)
	}

	var pairs []Duplicate
	for i := range records {
		for j := i + 1; j < len(records); j++ {
			score := Similarity(records[i].Content, records[j].Content)
			if score < threshold {
				continue
			}
			pairs = append(pairs, Duplicate{A: records[i], B: records[j], Score: score})
		}
	}
	return pairs, nil
}

// Dedup merges duplicate records. For each pair at or above the threshold
// the lower-importance record is deleted; on equal importance the later
// creation loses. The survivor keeps the union of both tag lists. The scan
// is a full pairwise pass over the store, acceptable at the single-user
// scale this store is built for. Scanning does not count as an access.
func Dedup(ctx context.Context, driver memory.Driver, opts DedupOptions) (Result, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}

	records, err := driver.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to scan memories for dedup: %w", err)
	}

	res := Result{Scanned: len(records)}
	gone := make(map[string]bool)
	for i := range records {
		if gone[records[i].ID] {
			continue
		}
		for j := i + 1; j < len(records); j++ {
			if gone[records[i].ID] {
				break
			}
			if gone[records[j].ID] {
				continue
			}
			if Similarity(records[i].Content, records[j].Content) < opts.Threshold {
				continue
			}

			keep, drop := &records[i], &records[j]
			if keep.Importance < drop.Importance {
				keep, drop = drop, keep
			}

			merged := unionTags(keep.Tags, drop.Tags)
			if !slices.Equal(merged, keep.Tags) {
				if _, err := driver.Update(ctx, keep.ID, memory.Patch{Tags: &merged}); err != nil {
					return res, fmt.Errorf("failed to merge tags onto memory %s: %w", keep.ID, err)
				}
				keep.Tags = merged
			}
			if _, err := driver.Delete(ctx, drop.ID); err != nil {
				return res, fmt.Errorf("failed to delete duplicate memory %s: %w", drop.ID, err)
			}
			gone[drop.ID] = true
			res.Removed++
			res.RemovedIDs = append(res.RemovedIDs, drop.ID)
		}
	}
	return res, nil
}

// wordSet normalizes text into its significant words.
func wordSet(text string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return r
		default:
			return -1
		}
	}, text)

	words := make(map[string]struct{})
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 2 {
			words[w] = struct{}{}
		}
	}
	return words
}

// unionTags merges two tag lists, keeping first-seen order and dropping
// repeats.
func unionTags(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, tag := range slices.Concat(a, b) {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		merged = append(merged, tag)
	}
	return merged
}

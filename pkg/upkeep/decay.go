// Package upkeep keeps a memory store healthy over time. Decay removes
// stale low-importance records, Dedup merges near-duplicate content, and
// Scheduler runs both on an interval.
package upkeep

import (
	"context"
	"fmt"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

const (
	// DefaultMaxAge is how long an untouched record survives before decay
	// considers it stale.
	DefaultMaxAge = 30 * 24 * time.Hour

	// DefaultMaxImportance is the highest importance decay will remove.
	DefaultMaxImportance = 3
)

// protected types survive decay regardless of age or importance. They
// record durable commitments the user would notice going missing.
var protected = map[memory.Type]bool{
	memory.TypeMilestone: true,
	memory.TypeRequest:   true,
}

// DecayOptions tune a decay pass. Zero values take the defaults.
type DecayOptions struct {
	// MaxAge is the staleness cutoff measured against LastAccessedAt.
	MaxAge time.Duration
	// MaxImportance caps which records are eligible for removal.
	MaxImportance float64
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Result reports what a maintenance pass did.
type Result struct {
	// Scanned is how many records the pass examined.
	Scanned int
	// Removed is how many records the pass deleted.
	Removed int
	// RemovedIDs lists the deleted records, for callers that mirror the
	// store into a vector index.
	RemovedIDs []string
}

// Decay deletes records that have not been accessed within MaxAge and whose
// importance is at or below MaxImportance. Milestone and request records are
// never removed. Scanning does not count as an access.
func Decay(ctx context.Context, driver memory.Driver, opts DecayOptions) (Result, error) {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.MaxImportance <= 0 {
		opts.MaxImportance = DefaultMaxImportance
	}
	now := time.Now
	if opts.Clock != nil {
		now = opts.Clock
	}
	cutoff := now().Add(-opts.MaxAge)

	records, err := driver.All(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to scan memories for decay: %w", err)
	}

	res := Result{Scanned: len(records)}
	for _, rec := range records {
		if protected[rec.Type] {
			continue
		}
		if float64(rec.Importance) > opts.MaxImportance {
			continue
		}
		if !rec.LastAccessedAt.Before(cutoff) {
			continue
		}
		if _, err := driver.Delete(ctx, rec.ID); err != nil {
			return res, fmt.Errorf("failed to delete decayed memory %s: %w", rec.ID, err)
		}
		res.Removed++
		res.RemovedIDs = append(res.RemovedIDs, rec.ID)
	}
	return res, nil
}

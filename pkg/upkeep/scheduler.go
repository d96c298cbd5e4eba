package upkeep

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

// DefaultInterval is how often the scheduler sweeps between the startup
// pass and shutdown.
const DefaultInterval = 24 * time.Hour

// SchedulerConfig wires a Scheduler.
type SchedulerConfig struct {
	// Interval between sweeps. Zero means DefaultInterval.
	Interval time.Duration
	// Decay options applied on every sweep.
	Decay DecayOptions
	// Dedup enables duplicate merging on every sweep when non-nil.
	Dedup *DedupOptions
	// Logger receives sweep results. Nil means no logging.
	Logger *slog.Logger
}

// Scheduler runs maintenance once at startup and then on an interval until
// its context is canceled.
type Scheduler struct {
	driver   memory.Driver
	interval time.Duration
	decay    DecayOptions
	dedup    *DedupOptions
	log      *slog.Logger
}

// NewScheduler builds a Scheduler over driver.
func NewScheduler(driver memory.Driver, cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		driver:   driver,
		interval: interval,
		decay:    cfg.Decay,
		dedup:    cfg.Dedup,
		log:      log,
	}
}

// Run sweeps immediately, then on every interval tick, until ctx is
// canceled. It returns the context's error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one maintenance pass. Failures are logged, not returned, so a
// bad pass never stops the loop.
func (s *Scheduler) Sweep(ctx context.Context) {
	res, err := Decay(ctx, s.driver, s.decay)
	if err != nil {
		s.log.Error("memory decay failed", "error", err)
	} else if res.Removed > 0 {
		s.log.Info("memory decay removed stale records", "removed", res.Removed, "scanned", res.Scanned)
	}

	if s.dedup == nil {
		return
	}
	res, err = Dedup(ctx, s.driver, *s.dedup)
	if err != nil {
		s.log.Error("memory dedup failed", "error", err)
	} else if res.Removed > 0 {
		s.log.Info("memory dedup merged duplicates", "removed", res.Removed, "scanned", res.Scanned)
	}
}

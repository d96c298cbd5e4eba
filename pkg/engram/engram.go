// Package engram composes the memory store, recall strategies, and upkeep
// into the operations a conversational caller needs. The Manager owns the
// single mutable reference to the current embedder, so embedding capability
// can be wired up (or swapped) after the store exists.
package engram

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/recall"
	"github.com/papercomputeco/engram/pkg/upkeep"
	"github.com/papercomputeco/engram/pkg/vector"
)

// Manager is the memory facade. All writes, searches, and maintenance runs
// go through it so lifecycle events and the optional vector index stay
// consistent with the store.
type Manager struct {
	driver        memory.Driver
	log           *slog.Logger
	events        eventstream.Publisher
	index         vector.Driver
	minSimilarity float64
	clock         func() time.Time

	mu       sync.RWMutex
	embedder embeddings.Embedder
}

// Option configures a Manager.
type Option func(*Manager)

// WithEmbedder sets the initial embedder. SetEmbedder can replace it later.
func WithEmbedder(e embeddings.Embedder) Option {
	return func(m *Manager) { m.embedder = e }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithEvents sets the lifecycle event publisher. Defaults to a no-op
// publisher. Publish failures are logged, never surfaced to callers.
func WithEvents(pub eventstream.Publisher) Option {
	return func(m *Manager) { m.events = pub }
}

// WithVectorIndex mirrors embeddings into a vector index and routes
// semantic search through it.
func WithVectorIndex(index vector.Driver) Option {
	return func(m *Manager) { m.index = index }
}

// WithMinSimilarity overrides the semantic search similarity floor.
func WithMinSimilarity(v float64) Option {
	return func(m *Manager) { m.minSimilarity = v }
}

// WithClock overrides time.Now for maintenance runs. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.clock = now }
}

// NewManager builds a Manager over driver.
func NewManager(driver memory.Driver, opts ...Option) *Manager {
	m := &Manager{
		driver: driver,
		log:    logger.Nop(),
		events: eventstream.Nop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Driver exposes the underlying store for read-path callers like the API
// record handlers.
func (m *Manager) Driver() memory.Driver {
	return m.driver
}

// SetEmbedder swaps the embedder used by embedding-dependent calls. Safe to
// call at any time; in-flight calls keep the embedder they started with.
func (m *Manager) SetEmbedder(e embeddings.Embedder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedder = e
}

// Embedder returns the current embedder, which may be nil.
func (m *Manager) Embedder() embeddings.Embedder {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.embedder
}

// RememberOpts carries the optional fields of a new memory.
type RememberOpts struct {
	Context         string
	Importance      *float64
	EmotionalWeight *float64
	Tags            []string
	RelatedUser     string
}

// Remember writes a new memory without an embedding.
func (m *Manager) Remember(ctx context.Context, content string, recType memory.Type, opts RememberOpts) (memory.Record, error) {
	rec, err := m.driver.Create(ctx, draft(content, recType, opts))
	if err != nil {
		return memory.Record{}, err
	}
	m.publish(ctx, eventstream.NewRemembered(rec))
	return rec, nil
}

// RememberWithEmbedding writes a new memory and attaches an embedding from
// the current embedder. The embedder is read fresh on every call; without
// one, or when embedding fails, the write degrades to a plain Remember.
func (m *Manager) RememberWithEmbedding(ctx context.Context, content string, recType memory.Type, opts RememberOpts) (memory.Record, error) {
	rec, err := memory.CreateWithEmbedding(ctx, m.driver, draft(content, recType, opts), m.Embedder())
	if err != nil {
		return memory.Record{}, err
	}

	if m.index != nil && len(rec.Embedding) > 0 {
		doc := vector.Document{ID: rec.ID, Type: string(rec.Type), Embedding: rec.Embedding}
		if err := m.index.Add(ctx, []vector.Document{doc}); err != nil {
			m.log.Warn("failed to index memory embedding", "id", rec.ID, "error", err)
		}
	}

	m.publish(ctx, eventstream.NewRemembered(rec))
	return rec, nil
}

// Forget deletes a memory. It reports false when the ID does not exist.
func (m *Manager) Forget(ctx context.Context, id string) (bool, error) {
	deleted, err := m.driver.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	m.dropFromIndex(ctx, []string{id})
	m.publish(ctx, eventstream.NewForgotten(id))
	return true, nil
}

// Search finds memories by keyword relevance.
func (m *Manager) Search(ctx context.Context, text string, limit int) ([]memory.Record, error) {
	chain := recall.NewChain(m.log, recall.NewKeyword(m.driver))
	return chain.Find(ctx, text, limit)
}

// SearchSemantic finds memories by embedding similarity, falling back to
// keyword search when no embedder is set, embedding fails, or nothing
// clears the similarity floor.
func (m *Manager) SearchSemantic(ctx context.Context, text string, limit int) ([]memory.Record, error) {
	cfg := recall.SemanticConfig{
		MinSimilarity: m.minSimilarity,
		Logger:        m.log,
	}
	var semantic recall.Strategy
	if m.index != nil {
		semantic = recall.NewIndexedSemantic(m.driver, m.index, m.Embedder(), cfg)
	} else {
		semantic = recall.NewSemantic(m.driver, m.Embedder(), cfg)
	}

	chain := recall.NewChain(m.log, semantic, recall.NewKeyword(m.driver))
	return chain.Find(ctx, text, limit)
}

// Stats reports store totals.
func (m *Manager) Stats(ctx context.Context) (memory.Stats, error) {
	return m.driver.Stats(ctx)
}

// RunDecay removes stale low-importance memories.
func (m *Manager) RunDecay(ctx context.Context, opts upkeep.DecayOptions) (upkeep.Result, error) {
	if opts.Clock == nil {
		opts.Clock = m.clock
	}
	res, err := upkeep.Decay(ctx, m.driver, opts)
	if err != nil {
		return res, err
	}
	m.dropFromIndex(ctx, res.RemovedIDs)
	if res.Removed > 0 {
		m.publish(ctx, eventstream.NewSwept("decay", res.Removed))
	}
	return res, nil
}

// RunDedup merges near-duplicate memories.
func (m *Manager) RunDedup(ctx context.Context, opts upkeep.DedupOptions) (upkeep.Result, error) {
	res, err := upkeep.Dedup(ctx, m.driver, opts)
	if err != nil {
		return res, err
	}
	m.dropFromIndex(ctx, res.RemovedIDs)
	if res.Removed > 0 {
		m.publish(ctx, eventstream.NewSwept("dedup", res.Removed))
	}
	return res, nil
}

func (m *Manager) publish(ctx context.Context, evt eventstream.Event) {
	if err := m.events.Publish(ctx, evt); err != nil {
		m.log.Warn("failed to publish memory event", "kind", evt.Kind, "error", err)
	}
}

func (m *Manager) dropFromIndex(ctx context.Context, ids []string) {
	if m.index == nil || len(ids) == 0 {
		return
	}
	if err := m.index.Delete(ctx, ids); err != nil {
		m.log.Warn("failed to remove memories from vector index", "count", len(ids), "error", err)
	}
}

func draft(content string, recType memory.Type, opts RememberOpts) memory.Draft {
	return memory.Draft{
		Type:            recType,
		Content:         content,
		Context:         opts.Context,
		Importance:      opts.Importance,
		EmotionalWeight: opts.EmotionalWeight,
		Tags:            opts.Tags,
		RelatedUser:     opts.RelatedUser,
	}
}

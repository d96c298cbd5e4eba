// Package inmemory provides a map-backed implementation of the
// memory.Driver interface.
//
// Records live in process memory and vanish on close. This is the
// local-dev and test story; durable deployments use the sqlite or
// postgres drivers.
package inmemory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

// Driver implements memory.Driver using in-process data structures.
type Driver struct {
	// mu guards every field below. A full mutex rather than RWMutex
	// because reads mutate access bookkeeping.
	mu sync.Mutex

	closed bool

	// records maps record ID to the stored record.
	records map[string]*memory.Record

	// blobs maps blob key to the raw JSON stored under it.
	blobs map[string]json.RawMessage

	now func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock overrides the time source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// NewDriver creates an empty in-memory memory driver.
func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		records: make(map[string]*memory.Record),
		blobs:   make(map[string]json.RawMessage),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ memory.Driver = (*Driver)(nil)

// Create validates the draft and stores the resulting record.
func (d *Driver) Create(_ context.Context, draft memory.Draft) (memory.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.Record{}, memory.ErrClosed
	}

	rec, err := memory.NewRecord(draft, d.now())
	if err != nil {
		return memory.Record{}, err
	}

	stored := rec
	d.records[rec.ID] = &stored
	return cloneRecord(&stored), nil
}

// Get returns the record with the given ID and counts the read as an
// access. The returned copy carries the pre-read access count.
func (d *Driver) Get(_ context.Context, id string) (memory.Record, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.Record{}, false, memory.ErrClosed
	}

	rec, ok := d.records[id]
	if !ok {
		return memory.Record{}, false, nil
	}

	out := cloneRecord(rec)
	d.touch(rec)
	return out, true, nil
}

// Update applies the patch to the record with the given ID. Empty patches
// and unknown IDs report false without error.
func (d *Driver) Update(_ context.Context, id string, patch memory.Patch) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, memory.ErrClosed
	}
	if patch.Empty() {
		return false, nil
	}

	rec, ok := d.records[id]
	if !ok {
		return false, nil
	}

	if patch.Content != nil {
		rec.Content = *patch.Content
	}
	if patch.Context != nil {
		rec.Context = *patch.Context
	}
	if patch.Importance != nil {
		rec.Importance = memory.ClampImportance(patch.Importance)
	}
	if patch.EmotionalWeight != nil {
		rec.EmotionalWeight = memory.ClampWeight(patch.EmotionalWeight)
	}
	if patch.Tags != nil {
		rec.Tags = append([]string(nil), (*patch.Tags)...)
	}
	return true, nil
}

// Delete removes the record with the given ID, reporting whether it existed.
func (d *Driver) Delete(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, memory.ErrClosed
	}

	_, ok := d.records[id]
	delete(d.records, id)
	return ok, nil
}

// Query returns records matching all set filters, ordered by importance
// then recency of access, and counts each returned record as accessed.
func (d *Driver) Query(_ context.Context, q memory.Query) ([]memory.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, memory.ErrClosed
	}

	var matched []*memory.Record
	for _, rec := range d.records {
		if matches(q, rec) {
			matched = append(matched, rec)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Importance != matched[j].Importance {
			return matched[i].Importance > matched[j].Importance
		}
		return matched[i].LastAccessedAt.After(matched[j].LastAccessedAt)
	})

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]memory.Record, 0, len(matched))
	for _, rec := range matched {
		out = append(out, cloneRecord(rec))
		d.touch(rec)
	}
	return out, nil
}

// All returns every record ordered by creation time ascending without
// touching access bookkeeping.
func (d *Driver) All(_ context.Context) ([]memory.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, memory.ErrClosed
	}

	out := make([]memory.Record, 0, len(d.records))
	for _, rec := range d.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Touch counts one access for each given record. Unknown IDs are ignored.
func (d *Driver) Touch(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.ErrClosed
	}

	for _, id := range ids {
		if rec, ok := d.records[id]; ok {
			d.touch(rec)
		}
	}
	return nil
}

// SaveBlob stores the value under key, replacing any previous value.
func (d *Driver) SaveBlob(_ context.Context, key string, value json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.ErrClosed
	}

	d.blobs[key] = append(json.RawMessage(nil), value...)
	return nil
}

// LoadBlob returns the value stored under key, exactly as saved.
func (d *Driver) LoadBlob(_ context.Context, key string) (json.RawMessage, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, false, memory.ErrClosed
	}

	value, ok := d.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), value...), true, nil
}

// Stats summarizes the store contents.
func (d *Driver) Stats(_ context.Context) (memory.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.Stats{}, memory.ErrClosed
	}

	stats := memory.Stats{
		Total:  len(d.records),
		ByType: make(map[memory.Type]int),
	}

	var sum int
	for _, rec := range d.records {
		stats.ByType[rec.Type]++
		sum += rec.Importance
	}
	if stats.Total > 0 {
		stats.AverageImportance = float64(sum) / float64(stats.Total)
	}
	return stats, nil
}

// Close marks the driver closed. Further calls fail with memory.ErrClosed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	return nil
}

// touch advances access bookkeeping on the stored record. Callers hold mu.
func (d *Driver) touch(rec *memory.Record) {
	rec.AccessCount++
	rec.LastAccessedAt = d.now().UTC()
}

func matches(q memory.Query, rec *memory.Record) bool {
	if q.Type != "" && rec.Type != q.Type {
		return false
	}
	if q.MinImportance > 0 && rec.Importance < q.MinImportance {
		return false
	}
	if q.SearchText != "" {
		needle := strings.ToLower(q.SearchText)
		if !strings.Contains(strings.ToLower(rec.Content), needle) &&
			!strings.Contains(strings.ToLower(rec.Context), needle) {
			return false
		}
	}
	if len(q.Tags) > 0 && !anyTag(rec.Tags, q.Tags) {
		return false
	}
	return true
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func cloneRecord(rec *memory.Record) memory.Record {
	out := *rec
	out.Tags = append([]string(nil), rec.Tags...)
	out.Embedding = append([]float32(nil), rec.Embedding...)
	return out
}

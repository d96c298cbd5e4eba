// Package eventstream publishes memory lifecycle events to external
// consumers. Events carry a schema version and just enough identity for a
// consumer to query the full record back out of the store.
package eventstream

import (
	"context"
	"time"

	"github.com/papercomputeco/engram/pkg/memory"
)

// SchemaVersion is stamped on every event this build produces.
const SchemaVersion = 1

// Kind represents the type of memory lifecycle event.
type Kind string

const (
	// KindRemembered fires when a record is written.
	KindRemembered Kind = "memory.remembered"

	// KindForgotten fires when a record is deleted by a caller.
	KindForgotten Kind = "memory.forgotten"

	// KindSwept fires when a maintenance pass removes records.
	KindSwept Kind = "memory.swept"
)

// Event is one memory lifecycle notification.
type Event struct {
	// Version is the event schema version.
	Version int `json:"version"`

	// Kind says what happened.
	Kind Kind `json:"kind"`

	// At is when it happened, UTC.
	At time.Time `json:"at"`

	// MemoryID identifies the affected record. Empty for sweep events.
	MemoryID string `json:"memoryId,omitempty"`

	// Type is the affected record's type. Empty for sweep events.
	Type string `json:"type,omitempty"`

	// Op names the maintenance operation for sweep events ("decay", "dedup").
	Op string `json:"op,omitempty"`

	// Removed is how many records a sweep deleted.
	Removed int `json:"removed,omitempty"`
}

// NewRemembered builds the event for a freshly written record.
func NewRemembered(rec memory.Record) Event {
	return Event{
		Version:  SchemaVersion,
		Kind:     KindRemembered,
		At:       time.Now().UTC(),
		MemoryID: rec.ID,
		Type:     string(rec.Type),
	}
}

// NewForgotten builds the event for a caller-initiated delete.
func NewForgotten(id string) Event {
	return Event{
		Version:  SchemaVersion,
		Kind:     KindForgotten,
		At:       time.Now().UTC(),
		MemoryID: id,
	}
}

// NewSwept builds the event for a maintenance pass. op is the operation
// name, removed the number of deleted records.
func NewSwept(op string, removed int) Event {
	return Event{
		Version: SchemaVersion,
		Kind:    KindSwept,
		At:      time.Now().UTC(),
		Op:      op,
		Removed: removed,
	}
}

// Publisher delivers events to a stream.
type Publisher interface {
	// Publish delivers one event. Implementations should not block longer
	// than the context allows.
	Publish(ctx context.Context, evt Event) error

	// Close releases any resources held by the publisher.
	Close() error
}

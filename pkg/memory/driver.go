// Package memory provides the pluggable persistence layer for the engram
// system.
//
// A memory is a distilled, durable record: a fact, preference, event or
// similar observation worth keeping across sessions, not a raw transcript
// line. Records carry importance and emotional weight, and the store tracks
// how often and how recently each record is read so that recall and sweep
// logic can favor what is actually used.
//
// The [Driver] interface covers record CRUD, filtered queries, named state
// blobs and store statistics. Reads that surface a record to a caller (Get,
// Query, the keyword recall built on top) count as accesses and advance the
// record's access bookkeeping; maintenance scans do not.
//
// Drivers are pluggable via configuration:
//
//	[storage]
//	provider = "sqlite"   # or "libsql", "postgres", "inmemory"
package memory

import (
	"context"
	"encoding/json"
)

// Driver handles durable storage of memory records and state blobs.
//
// Implementations normalize drafts through [NewRecord], so validation and
// clamping behave identically across backends. All methods fail fast with
// [ErrClosed] after Close.
type Driver interface {
	// Create validates and persists a draft, returning the stored record.
	Create(ctx context.Context, draft Draft) (Record, error)

	// Get returns the record with the given ID. The returned record
	// carries the access count as it was before this read; the stored
	// record's count and last-access time advance atomically with the
	// read. The bool is false when no such record exists.
	Get(ctx context.Context, id string) (Record, bool, error)

	// Update applies a partial update. It returns false when the patch is
	// empty or the ID does not exist. Updates do not count as accesses.
	Update(ctx context.Context, id string, patch Patch) (bool, error)

	// Delete removes a record, reporting whether one existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Query returns records matching all set filters, ordered by
	// importance descending then last access descending, capped at
	// q.Limit when positive. Every returned record is counted as
	// accessed; the returned copies carry their pre-read access state.
	Query(ctx context.Context, q Query) ([]Record, error)

	// All returns every record ordered by creation time ascending.
	// It is a maintenance scan and does not touch access bookkeeping.
	All(ctx context.Context) ([]Record, error)

	// Touch counts one access for each given record, incrementing its
	// access count and refreshing its last-access time. Recall uses
	// this for records it surfaces from an All scan. Unknown IDs are
	// ignored.
	Touch(ctx context.Context, ids []string) error

	// SaveBlob stores a named JSON document, overwriting any previous
	// value under the same key.
	SaveBlob(ctx context.Context, key string, value json.RawMessage) error

	// LoadBlob returns the document stored under key, byte-for-byte as
	// saved. The bool is false when the key has never been written.
	LoadBlob(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Stats summarizes the store. An empty store reports zero totals and
	// a zero average, never NaN.
	Stats(ctx context.Context) (Stats, error)

	// Close releases driver resources.
	Close() error
}

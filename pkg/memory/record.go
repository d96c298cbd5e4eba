package memory

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Type classifies a memory record. The set is closed; drivers reject
// records of unknown type rather than storing them.
type Type string

const (
	TypeFact       Type = "fact"
	TypePreference Type = "preference"
	TypeEvent      Type = "event"
	TypeMilestone  Type = "milestone"
	TypeReflection Type = "reflection"
	TypeRequest    Type = "request"
	TypePattern    Type = "pattern"
)

// Types returns every valid record type, in declaration order.
func Types() []Type {
	return []Type{
		TypeFact,
		TypePreference,
		TypeEvent,
		TypeMilestone,
		TypeReflection,
		TypeRequest,
		TypePattern,
	}
}

// Valid reports whether t is one of the known record types.
func (t Type) Valid() bool {
	switch t {
	case TypeFact, TypePreference, TypeEvent, TypeMilestone,
		TypeReflection, TypeRequest, TypePattern:
		return true
	}
	return false
}

// Importance and emotional weight bounds. Values outside these ranges are
// clamped on write, never rejected.
const (
	MinImportance     = 1
	MaxImportance     = 10
	DefaultImportance = 5

	MinWeight = -5
	MaxWeight = 5
)

// Record is a single durable memory. Records are created through a Driver
// and identified by an opaque unique ID that never changes.
type Record struct {
	ID   string `json:"id"`
	Type Type   `json:"type"`

	// Content is the memory text itself. Required and non-empty.
	Content string `json:"content"`

	// Context is optional free-form text describing where the memory
	// came from.
	Context string `json:"context,omitempty"`

	// Importance ranges 1..10 inclusive.
	Importance int `json:"importance"`

	// EmotionalWeight ranges -5..5 inclusive.
	EmotionalWeight int `json:"emotional_weight"`

	CreatedAt time.Time `json:"created_at"`

	// LastAccessedAt advances whenever the record is returned by a read
	// that counts as an access: Get, Query, and keyword recall. Sweep
	// scans do not move it.
	LastAccessedAt time.Time `json:"last_accessed_at"`

	// AccessCount starts at 1 on creation and increments once per
	// counted access.
	AccessCount int `json:"access_count"`

	Tags        []string `json:"tags,omitempty"`
	RelatedUser string   `json:"related_user,omitempty"`

	// Embedding is the content vector, present only when one was
	// attached at creation. It is never backfilled on read.
	Embedding []float32 `json:"embedding,omitempty"`
}

// Draft is the caller-supplied input for creating a record. Numeric fields
// are pointers so that absent and zero can be told apart at decode
// boundaries; absent values take the documented defaults.
type Draft struct {
	Type    Type   `json:"type"`
	Content string `json:"content"`
	Context string `json:"context,omitempty"`

	// Importance defaults to 5 when nil or NaN, otherwise it is rounded
	// to the nearest integer and clamped to 1..10.
	Importance *float64 `json:"importance,omitempty"`

	// EmotionalWeight defaults to 0 when nil or NaN, otherwise it is
	// rounded and clamped to -5..5.
	EmotionalWeight *float64 `json:"emotional_weight,omitempty"`

	Tags        []string  `json:"tags,omitempty"`
	RelatedUser string    `json:"related_user,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Patch describes a partial update. Nil fields are left untouched. Numeric
// fields pass through the same clamping as creation. Type, timestamps and
// access counters cannot be patched.
type Patch struct {
	Content         *string   `json:"content,omitempty"`
	Context         *string   `json:"context,omitempty"`
	Importance      *float64  `json:"importance,omitempty"`
	EmotionalWeight *float64  `json:"emotional_weight,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
}

// Empty reports whether the patch carries no fields at all.
func (p Patch) Empty() bool {
	return p.Content == nil &&
		p.Context == nil &&
		p.Importance == nil &&
		p.EmotionalWeight == nil &&
		p.Tags == nil
}

// Query filters records. All set fields must match (AND semantics).
type Query struct {
	// Type restricts results to a single record type. Empty means any.
	Type Type `json:"type,omitempty"`

	// MinImportance keeps records with importance >= the given value.
	// Zero means no floor.
	MinImportance int `json:"min_importance,omitempty"`

	// SearchText keeps records whose content or context contains the
	// text, case-insensitively.
	SearchText string `json:"search_text,omitempty"`

	// Tags keeps records carrying at least one of the given tags.
	Tags []string `json:"tags,omitempty"`

	// Limit caps the result count. Zero means unlimited.
	Limit int `json:"limit,omitempty"`
}

// Stats summarizes a store's contents.
type Stats struct {
	Total             int          `json:"total"`
	ByType            map[Type]int `json:"by_type"`
	AverageImportance float64      `json:"average_importance"`
}

// ClampImportance normalizes a draft importance value: nil or NaN falls
// back to the default of 5, anything else is rounded to the nearest
// integer and clamped into 1..10.
func ClampImportance(v *float64) int {
	return clamp(v, MinImportance, MaxImportance, DefaultImportance)
}

// ClampWeight normalizes a draft emotional weight: nil or NaN falls back
// to 0, anything else is rounded and clamped into -5..5.
func ClampWeight(v *float64) int {
	return clamp(v, MinWeight, MaxWeight, 0)
}

func clamp(v *float64, min, max, def int) int {
	if v == nil || math.IsNaN(*v) {
		return def
	}
	if math.IsInf(*v, 1) {
		return max
	}
	if math.IsInf(*v, -1) {
		return min
	}
	n := int(math.Round(*v))
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// NewRecord materializes a draft into a record: it validates content and
// type, applies numeric clamping, assigns a fresh ID and stamps both
// timestamps with now. Drivers call this before persisting so that every
// backend normalizes input identically.
func NewRecord(draft Draft, now time.Time) (Record, error) {
	if draft.Content == "" {
		return Record{}, ErrEmptyContent
	}
	typ := draft.Type
	if typ == "" {
		typ = TypeFact
	}
	if !typ.Valid() {
		return Record{}, ErrInvalidType{Type: typ}
	}

	now = now.UTC()
	return Record{
		ID:              uuid.NewString(),
		Type:            typ,
		Content:         draft.Content,
		Context:         draft.Context,
		Importance:      ClampImportance(draft.Importance),
		EmotionalWeight: ClampWeight(draft.EmotionalWeight),
		CreatedAt:       now,
		LastAccessedAt:  now,
		AccessCount:     1,
		Tags:            slices.Clone(draft.Tags),
		RelatedUser:     draft.RelatedUser,
		Embedding:       slices.Clone(draft.Embedding),
	}, nil
}

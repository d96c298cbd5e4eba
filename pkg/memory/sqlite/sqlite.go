// Package sqlite provides a SQLite-backed memory driver.
//
// The driver speaks plain database/sql. Local file paths and ":memory:"
// go through mattn/go-sqlite3; targets with a libsql:// scheme go through
// the libsql driver, which serves remote sqld/Turso databases over the
// same SQL surface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"                      // register the "sqlite3" driver
	_ "github.com/tursodatabase/libsql-client-go/libsql" // register the "libsql" driver

	"github.com/papercomputeco/engram/pkg/memory"
)

// Config holds configuration for the sqlite memory driver.
type Config struct {
	// Target is a local database path, ":memory:", or a libsql:// URL
	// pointing at a remote sqld instance.
	Target string

	// Clock overrides the time source used for timestamps and access
	// bookkeeping. Nil means time.Now.
	Clock func() time.Time
}

// Driver implements memory.Driver on a SQLite database.
type Driver struct {
	db *sql.DB

	// mu serializes every operation. Touching reads issue a select and
	// an update that must be observed as one step.
	mu     sync.Mutex
	closed bool

	now func() time.Time
}

// timeLayout is fixed-width UTC so TEXT comparison in SQL matches
// chronological order. RFC3339Nano trims trailing zeros and breaks that.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = "id, type, content, context, importance, emotional_weight, created_at, last_accessed_at, access_count, tags, related_user, embedding"

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	content TEXT NOT NULL,
	context TEXT NOT NULL DEFAULT '',
	importance INTEGER NOT NULL,
	emotional_weight INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	last_accessed_at TEXT NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 1,
	tags TEXT NOT NULL DEFAULT '[]',
	related_user TEXT NOT NULL DEFAULT '',
	embedding TEXT
);

CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
CREATE INDEX IF NOT EXISTS idx_memories_importance ON memories(importance);

CREATE TABLE IF NOT EXISTS blobs (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// pragmas tuned for a single-writer local database.
const pragmas = `
PRAGMA foreign_keys = ON;
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;
`

// NewDriver opens (and migrates) the database at cfg.Target.
func NewDriver(ctx context.Context, cfg Config) (*Driver, error) {
	driverName := "sqlite3"
	if strings.HasPrefix(cfg.Target, "libsql://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection keeps the select-then-update in touching reads on a
	// single session alongside the driver mutex.
	db.SetMaxOpenConns(1)

	if driverName == "sqlite3" {
		if _, err := db.ExecContext(ctx, pragmas); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Driver{db: db, now: cfg.Clock}
	if d.now == nil {
		d.now = time.Now
	}

	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

var _ memory.Driver = (*Driver)(nil)

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Create validates the draft and inserts the resulting record.
func (d *Driver) Create(ctx context.Context, draft memory.Draft) (memory.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.Record{}, memory.ErrClosed
	}

	rec, err := memory.NewRecord(draft, d.now())
	if err != nil {
		return memory.Record{}, err
	}

	tagsJSON, err := marshalTags(rec.Tags)
	if err != nil {
		return memory.Record{}, fmt.Errorf("failed to marshal tags: %w", err)
	}

	var embeddingVal any
	if rec.Embedding != nil {
		embeddingJSON, err := json.Marshal(rec.Embedding)
		if err != nil {
			return memory.Record{}, fmt.Errorf("failed to marshal embedding: %w", err)
		}
		embeddingVal = string(embeddingJSON)
	}

	query := `INSERT INTO memories (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = d.db.ExecContext(ctx, query,
		rec.ID, string(rec.Type), rec.Content, rec.Context,
		rec.Importance, rec.EmotionalWeight,
		fmtTime(rec.CreatedAt), fmtTime(rec.LastAccessedAt), rec.AccessCount,
		tagsJSON, rec.RelatedUser, embeddingVal,
	)
	if err != nil {
		return memory.Record{}, fmt.Errorf("failed to insert record: %w", err)
	}

	return rec, nil
}

// Get returns the record with the given ID, counting the read as an access.
func (d *Driver) Get(ctx context.Context, id string) (memory.Record, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.Record{}, false, memory.ErrClosed
	}

	query := `SELECT ` + recordColumns + ` FROM memories WHERE id = ?`

	rec, err := scanRecord(d.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return memory.Record{}, false, nil
	}
	if err != nil {
		return memory.Record{}, false, err
	}

	if err := d.touch(ctx, id); err != nil {
		return memory.Record{}, false, err
	}

	return rec, true, nil
}

// Update applies the patch, reporting whether a row changed.
func (d *Driver) Update(ctx context.Context, id string, patch memory.Patch) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, memory.ErrClosed
	}
	if patch.Empty() {
		return false, nil
	}

	var (
		sets []string
		args []any
	)
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.Context != nil {
		sets = append(sets, "context = ?")
		args = append(args, *patch.Context)
	}
	if patch.Importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, memory.ClampImportance(patch.Importance))
	}
	if patch.EmotionalWeight != nil {
		sets = append(sets, "emotional_weight = ?")
		args = append(args, memory.ClampWeight(patch.EmotionalWeight))
	}
	if patch.Tags != nil {
		tagsJSON, err := marshalTags(*patch.Tags)
		if err != nil {
			return false, fmt.Errorf("failed to marshal tags: %w", err)
		}
		sets = append(sets, "tags = ?")
		args = append(args, tagsJSON)
	}

	args = append(args, id)
	query := `UPDATE memories SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`

	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Delete removes the record with the given ID, reporting whether it existed.
func (d *Driver) Delete(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, memory.ErrClosed
	}

	res, err := d.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Query returns matching records ordered by importance then access
// recency, and counts each returned record as accessed.
func (d *Driver) Query(ctx context.Context, q memory.Query) ([]memory.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, memory.ErrClosed
	}

	where, args := buildWhere(q)
	query := `SELECT ` + recordColumns + ` FROM memories` + where +
		` ORDER BY importance DESC, last_accessed_at DESC`
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.ID)
	}
	if err := d.touchAll(ctx, ids); err != nil {
		return nil, err
	}

	return recs, nil
}

// All returns every record ordered by creation time without touching
// access bookkeeping.
func (d *Driver) All(ctx context.Context) ([]memory.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, memory.ErrClosed
	}

	query := `SELECT ` + recordColumns + ` FROM memories ORDER BY created_at ASC, id ASC`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	return scanRecords(rows)
}

// Touch counts one access for each given record. Unknown IDs are ignored.
func (d *Driver) Touch(ctx context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.ErrClosed
	}
	return d.touchAll(ctx, ids)
}

// SaveBlob stores the value under key, replacing any previous value.
func (d *Driver) SaveBlob(ctx context.Context, key string, value json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.ErrClosed
	}

	query := `INSERT INTO blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := d.db.ExecContext(ctx, query, key, string(value), fmtTime(d.now())); err != nil {
		return fmt.Errorf("failed to save blob: %w", err)
	}
	return nil
}

// LoadBlob returns the value stored under key, exactly as saved.
func (d *Driver) LoadBlob(ctx context.Context, key string) (json.RawMessage, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, false, memory.ErrClosed
	}

	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load blob: %w", err)
	}
	return json.RawMessage(value), true, nil
}

// Stats summarizes the store contents.
func (d *Driver) Stats(ctx context.Context) (memory.Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return memory.Stats{}, memory.ErrClosed
	}

	stats := memory.Stats{ByType: make(map[memory.Type]int)}

	row := d.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(AVG(importance), 0) FROM memories`)
	if err := row.Scan(&stats.Total, &stats.AverageImportance); err != nil {
		return memory.Stats{}, fmt.Errorf("failed to aggregate stats: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM memories GROUP BY type`)
	if err != nil {
		return memory.Stats{}, fmt.Errorf("failed to count types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			typ   string
			count int
		)
		if err := rows.Scan(&typ, &count); err != nil {
			return memory.Stats{}, fmt.Errorf("failed to scan type count: %w", err)
		}
		stats.ByType[memory.Type(typ)] = count
	}
	if err := rows.Err(); err != nil {
		return memory.Stats{}, fmt.Errorf("failed to iterate type counts: %w", err)
	}

	return stats, nil
}

// Close closes the underlying database. Further calls fail with
// memory.ErrClosed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// touch advances access bookkeeping for one record. Callers hold mu.
func (d *Driver) touch(ctx context.Context, id string) error {
	query := `UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, query, fmtTime(d.now()), id); err != nil {
		return fmt.Errorf("failed to touch record: %w", err)
	}
	return nil
}

// touchAll advances access bookkeeping for a batch. Callers hold mu.
func (d *Driver) touchAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id IN (` +
		placeholders(len(ids)) + `)`

	args := make([]any, 0, len(ids)+1)
	args = append(args, fmtTime(d.now()))
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to touch records: %w", err)
	}
	return nil
}

func buildWhere(q memory.Query) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if q.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.MinImportance > 0 {
		conds = append(conds, "importance >= ?")
		args = append(args, q.MinImportance)
	}
	if q.SearchText != "" {
		pattern := "%" + strings.ToLower(q.SearchText) + "%"
		conds = append(conds, "(LOWER(content) LIKE ? OR LOWER(context) LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if len(q.Tags) > 0 {
		// Tags are stored as a JSON array; match the quoted element.
		tagConds := make([]string, 0, len(q.Tags))
		for _, tag := range q.Tags {
			tagConds = append(tagConds, "tags LIKE ?")
			args = append(args, `%"`+tag+`"%`)
		}
		conds = append(conds, "("+strings.Join(tagConds, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (memory.Record, error) {
	var (
		rec            memory.Record
		typ            string
		createdAt      string
		lastAccessedAt string
		tagsJSON       string
		embeddingJSON  sql.NullString
	)

	err := row.Scan(&rec.ID, &typ, &rec.Content, &rec.Context,
		&rec.Importance, &rec.EmotionalWeight,
		&createdAt, &lastAccessedAt, &rec.AccessCount,
		&tagsJSON, &rec.RelatedUser, &embeddingJSON)
	if err != nil {
		return memory.Record{}, err
	}

	rec.Type = memory.Type(typ)

	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return memory.Record{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.LastAccessedAt, err = time.Parse(timeLayout, lastAccessedAt); err != nil {
		return memory.Record{}, fmt.Errorf("failed to parse last_accessed_at: %w", err)
	}

	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return memory.Record{}, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if len(tags) > 0 {
		rec.Tags = tags
	}

	if embeddingJSON.Valid {
		if err := json.Unmarshal([]byte(embeddingJSON.String), &rec.Embedding); err != nil {
			return memory.Record{}, fmt.Errorf("failed to unmarshal embedding: %w", err)
		}
	}

	return rec, nil
}

func scanRecords(rows *sql.Rows) ([]memory.Record, error) {
	defer rows.Close()

	var recs []memory.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return recs, nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

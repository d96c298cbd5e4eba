// Package archive moves memory records in and out of a store as JSON
// Lines, one record per line. Export writes the full contents of a
// store and Import replays lines into a store as fresh records. A
// Watcher ingests archive files dropped into a directory so a store can
// be fed by another process.
package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/papercomputeco/engram/pkg/memory"
)

// Result summarizes an import.
type Result struct {
	// Imported is the number of lines stored as records.
	Imported int

	// Skipped is the number of lines dropped as malformed JSON or
	// invalid drafts.
	Skipped int
}

// Export writes every record in the store to w, one JSON document per
// line, ordered by creation time. It returns the number of records
// written. Exporting does not count as an access.
func Export(ctx context.Context, driver memory.Driver, w io.Writer) (int, error) {
	records, err := driver.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading records: %w", err)
	}

	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return 0, fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
	}

	return len(records), nil
}

// Import reads JSON lines from r and stores each one as a new record.
// Lines are decoded as drafts, so records replayed from an export get
// fresh IDs, timestamps and access counts. Malformed lines and lines
// that fail draft validation are skipped and counted rather than
// aborting the import; store failures abort it.
func Import(ctx context.Context, driver memory.Driver, r io.Reader) (Result, error) {
	var res Result

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB max line

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var draft memory.Draft
		if err := json.Unmarshal(line, &draft); err != nil {
			res.Skipped++
			continue
		}

		if _, err := driver.Create(ctx, draft); err != nil {
			if isDraftError(err) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("storing record: %w", err)
		}
		res.Imported++
	}

	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading archive: %w", err)
	}

	return res, nil
}

// ImportFile imports the JSON lines file at path.
func ImportFile(ctx context.Context, driver memory.Driver, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	return Import(ctx, driver, f)
}

// isDraftError reports whether err is a per-record validation failure
// rather than a store failure.
func isDraftError(err error) bool {
	var invalidType memory.ErrInvalidType
	return errors.Is(err, memory.ErrEmptyContent) || errors.As(err, &invalidType)
}

package archive

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

// DefaultDebounce is how long a file must stay quiet after its last
// write before it is imported.
const DefaultDebounce = 500 * time.Millisecond

// WatchConfig wires a Watcher.
type WatchConfig struct {
	// Debounce between a file's last write event and its import. Zero
	// means DefaultDebounce.
	Debounce time.Duration
	// Logger receives per-file import results. Nil means no logging.
	Logger *slog.Logger
}

// Watcher ingests .jsonl archives dropped into a directory. Files
// already present when the watch starts are imported first; files
// created or rewritten afterwards are imported once their writes
// settle. A rewritten file is replayed in full.
type Watcher struct {
	driver   memory.Driver
	debounce time.Duration
	log      *slog.Logger

	// ingested maps each imported path to the size and mtime it had at
	// import time, so duplicate events do not replay identical content.
	ingested map[string]fileStamp
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

// NewWatcher builds a Watcher that imports into driver.
func NewWatcher(driver memory.Driver, cfg WatchConfig) *Watcher {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		driver:   driver,
		debounce: debounce,
		log:      log,
		ingested: make(map[string]fileStamp),
	}
}

// Run watches dir until ctx is canceled, returning the context's error.
// Import failures are logged and do not stop the watch.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	// The watch is registered before the initial scan so files landing
	// during the scan are not missed; the stamp check keeps the overlap
	// from importing twice.
	if err := w.importExisting(ctx, dir); err != nil {
		return err
	}

	// One timer debounces write bursts. pending holds the files touched
	// since it last fired.
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".jsonl" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			for path := range pending {
				w.importPath(ctx, path)
			}
			clear(pending)
			timer = nil
			timerC = nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("archive watch error", "error", err)
		}
	}
}

func (w *Watcher) importExisting(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".jsonl" {
			continue
		}
		w.importPath(ctx, filepath.Join(dir, entry.Name()))
	}
	return nil
}

// importPath ingests one file unless its contents are unchanged since
// the last import.
func (w *Watcher) importPath(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		w.log.Warn("skipping archive", "path", path, "error", err)
		return
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime()}
	if prev, ok := w.ingested[path]; ok && prev.size == stamp.size && prev.modTime.Equal(stamp.modTime) {
		return
	}

	res, err := ImportFile(ctx, w.driver, path)
	if err != nil {
		w.log.Warn("archive import failed", "path", path, "error", err)
		return
	}

	w.ingested[path] = stamp
	w.log.Info("imported archive",
		"path", path,
		"imported", res.Imported,
		"skipped", res.Skipped,
	)
}

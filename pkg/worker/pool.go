// Package worker provides an asynchronous worker pool that takes memory
// lifecycle side effects off the API hot path: publishing eventstream
// events and mirroring embeddings into the vector index.
//
// Enqueue never blocks. When the queue is full the job is dropped and
// logged; the record itself is already durable by the time a job exists.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/vector"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against. Fields are
// independent; a job may carry any combination of them.
type Job struct {
	// Event is published to the configured publisher when set.
	Event *eventstream.Event

	// Index mirrors the record into the vector index when set. The record
	// is embedded first unless it already carries an embedding.
	Index *memory.Record

	// Deindex drops the given record ID from the vector index when set.
	Deindex string
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives lifecycle events. Optional.
	Publisher eventstream.Publisher

	// VectorDriver is the optional vector index for embeddings.
	VectorDriver vector.Driver

	// Embedder generates embeddings for records that lack one.
	// Required when VectorDriver is set and index jobs are enqueued.
	Embedder embeddings.Embedder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided slog logger.
	Logger *slog.Logger
}

// Pool processes memory side-effect jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"has_event", job.Event != nil,
			"has_index", job.Index != nil,
			"deindex", job.Deindex,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob runs every side effect the job carries. Failures are logged,
// never propagated; no side effect here may affect stored records.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	if job.Event != nil && p.config.Publisher != nil {
		if err := p.config.Publisher.Publish(ctx, *job.Event); err != nil {
			p.logger.Error("async event publish failed",
				"kind", string(job.Event.Kind),
				"memory_id", job.Event.MemoryID,
				"error", err,
			)
		}
	}

	if job.Index != nil && p.config.VectorDriver != nil {
		p.indexRecord(ctx, job.Index)
	}

	if job.Deindex != "" && p.config.VectorDriver != nil {
		if err := p.config.VectorDriver.Delete(ctx, []string{job.Deindex}); err != nil {
			p.logger.Warn("failed to drop index entry",
				"memory_id", job.Deindex,
				"error", err,
			)
		}
	}
}

// indexRecord embeds the record if needed and upserts it into the index.
func (p *Pool) indexRecord(ctx context.Context, rec *memory.Record) {
	embedding := rec.Embedding
	if len(embedding) == 0 {
		if p.config.Embedder == nil {
			p.logger.Debug("skipping index for record with no embedding",
				"memory_id", rec.ID,
			)
			return
		}

		var err error
		embedding, err = p.config.Embedder.Embed(ctx, rec.Content)
		if err != nil {
			p.logger.Warn("failed to generate embedding",
				"memory_id", rec.ID,
				"error", err,
			)
			return
		}
	}

	doc := vector.Document{
		ID:        rec.ID,
		Type:      string(rec.Type),
		Embedding: embedding,
	}

	if err := p.config.VectorDriver.Add(ctx, []vector.Document{doc}); err != nil {
		p.logger.Warn("failed to store embedding",
			"memory_id", rec.ID,
			"error", err,
		)
		return
	}

	p.logger.Debug("indexed record",
		"memory_id", rec.ID,
		"embedding_dim", len(embedding),
	)
}

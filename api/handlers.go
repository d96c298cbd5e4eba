package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/upkeep"
	"github.com/papercomputeco/engram/pkg/worker"
)

// ErrorResponse is the error envelope every failing endpoint returns.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ListResponse is the payload returned by the memory list endpoint.
type ListResponse struct {
	Count    int             `json:"count"`
	Memories []memory.Record `json:"memories"`
}

// SweepRequest controls a maintenance pass.
type SweepRequest struct {
	// MaxAgeDays is the staleness cutoff in days. Zero means the default.
	MaxAgeDays int `json:"max_age_days"`
	// MaxImportance caps which records decay may remove. Zero means the
	// default.
	MaxImportance float64 `json:"max_importance"`
	// Dedup also merges near-duplicate records.
	Dedup bool `json:"dedup"`
	// Threshold is the dedup similarity floor. Zero means the default.
	Threshold float64 `json:"threshold"`
}

// SweepResponse reports what a sweep did.
type SweepResponse struct {
	Decay SweepPass  `json:"decay"`
	Dedup *SweepPass `json:"dedup,omitempty"`
}

// SweepPass is one maintenance pass inside a sweep.
type SweepPass struct {
	Scanned int `json:"scanned"`
	Removed int `json:"removed"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreateMemory stores a new record from a draft body and queues its
// side effects.
func (s *Server) handleCreateMemory(c *fiber.Ctx) error {
	var draft memory.Draft
	if err := c.BodyParser(&draft); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	rec, err := s.driver.Create(c.Context(), draft)
	if err != nil {
		var invalidType memory.ErrInvalidType
		if errors.Is(err, memory.ErrEmptyContent) || errors.As(err, &invalidType) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to store memory", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store memory"})
	}

	evt := eventstream.NewRemembered(rec)
	s.enqueue(worker.Job{Event: &evt, Index: &rec})

	return c.Status(fiber.StatusCreated).JSON(rec)
}

// handleListMemories returns records matching the query parameters.
// Query parameters:
//   - type: restrict to one record type
//   - min_importance: keep records at or above this importance
//   - search: case-insensitive content and context match
//   - tag (repeatable): keep records carrying any of the tags
//   - limit: cap the result count
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	q := memory.Query{
		Type:       memory.Type(c.Query("type")),
		SearchText: c.Query("search"),
	}

	if q.Type != "" && !q.Type.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "unknown memory type: " + string(q.Type)})
	}

	if v := c.Query("min_importance"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "min_importance must be an integer"})
		}
		q.MinImportance = parsed
	}

	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "limit must be a non-negative integer"})
		}
		q.Limit = parsed
	}

	for _, tag := range c.Context().QueryArgs().PeekMulti("tag") {
		q.Tags = append(q.Tags, string(tag))
	}

	records, err := s.driver.Query(c.Context(), q)
	if err != nil {
		s.logger.Error("failed to query memories", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to query memories"})
	}

	return c.JSON(ListResponse{Count: len(records), Memories: records})
}

// handleGetMemory returns a single record by ID.
func (s *Server) handleGetMemory(c *fiber.Ctx) error {
	id := c.Params("id")

	rec, ok, err := s.driver.Get(c.Context(), id)
	if err != nil {
		s.logger.Error("failed to load memory", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load memory"})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
	}

	return c.JSON(rec)
}

// handleUpdateMemory applies a partial update to a record.
func (s *Server) handleUpdateMemory(c *fiber.Ctx) error {
	id := c.Params("id")

	var patch memory.Patch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if patch.Empty() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "patch carries no fields"})
	}

	updated, err := s.driver.Update(c.Context(), id, patch)
	if err != nil {
		s.logger.Error("failed to update memory", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to update memory"})
	}
	if !updated {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleDeleteMemory removes a record and queues its side effects.
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	id := c.Params("id")

	deleted, err := s.driver.Delete(c.Context(), id)
	if err != nil {
		s.logger.Error("failed to delete memory", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete memory"})
	}
	if !deleted {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
	}

	evt := eventstream.NewForgotten(id)
	s.enqueue(worker.Job{Event: &evt, Deindex: id})

	return c.SendStatus(fiber.StatusNoContent)
}

// handleStats returns store totals.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.manager.Stats(c.Context())
	if err != nil {
		s.logger.Error("failed to load stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load stats"})
	}

	return c.JSON(stats)
}

// handleSweep runs a decay pass and, when requested, a dedup pass. An
// empty body runs decay with the defaults.
func (s *Server) handleSweep(c *fiber.Ctx) error {
	var req SweepRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}

	decay, err := s.manager.RunDecay(c.Context(), upkeep.DecayOptions{
		MaxAge:        time.Duration(req.MaxAgeDays) * 24 * time.Hour,
		MaxImportance: req.MaxImportance,
	})
	if err != nil {
		s.logger.Error("memory decay failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "sweep failed"})
	}

	resp := SweepResponse{
		Decay: SweepPass{Scanned: decay.Scanned, Removed: decay.Removed},
	}

	if req.Dedup {
		dedup, err := s.manager.RunDedup(c.Context(), upkeep.DedupOptions{Threshold: req.Threshold})
		if err != nil {
			s.logger.Error("memory dedup failed", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "sweep failed"})
		}
		resp.Dedup = &SweepPass{Scanned: dedup.Scanned, Removed: dedup.Removed}
	}

	return c.JSON(resp)
}

// handleGetBlob returns the raw JSON stored under a blob key.
func (s *Server) handleGetBlob(c *fiber.Ctx) error {
	key := c.Params("key")

	value, ok, err := s.driver.LoadBlob(c.Context(), key)
	if err != nil {
		s.logger.Error("failed to load blob", "key", key, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load blob"})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "blob not found"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(value)
}

// handlePutBlob stores the request body under a blob key, replacing any
// previous value.
func (s *Server) handlePutBlob(c *fiber.Ctx) error {
	key := c.Params("key")

	// The body buffer is fiber's and gets recycled after the handler
	// returns, so the stored value must be a copy.
	body := append(json.RawMessage{}, c.Body()...)
	if !json.Valid(body) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "body must be valid JSON"})
	}

	if err := s.driver.SaveBlob(c.Context(), key, body); err != nil {
		s.logger.Error("failed to save blob", "key", key, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save blob"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// enqueue hands a side-effect job to the pool when one is configured. The
// record is already durable, so a missing pool just means no event and no
// index entry.
func (s *Server) enqueue(job worker.Job) {
	if s.config.Pool == nil {
		return
	}
	s.config.Pool.Enqueue(job)
}

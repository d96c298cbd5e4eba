package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/memory"
)

const defaultSearchLimit = 5

// SearchResponse is the payload returned by the search endpoint.
type SearchResponse struct {
	Query    string          `json:"query"`
	Count    int             `json:"count"`
	Memories []memory.Record `json:"memories"`
}

// handleSearch handles GET /api/v1/search requests.
// Query parameters:
//   - q (required): the search text
//   - limit (optional, default 5): maximum number of results
//   - semantic (optional): "true" tries embedding similarity before the
//     keyword chain
func (s *Server) handleSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "q parameter is required",
		})
	}

	limit := defaultSearchLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "limit must be a positive integer",
			})
		}
		limit = parsed
	}

	var (
		records []memory.Record
		err     error
	)
	if c.QueryBool("semantic") {
		records, err = s.manager.SearchSemantic(c.Context(), query, limit)
	} else {
		records, err = s.manager.Search(c.Context(), query, limit)
	}
	if err != nil {
		s.logger.Error("memory search failed", "query", query, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "search failed",
		})
	}

	if records == nil {
		records = []memory.Record{}
	}

	return c.JSON(SearchResponse{
		Query:    query,
		Count:    len(records),
		Memories: records,
	})
}

package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/memory"
)

// Server is the HTTP API server for one engram store.
type Server struct {
	config  Config
	manager *engram.Manager
	driver  memory.Driver
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server. The manager and driver are injected
// so they can be shared with other components (the MCP tools, the upkeep
// scheduler).
func NewServer(config Config, manager *engram.Manager, driver memory.Driver, logger *slog.Logger) (*Server, error) {
	if manager == nil {
		return nil, errors.New("manager is required")
	}
	if driver == nil {
		return nil, errors.New("memory driver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		manager: manager,
		driver:  driver,
		logger:  logger,
		app:     app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/api/v1")
	v1.Post("/memories", s.handleCreateMemory)
	v1.Get("/memories", s.handleListMemories)
	v1.Get("/memories/:id", s.handleGetMemory)
	v1.Patch("/memories/:id", s.handleUpdateMemory)
	v1.Delete("/memories/:id", s.handleDeleteMemory)
	v1.Get("/search", s.handleSearch)
	v1.Get("/stats", s.handleStats)
	v1.Post("/sweep", s.handleSweep)
	v1.Get("/blobs/:key", s.handleGetBlob)
	v1.Put("/blobs/:key", s.handlePutBlob)

	if config.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCP))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

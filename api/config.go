// Package api provides the HTTP server over a running engram store:
// record CRUD, search, stats, sweeps, state blobs, and the MCP mount.
package api

import (
	"net/http"

	"github.com/papercomputeco/engram/pkg/worker"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8239")
	ListenAddr string

	// Pool receives the async side effects of record writes: lifecycle
	// event publishing and vector index upkeep. Optional; without one,
	// writes still land in the store and nothing else happens.
	Pool *worker.Pool

	// MCP is mounted at /mcp when set.
	MCP http.Handler
}

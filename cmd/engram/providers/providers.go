// Package providers wires configuration values to concrete store, vector
// index, embedding, event stream, and text generation implementations so
// the CLI commands share one resolution path.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/papercomputeco/engram/cmd/engram/sqlitepath"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/embeddings"
	"github.com/papercomputeco/engram/pkg/embeddings/ollama"
	"github.com/papercomputeco/engram/pkg/embeddings/openai"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/eventstream/kafka"
	"github.com/papercomputeco/engram/pkg/llm"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/memory/inmemory"
	"github.com/papercomputeco/engram/pkg/memory/postgres"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
	"github.com/papercomputeco/engram/pkg/vector"
	"github.com/papercomputeco/engram/pkg/vector/chroma"
	"github.com/papercomputeco/engram/pkg/vector/qdrant"
	"github.com/papercomputeco/engram/pkg/vector/sqlitevec"
)

// vectorFileName is the sqlitevec index file created inside the dot
// directory when no vector_store.target is configured.
const vectorFileName = "vectors.sqlite"

// OpenStore opens the memory store named by cfg. The sqliteOverride is
// the command's --sqlite flag and wins over every configured value. For
// sqlite an unresolvable path falls back to the dot directory store so a
// fresh machine works without running init first.
func OpenStore(ctx context.Context, cfg *config.Config, configDir, sqliteOverride string) (memory.Driver, error) {
	return openStore(ctx, cfg, configDir, sqliteOverride, true)
}

// OpenExistingStore is OpenStore for commands that only read. It refuses
// to invent a store path, so a missing database surfaces as an error
// instead of an empty result set against a freshly created file.
func OpenExistingStore(ctx context.Context, cfg *config.Config, configDir, sqliteOverride string) (memory.Driver, error) {
	return openStore(ctx, cfg, configDir, sqliteOverride, false)
}

func openStore(ctx context.Context, cfg *config.Config, configDir, sqliteOverride string, create bool) (memory.Driver, error) {
	switch cfg.Storage.Provider {
	case "", "sqlite":
		target, err := resolveSQLiteTarget(cfg, configDir, sqliteOverride, create)
		if err != nil {
			return nil, err
		}
		return sqlite.NewDriver(ctx, sqlite.Config{Target: target})
	case "libsql":
		if cfg.Storage.Target == "" {
			return nil, fmt.Errorf("storage.target is required for the libsql provider")
		}
		return sqlite.NewDriver(ctx, sqlite.Config{Target: cfg.Storage.Target})
	case "postgres":
		if cfg.Storage.Target == "" {
			return nil, fmt.Errorf("storage.target is required for the postgres provider")
		}
		return postgres.NewDriver(ctx, postgres.Config{Target: cfg.Storage.Target})
	case "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

func resolveSQLiteTarget(cfg *config.Config, configDir, override string, create bool) (string, error) {
	if override != "" {
		return override, nil
	}
	if cfg.Storage.Target != "" {
		return cfg.Storage.Target, nil
	}
	target, err := sqlitepath.ResolveSQLitePath("")
	if err == nil {
		return target, nil
	}
	if !create {
		return "", err
	}
	return sqlitepath.DefaultSQLitePath(configDir)
}

// OpenVector opens the configured vector index, or returns nil when the
// provider is "none" so callers fall back to keyword search. Embedding
// dimensions come from the embedding section since the index schema has
// to match what the embedder produces.
func OpenVector(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (vector.Driver, error) {
	switch cfg.VectorStore.Provider {
	case "", "none":
		return nil, nil
	case "sqlitevec":
		target := cfg.VectorStore.Target
		if target == "" {
			dir, err := dotdir.NewManager().Create(configDir)
			if err != nil {
				return nil, fmt.Errorf("resolving vector store path: %w", err)
			}
			target = filepath.Join(dir, vectorFileName)
		}
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     target,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)
	case "qdrant":
		host, port := splitHostPort(cfg.VectorStore.Target)
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:           host,
			Port:           port,
			CollectionName: cfg.VectorStore.Collection,
			Dimensions:     cfg.Embedding.Dimensions,
		}, logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            cfg.VectorStore.Target,
			CollectionName: cfg.VectorStore.Collection,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown vector store provider %q", cfg.VectorStore.Provider)
	}
}

// splitHostPort splits a "host:port" target, treating the whole string
// as a host when no port is present so the driver default applies.
func splitHostPort(target string) (string, int) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return target, 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return target, 0
	}
	return host, port
}

// NewEmbedder builds the configured embedding client, or returns nil
// when the provider is "none". Constructors never dial, so a dead
// embedding server only surfaces on first use.
func NewEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "none":
		return nil, nil
	case "", "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: cfg.Embedding.Target,
			Model:   cfg.Embedding.Model,
		})
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL: cfg.Embedding.Target,
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// NewPublisher builds the configured lifecycle event publisher. The nop
// publisher is the default so single-machine installs carry no broker.
func NewPublisher(cfg *config.Config, logger *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Provider {
	case "", "nop":
		return eventstream.Nop(), nil
	case "kafka":
		var brokers []string
		for _, b := range strings.Split(cfg.Events.Brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		return kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   cfg.Events.Topic,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown events provider %q", cfg.Events.Provider)
	}
}

// NewLLM builds the configured text generation call for chat and
// reflection.
func NewLLM(cfg *config.Config) (llm.CallFunc, error) {
	return llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		Target:   cfg.LLM.Target,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	})
}

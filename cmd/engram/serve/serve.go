// Package servecmder provides the serve command for running the engram daemon:
// the HTTP API with its MCP mount, the async side-effect worker pool, and the
// background upkeep scheduler.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/api"
	"github.com/papercomputeco/engram/api/mcp"
	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/upkeep"
	"github.com/papercomputeco/engram/pkg/worker"
)

const serveLongDesc string = `Run the engram daemon.

Starts the HTTP API server with the MCP endpoint mounted at /mcp, a worker
pool for async event publishing and vector indexing, and (unless disabled
via sweep.enabled) a background scheduler that periodically decays stale
memories and merges duplicates.

Configuration resolves in flag > environment > config file > default order.
Environment variables use the ENGRAM_ prefix with underscores for dots
(e.g. ENGRAM_STORAGE_PROVIDER).

Examples:
  engram serve
  engram serve --listen :9090
  engram serve --storage-provider postgres --storage-target postgres://localhost/engram
  engram serve --vector-store-provider qdrant --vector-store-target localhost:6334
  ENGRAM_EVENTS_PROVIDER=kafka ENGRAM_EVENTS_BROKERS=localhost:9092 engram serve`

const serveShortDesc string = "Run the engram daemon"

// logFileName is the JSON log the daemon appends to inside the .engram/
// directory, alongside the pretty stream on stderr.
const logFileName = "engramd.log"

// boundFlags are the registry flags serve binds into viper. The llm and
// api-target flags stay off this list: the daemon serves memory, it does
// not generate text or call itself.
var boundFlags = []string{
	config.FlagListen,
	config.FlagStorageProvider,
	config.FlagStorageTarget,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
}

type ServeCommander struct {
	listen        string
	storageProv   string
	storageTgt    string
	vectorProv    string
	vectorTgt     string
	embedProv     string
	embedTgt      string
	embedModel    string
	embedDims     uint
	eventsProv    string
	eventsBrokers string

	debug     bool
	configDir string
	cfg       *config.Config
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.DefaultFlags, boundFlags)
			cmder.cfg = config.ConfigFromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagStorageProvider, &cmder.storageProv)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagStorageTarget, &cmder.storageTgt)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagVectorStoreTgt, &cmder.vectorTgt)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingProv, &cmder.embedProv)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingTgt, &cmder.embedTgt)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, config.DefaultFlags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsProvider, &cmder.eventsProv)
	config.AddStringFlag(cmd, config.DefaultFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	log, closeLog := c.newLogger()
	defer closeLog()

	cfg := c.cfg

	driver, err := providers.OpenStore(ctx, cfg, c.configDir, "")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer driver.Close()

	vecDriver, err := providers.OpenVector(ctx, cfg, c.configDir, log)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}

	embedder, err := providers.NewEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	publisher, err := providers.NewPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	pool, err := worker.NewPool(&worker.Config{
		Publisher:    publisher,
		VectorDriver: vecDriver,
		Embedder:     embedder,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Close()

	mopts := []engram.Option{
		engram.WithLogger(log),
		engram.WithEvents(publisher),
	}
	if embedder != nil {
		mopts = append(mopts, engram.WithEmbedder(embedder))
	}
	if vecDriver != nil {
		mopts = append(mopts, engram.WithVectorIndex(vecDriver))
	}
	if cfg.Recall.MinSimilarity > 0 {
		mopts = append(mopts, engram.WithMinSimilarity(cfg.Recall.MinSimilarity))
	}
	manager := engram.NewManager(driver, mopts...)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Manager: manager,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr: cfg.API.Listen,
		Pool:       pool,
		MCP:        mcpServer.Handler(),
	}, manager, driver, log)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	log.Info("starting engram daemon",
		"addr", cfg.API.Listen,
		"storage", cfg.Storage.Provider,
		"vector_store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider,
		"events", cfg.Events.Provider,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if cfg.Sweep.IsEnabled() {
		sched := upkeep.NewScheduler(driver, c.schedulerConfig(log))
		log.Info("starting upkeep scheduler",
			"interval", cfg.Sweep.Interval,
			"max_age", cfg.Sweep.MaxAge,
		)
		go func() {
			if err := sched.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("upkeep scheduler error: %w", err)
			}
		}()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())
		return apiServer.Shutdown()
	}
}

// newLogger builds the daemon logger: a pretty stream on stderr fanned out
// with a JSON file inside the .engram/ directory. Falls back to stderr-only
// when the dot dir or log file cannot be opened.
func (c *ServeCommander) newLogger() (*slog.Logger, func()) {
	pretty := logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(os.Stderr),
	)

	dir, err := dotdir.NewManager().Create(c.configDir)
	if err != nil {
		return pretty, func() {}
	}

	logFile, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return pretty, func() {}
	}

	jsonFile := logger.New(
		logger.WithJSON(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(logFile),
	)

	return logger.Multi(pretty, jsonFile), func() { logFile.Close() }
}

// schedulerConfig translates the sweep section into scheduler options.
// Unparseable durations fall through to the scheduler defaults.
func (c *ServeCommander) schedulerConfig(log *slog.Logger) upkeep.SchedulerConfig {
	sc := upkeep.SchedulerConfig{Logger: log}

	if d, err := time.ParseDuration(c.cfg.Sweep.Interval); err == nil && d > 0 {
		sc.Interval = d
	}
	if d, err := time.ParseDuration(c.cfg.Sweep.MaxAge); err == nil && d > 0 {
		sc.Decay.MaxAge = d
	}
	sc.Decay.MaxImportance = c.cfg.Sweep.MaxImportance

	if c.cfg.Sweep.DedupThreshold > 0 {
		sc.Dedup = &upkeep.DedupOptions{Threshold: c.cfg.Sweep.DedupThreshold}
	}

	return sc
}

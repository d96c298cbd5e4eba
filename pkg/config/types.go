package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent engram configuration stored as config.toml
// in the .engram/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	Client      ClientConfig      `toml:"client"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	LLM         LLMConfig         `toml:"llm"`
	Recall      RecallConfig      `toml:"recall"`
	Sweep       SweepConfig       `toml:"sweep"`
	Events      EventsConfig      `toml:"events"`
	Chat        ChatConfig        `toml:"chat"`
	Persona     PersonaConfig     `toml:"persona"`
}

// StorageConfig holds memory store settings. Target is a file path for
// sqlite, a DSN for postgres, or a URL for libsql. An empty target
// resolves to the store file inside the .engram/ directory.
type StorageConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// engramd server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	APITarget string `toml:"api_target,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Collection string `toml:"collection,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// LLMConfig holds text generation provider settings for chat and
// reflection.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// RecallConfig holds retrieval settings.
type RecallConfig struct {
	Limit         uint    `toml:"limit,omitempty"`
	MinSimilarity float64 `toml:"min_similarity,omitempty"`
}

// SweepConfig holds the background upkeep settings. Interval and MaxAge
// are duration strings (e.g. "24h", "720h"). Enabled is a pointer so an
// absent value can fall back to the default without clobbering an
// explicit false.
type SweepConfig struct {
	Enabled        *bool   `toml:"enabled,omitempty"`
	Interval       string  `toml:"interval,omitempty"`
	MaxAge         string  `toml:"max_age,omitempty"`
	MaxImportance  float64 `toml:"max_importance,omitempty"`
	DedupThreshold float64 `toml:"dedup_threshold,omitempty"`
}

// IsEnabled reports whether the sweep scheduler should run. Defaults to
// true when unset.
func (s SweepConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// EventsConfig holds lifecycle event publishing settings. Brokers is a
// comma-separated list for the kafka provider.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// ChatConfig holds console chat settings.
type ChatConfig struct {
	// MaxRecall is how many memories the chat pulls into each prompt.
	MaxRecall uint `toml:"max_recall,omitempty"`
}

// PersonaConfig holds persona settings.
type PersonaConfig struct {
	Name string `toml:"name,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter
// on *Config. Secret keys are prompted for rather than echoed on the
// command line.
type configKeyInfo struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

func durationSetter(target func(c *Config) *string, key string) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		*target(c) = v
		return nil
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.provider": {
		get: func(c *Config) string { return c.Storage.Provider },
		set: func(c *Config, v string) error { c.Storage.Provider = v; return nil },
	},
	"storage.target": {
		get: func(c *Config) string { return c.Storage.Target },
		set: func(c *Config, v string) error { c.Storage.Target = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"client.api_target": {
		get: func(c *Config) string { return c.Client.APITarget },
		set: func(c *Config, v string) error { c.Client.APITarget = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"vector_store.collection": {
		get: func(c *Config) string { return c.VectorStore.Collection },
		set: func(c *Config, v string) error { c.VectorStore.Collection = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.api_key": {
		get:    func(c *Config) string { return c.Embedding.APIKey },
		set:    func(c *Config, v string) error { c.Embedding.APIKey = v; return nil },
		secret: true,
	},
	"llm.provider": {
		get: func(c *Config) string { return c.LLM.Provider },
		set: func(c *Config, v string) error { c.LLM.Provider = v; return nil },
	},
	"llm.target": {
		get: func(c *Config) string { return c.LLM.Target },
		set: func(c *Config, v string) error { c.LLM.Target = v; return nil },
	},
	"llm.model": {
		get: func(c *Config) string { return c.LLM.Model },
		set: func(c *Config, v string) error { c.LLM.Model = v; return nil },
	},
	"llm.api_key": {
		get:    func(c *Config) string { return c.LLM.APIKey },
		set:    func(c *Config, v string) error { c.LLM.APIKey = v; return nil },
		secret: true,
	},
	"recall.limit": {
		get: func(c *Config) string {
			if c.Recall.Limit == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Recall.Limit), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for recall.limit: %w", err)
			}
			c.Recall.Limit = uint(n)
			return nil
		},
	},
	"recall.min_similarity": {
		get: func(c *Config) string {
			if c.Recall.MinSimilarity == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Recall.MinSimilarity, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for recall.min_similarity: %w", err)
			}
			c.Recall.MinSimilarity = f
			return nil
		},
	},
	"sweep.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Sweep.IsEnabled()) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for sweep.enabled: %w", err)
			}
			c.Sweep.Enabled = &b
			return nil
		},
	},
	"sweep.interval": {
		get: func(c *Config) string { return c.Sweep.Interval },
		set: durationSetter(func(c *Config) *string { return &c.Sweep.Interval }, "sweep.interval"),
	},
	"sweep.max_age": {
		get: func(c *Config) string { return c.Sweep.MaxAge },
		set: durationSetter(func(c *Config) *string { return &c.Sweep.MaxAge }, "sweep.max_age"),
	},
	"sweep.max_importance": {
		get: func(c *Config) string {
			if c.Sweep.MaxImportance == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Sweep.MaxImportance, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for sweep.max_importance: %w", err)
			}
			c.Sweep.MaxImportance = f
			return nil
		},
	},
	"sweep.dedup_threshold": {
		get: func(c *Config) string {
			if c.Sweep.DedupThreshold == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Sweep.DedupThreshold, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for sweep.dedup_threshold: %w", err)
			}
			c.Sweep.DedupThreshold = f
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"chat.max_recall": {
		get: func(c *Config) string {
			if c.Chat.MaxRecall == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Chat.MaxRecall), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for chat.max_recall: %w", err)
			}
			c.Chat.MaxRecall = uint(n)
			return nil
		},
	},
	"persona.name": {
		get: func(c *Config) string { return c.Persona.Name },
		set: func(c *Config, v string) error { c.Persona.Name = v; return nil },
	},
}

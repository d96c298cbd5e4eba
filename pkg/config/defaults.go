package config

const (
	defaultStorageProvider = "sqlite"

	defaultAPIListen       = ":8080"
	defaultClientAPITarget = "http://localhost:8080"

	defaultVectorProvider   = "sqlitevec"
	defaultVectorCollection = "engram"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "embeddinggemma"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMTarget   = "http://localhost:11434"
	defaultLLMModel    = "llama3.2"

	defaultRecallLimit         = 10
	defaultRecallMinSimilarity = 0.3

	defaultSweepInterval       = "24h"
	defaultSweepMaxAge         = "720h"
	defaultSweepMaxImportance  = 3
	defaultSweepDedupThreshold = 0.8

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "engram.memories"

	defaultChatMaxRecall = 5

	defaultPersonaName = "Ember"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	enabled := true

	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultLLMTarget,
			Model:    defaultLLMModel,
		},
		Recall: RecallConfig{
			Limit:         defaultRecallLimit,
			MinSimilarity: defaultRecallMinSimilarity,
		},
		Sweep: SweepConfig{
			Enabled:        &enabled,
			Interval:       defaultSweepInterval,
			MaxAge:         defaultSweepMaxAge,
			MaxImportance:  defaultSweepMaxImportance,
			DedupThreshold: defaultSweepDedupThreshold,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Chat: ChatConfig{
			MaxRecall: defaultChatMaxRecall,
		},
		Persona: PersonaConfig{
			Name: defaultPersonaName,
		},
	}
}

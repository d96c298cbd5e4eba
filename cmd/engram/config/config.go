// Package configcmder provides the config command for managing persistent
// engram configuration stored in the .engram/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent engram configuration.

Configuration is stored as config.toml in the .engram/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.target,
  api.listen, client.api_target,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model,
  embedding.dimensions, embedding.api_key,
  llm.provider, llm.target, llm.model, llm.api_key,
  recall.limit, recall.min_similarity,
  sweep.enabled, sweep.interval, sweep.max_age, sweep.max_importance,
  sweep.dedup_threshold,
  events.provider, events.brokers, events.topic,
  chat.max_recall, persona.name

Use subcommands to get, set, or list configuration values:
  engram config set <key> [value]   Set a configuration value
  engram config get <key>           Get a configuration value
  engram config list                List all configuration values

Secret keys (embedding.api_key, llm.api_key) prompt for the value with
hidden input when it is omitted from the command line.

Examples:
  engram config set llm.provider openai
  engram config set llm.model gpt-4o-mini
  engram config set llm.api_key
  engram config get embedding.model
  engram config list`

const configShortDesc string = "Manage persistent engram configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

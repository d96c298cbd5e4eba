// Package browsecmder provides the browse command: a TUI for walking the
// memory store, drilling into records, and pruning the ones that no longer
// belong.
package browsecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/memory"
)

const browseLongDesc string = `Browse the memory store in a TUI.

Lists every memory with its type, importance, emotional weight, and access
count. Drill into a record for the full content and metadata, filter by
typing, cycle the type filter and sort order, and delete records that no
longer belong.

Examples:
  engram browse
  engram browse --type preference
  engram browse --user maya
  engram browse --sqlite ./engram.sqlite`

const browseShortDesc string = "Browse memories in a TUI"

type browseCommander struct {
	sqlite  string
	recType string
	user    string

	configDir string
}

func NewBrowseCmd() *cobra.Command {
	cmder := &browseCommander{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: browseShortDesc,
		Long:  browseLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")
	cmd.Flags().StringVarP(&cmder.recType, "type", "t", "", "Start filtered to one memory type")
	cmd.Flags().StringVarP(&cmder.user, "user", "u", "", "Start filtered to one related user")

	return cmd
}

func (c *browseCommander) run(ctx context.Context) error {
	if c.recType != "" && !memory.Type(c.recType).Valid() {
		return fmt.Errorf("unknown memory type %q", c.recType)
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	driver, err := providers.OpenExistingStore(ctx, cfg, c.configDir, c.sqlite)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer driver.Close()

	records, err := driver.All(ctx)
	if err != nil {
		return fmt.Errorf("loading memories: %w", err)
	}

	return runBrowseTUI(ctx, driver, records, memory.Type(c.recType), c.user)
}

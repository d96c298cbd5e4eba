// Package statscmder provides the stats command for store totals.
package statscmder

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/memory"
)

const statsLongDesc string = `Show memory store totals.

Prints the total number of memories, a per-type breakdown, and the
average importance across the store.

Examples:
  engram stats
  engram stats --sqlite ./engram.sqlite`

const statsShortDesc string = "Show memory store totals"

type statsCommander struct {
	sqlite string

	configDir string
}

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *statsCommander) run(ctx context.Context, out io.Writer) error {
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

	stats, err := driver.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n",
		cliui.KeyStyle.Render("Memories:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d", stats.Total)),
	)

	for _, typ := range memory.Types() {
		count := stats.ByType[typ]
		if count == 0 {
			continue
		}
		fmt.Fprintf(out, "  %s %s\n",
			cliui.TypeStyle.Render(fmt.Sprintf("%-12s", typ)),
			cliui.ValueStyle.Render(fmt.Sprintf("%d", count)),
		)
	}

	fmt.Fprintf(out, "%s %s\n",
		cliui.KeyStyle.Render("Average importance:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%.1f", stats.AverageImportance)),
	)

	return nil
}

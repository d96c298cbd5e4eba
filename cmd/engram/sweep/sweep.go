// Package sweepcmder provides the sweep command for running store upkeep
// on demand.
package sweepcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/upkeep"
)

const sweepLongDesc string = `Run a maintenance sweep over the memory store.

Decay removes memories that have not been accessed within the age cutoff
and whose importance sits at or below the importance cap. Milestones and
requests are never removed. With --dedup, near-duplicate memories are
also merged; the higher-importance copy survives with the union of both
tag lists.

The serve daemon runs the same sweep on a schedule; this command is for
running one by hand.

Examples:
  engram sweep
  engram sweep --max-age-days 60 --max-importance 2
  engram sweep --dedup --threshold 0.9`

const sweepShortDesc string = "Run a maintenance sweep"

type sweepCommander struct {
	maxAgeDays    uint
	maxImportance float64
	dedup         bool
	threshold     float64
	sqlite        string

	configDir string
	debug     bool
}

func NewSweepCmd() *cobra.Command {
	cmder := &sweepCommander{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: sweepShortDesc,
		Long:  sweepLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("max-age-days") {
				if d, err := time.ParseDuration(cfg.Sweep.MaxAge); err == nil && d > 0 {
					cmder.maxAgeDays = uint(d.Hours() / 24)
				}
			}
			if !cmd.Flags().Changed("max-importance") {
				cmder.maxImportance = cfg.Sweep.MaxImportance
			}
			if !cmd.Flags().Changed("threshold") {
				cmder.threshold = cfg.Sweep.DedupThreshold
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().UintVar(&cmder.maxAgeDays, "max-age-days", 30, "Remove memories untouched for this many days")
	cmd.Flags().Float64Var(&cmder.maxImportance, "max-importance", upkeep.DefaultMaxImportance, "Highest importance decay may remove")
	cmd.Flags().BoolVar(&cmder.dedup, "dedup", false, "Also merge near-duplicate memories")
	cmd.Flags().Float64Var(&cmder.threshold, "threshold", upkeep.DefaultThreshold, "Similarity at which duplicates merge")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *sweepCommander) run(ctx context.Context, out io.Writer) error {
	log := logger.New(logger.WithPretty(true), logger.WithDebug(c.debug), logger.WithWriter(os.Stderr))

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

	pub, err := providers.NewPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("opening event stream: %w", err)
	}
	defer pub.Close()

	mgr := engram.NewManager(driver, engram.WithLogger(log), engram.WithEvents(pub))

	decayRes, err := mgr.RunDecay(ctx, upkeep.DecayOptions{
		MaxAge:        time.Duration(c.maxAgeDays) * 24 * time.Hour,
		MaxImportance: c.maxImportance,
	})
	if err != nil {
		return fmt.Errorf("decay failed: %w", err)
	}

	fmt.Fprintf(out, "%s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("Decay:"),
		cliui.ValueStyle.Render(fmt.Sprintf("scanned %d, removed %d", decayRes.Scanned, decayRes.Removed)),
	)
	for _, id := range decayRes.RemovedIDs {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(id))
	}

	if !c.dedup {
		return nil
	}

	dedupRes, err := mgr.RunDedup(ctx, upkeep.DedupOptions{Threshold: c.threshold})
	if err != nil {
		return fmt.Errorf("dedup failed: %w", err)
	}

	fmt.Fprintf(out, "%s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("Dedup:"),
		cliui.ValueStyle.Render(fmt.Sprintf("scanned %d, removed %d", dedupRes.Scanned, dedupRes.Removed)),
	)
	for _, id := range dedupRes.RemovedIDs {
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(id))
	}

	return nil
}

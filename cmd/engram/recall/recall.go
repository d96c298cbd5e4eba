// Package recallcmder provides the recall command for searching memories.
package recallcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	typeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("135"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const recallLongDesc string = `Search memories in the store.

Keyword recall matches query tokens against memory content and ranks by
overlap, importance, and recency. With --semantic the query is embedded
and matched against stored embeddings instead, falling back to keyword
recall when no embedder is configured.

Recalled memories count as accessed: their access count rises, which
protects them from decay sweeps.

Use --quiet to output only memory IDs, one per line, for piping.

Examples:
  engram recall "bread"
  engram recall "what does maya like to eat" --semantic
  engram recall "hiking" --limit 3
  engram recall "emoji" --quiet`

const recallShortDesc string = "Search memories"

type recallCommander struct {
	query    string
	limit    uint
	semantic bool
	quiet    bool
	sqlite   string

	configDir string
	debug     bool
}

func NewRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.ExactArgs(1),
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

			if !cmd.Flags().Changed("limit") {
				cmder.limit = cfg.Recall.Limit
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().UintVarP(&cmder.limit, "limit", "n", defaults.Recall.Limit, "Maximum number of memories to return")
	cmd.Flags().BoolVar(&cmder.semantic, "semantic", false, "Embed the query and rank by vector similarity")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only memory IDs, one per line (for piping)")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *recallCommander) run(ctx context.Context, out io.Writer) error {
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

	mopts := []engram.Option{engram.WithLogger(log)}

	if c.semantic {
		embedder, err := providers.NewEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("opening embedder: %w", err)
		}
		if embedder != nil {
			defer embedder.Close()
			mopts = append(mopts, engram.WithEmbedder(embedder))
		}

		index, err := providers.OpenVector(ctx, cfg, c.configDir, log)
		if err != nil {
			return fmt.Errorf("opening vector index: %w", err)
		}
		if index != nil {
			defer index.Close()
			mopts = append(mopts, engram.WithVectorIndex(index))
		}

		if cfg.Recall.MinSimilarity > 0 {
			mopts = append(mopts, engram.WithMinSimilarity(cfg.Recall.MinSimilarity))
		}
	}

	mgr := engram.NewManager(driver, mopts...)

	var records []memory.Record
	if c.semantic {
		records, err = mgr.SearchSemantic(ctx, c.query, int(c.limit))
	} else {
		records, err = mgr.Search(ctx, c.query, int(c.limit))
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		if !c.quiet {
			fmt.Fprintln(out, "No memories found.")
		}
		return nil
	}

	if c.quiet {
		for _, rec := range records {
			fmt.Fprintln(out, rec.ID)
		}
		return nil
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		headerStyle.Render("Recalled for:"),
		idStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, rec := range records {
		printRecord(out, i+1, rec)
	}

	return nil
}

func printRecord(out io.Writer, rank int, rec memory.Record) {
	fmt.Fprintf(out, "  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		typeStyle.Render(string(rec.Type)),
		idStyle.Render(rec.ID),
	)

	preview := rec.Content
	if len(preview) > 80 {
		preview = preview[:77] + "..."
	}
	preview = strings.ReplaceAll(preview, "\n", " ")
	fmt.Fprintf(out, "  %s\n", previewStyle.Render(preview))

	meta := fmt.Sprintf("importance %d  weight %d  accessed %d times",
		rec.Importance, rec.EmotionalWeight, rec.AccessCount)
	if len(rec.Tags) > 0 {
		meta += "  tags " + strings.Join(rec.Tags, ", ")
	}
	if rec.RelatedUser != "" {
		meta += "  user " + rec.RelatedUser
	}
	fmt.Fprintf(out, "  %s\n\n", dimStyle.Render(meta))
}

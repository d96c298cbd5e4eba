// Package remembercmder provides the remember command for writing a
// single memory to the store.
package remembercmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/utils"
)

const rememberLongDesc string = `Write a memory to the store.

The content is the only required part. Type defaults to "fact";
importance and emotional weight are clamped into their ranges on write.
With --embed the content is also run through the configured embedding
provider and indexed for semantic recall.

Examples:
  engram remember "Maya prefers rye bread over wheat"
  engram remember "Asked me to stop using emoji" --type request --importance 8
  engram remember "First hike together" --type milestone --weight 4 --tag outdoors
  engram remember "Allergic to shellfish" --type fact --importance 10 --user maya --embed`

const rememberShortDesc string = "Write a memory to the store"

type rememberCommander struct {
	recType    string
	recContext string
	importance float64
	weight     float64
	tags       []string
	user       string
	embed      bool
	sqlite     string

	importanceSet bool
	weightSet     bool

	configDir string
	debug     bool
}

func NewRememberCmd() *cobra.Command {
	cmder := &rememberCommander{}

	cmd := &cobra.Command{
		Use:   "remember <content>",
		Short: rememberShortDesc,
		Long:  rememberLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.importanceSet = cmd.Flags().Changed("importance")
			cmder.weightSet = cmd.Flags().Changed("weight")

			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVarP(&cmder.recType, "type", "t", string(memory.TypeFact), "Memory type (fact, preference, event, milestone, reflection, request, pattern)")
	cmd.Flags().StringVarP(&cmder.recContext, "context", "c", "", "Where or how the memory came up")
	cmd.Flags().Float64VarP(&cmder.importance, "importance", "i", 0, "Importance from 1 to 10")
	cmd.Flags().Float64VarP(&cmder.weight, "weight", "w", 0, "Emotional weight from -5 to 5")
	cmd.Flags().StringArrayVar(&cmder.tags, "tag", nil, "Tag for the memory (repeatable)")
	cmd.Flags().StringVarP(&cmder.user, "user", "u", "", "Person this memory relates to")
	cmd.Flags().BoolVarP(&cmder.embed, "embed", "e", false, "Embed the content and index it for semantic recall")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	_ = cmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(memory.Types()))
		for _, t := range memory.Types() {
			names = append(names, string(t))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *rememberCommander) run(ctx context.Context, content string) error {
	log := logger.New(logger.WithPretty(true), logger.WithDebug(c.debug), logger.WithWriter(os.Stderr))

	recType := memory.Type(c.recType)
	if !recType.Valid() {
		return fmt.Errorf("unknown memory type %q (valid: %s)", c.recType, typeNames())
	}

	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	driver, err := providers.OpenStore(ctx, cfg, c.configDir, c.sqlite)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer driver.Close()

	pub, err := providers.NewPublisher(cfg, log)
	if err != nil {
		return fmt.Errorf("opening event stream: %w", err)
	}
	defer pub.Close()

	mopts := []engram.Option{
		engram.WithLogger(log),
		engram.WithEvents(pub),
	}

	if c.embed {
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
	}

	mgr := engram.NewManager(driver, mopts...)

	opts := engram.RememberOpts{
		Context:     c.recContext,
		Tags:        c.tags,
		RelatedUser: c.user,
	}
	if c.importanceSet {
		opts.Importance = &c.importance
	}
	if c.weightSet {
		opts.EmotionalWeight = &c.weight
	}

	var rec memory.Record
	if c.embed {
		rec, err = mgr.RememberWithEmbedding(ctx, content, recType, opts)
	} else {
		rec, err = mgr.Remember(ctx, content, recType, opts)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s %s\n",
		cliui.SuccessMark,
		cliui.IDStyle.Render(rec.ID),
		cliui.TypeStyle.Render(string(rec.Type)),
	)
	fmt.Printf("  %s\n", cliui.PreviewStyle.Render(utils.Truncate(rec.Content, 80)))

	meta := fmt.Sprintf("importance %d  weight %d", rec.Importance, rec.EmotionalWeight)
	if len(rec.Tags) > 0 {
		meta += "  tags " + strings.Join(rec.Tags, ", ")
	}
	if len(rec.Embedding) > 0 {
		meta += "  embedded"
	}
	fmt.Printf("  %s\n", cliui.DimStyle.Render(meta))

	return nil
}

func typeNames() string {
	names := make([]string, 0, len(memory.Types()))
	for _, t := range memory.Types() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

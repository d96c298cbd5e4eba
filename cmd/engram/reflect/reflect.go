// Package reflectcmder provides the reflect command for composing one
// reflection from recent memories.
package reflectcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/reflection"
)

const reflectLongDesc string = `Compose one reflection from recent memories.

The configured model reads a window of recent memories and writes back
a single insight connecting them, stored as a regular memory of type
reflection. Reflections surface in recall like any other memory but are
never used as sources for later reflections.

Requires a reachable llm provider; run "engram status" to check.

Examples:
  engram reflect
  engram reflect --limit 50`

const reflectShortDesc string = "Compose a reflection from recent memories"

type reflectCommander struct {
	limit  uint
	sqlite string

	configDir string
}

func NewReflectCmd() *cobra.Command {
	cmder := &reflectCommander{}

	cmd := &cobra.Command{
		Use:   "reflect",
		Short: reflectShortDesc,
		Long:  reflectLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().UintVarP(&cmder.limit, "limit", "l", reflection.DefaultSources, "How many recent memories to reflect over")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *reflectCommander) run(ctx context.Context, out io.Writer) error {
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

	generate, err := providers.NewLLM(cfg)
	if err != nil {
		return fmt.Errorf("opening llm: %w", err)
	}

	composer := reflection.NewComposer(driver, generate)

	var rec memory.Record
	err = cliui.Step(out, "Reflecting on recent memories", func() error {
		var composeErr error
		rec, composeErr = composer.Compose(ctx, int(c.limit))
		return composeErr
	})
	if errors.Is(err, reflection.ErrNoMemories) {
		fmt.Fprintln(out, cliui.DimStyle.Render("Nothing to reflect on yet. Remember something first."))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s %s\n",
		cliui.IDStyle.Render(rec.ID),
		cliui.TypeStyle.Render(string(rec.Type)),
	)
	fmt.Fprintf(out, "  %s\n", cliui.PreviewStyle.Render(rec.Content))

	meta := fmt.Sprintf("importance %d  %s", rec.Importance, rec.Context)
	if len(rec.Tags) > 0 {
		meta += "  tags " + strings.Join(rec.Tags, ", ")
	}
	fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render(meta))

	return nil
}

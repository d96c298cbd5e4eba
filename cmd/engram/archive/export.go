package archivecmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/archive"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
)

const exportLongDesc string = `Write every memory in the store as JSON Lines.

Memories are written one JSON document per line, ordered by creation
time, to stdout or to the file named with --output. Exporting does not
count as an access, so recall rankings are unaffected.

Examples:
  engram archive export
  engram archive export -o memories.jsonl
  engram archive export | jq -r .content`

const exportShortDesc string = "Write the store as JSON Lines"

type exportCommander struct {
	output string
	sqlite string

	configDir string
}

func newExportCmd() *cobra.Command {
	cmder := &exportCommander{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: exportShortDesc,
		Long:  exportLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *exportCommander) run(ctx context.Context, out io.Writer) error {
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

	// With no output file the archive streams to stdout, so nothing else
	// may be written there.
	if c.output == "" {
		_, err := archive.Export(ctx, driver, out)
		return err
	}

	f, err := os.Create(c.output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", c.output, err)
	}

	count, err := archive.Export(ctx, driver, f)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", c.output, err)
	}

	fmt.Fprintf(out, "%s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("Exported:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%d memories to %s", count, c.output)),
	)

	return nil
}

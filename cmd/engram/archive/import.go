package archivecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/archive"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

const importLongDesc string = `Replay a JSON Lines archive into the memory store.

Each line is stored as a new memory with a fresh ID, timestamps and
access count. Malformed lines and lines that fail validation are
skipped and counted rather than aborting the import.

With --watch the path names a directory instead of a file. Archives
already present are imported right away, and .jsonl files dropped in
afterwards are imported once their writes settle. The watch runs until
interrupted.

Examples:
  engram archive import memories.jsonl
  engram archive import drops/ --watch`

const importShortDesc string = "Replay an archive into the store"

type importCommander struct {
	watch  bool
	sqlite string

	configDir string
	debug     bool
}

func newImportCmd() *cobra.Command {
	cmder := &importCommander{}

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.debug, _ = cmd.Flags().GetBool("debug")

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Watch a directory and import archives dropped into it")
	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *importCommander) run(ctx context.Context, out io.Writer, path string) error {
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

	if c.watch {
		return c.runWatch(ctx, out, driver, path)
	}

	res, err := archive.ImportFile(ctx, driver, path)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("%d memories", res.Imported)
	if res.Skipped > 0 {
		summary += fmt.Sprintf(" (%d skipped)", res.Skipped)
	}
	fmt.Fprintf(out, "%s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render("Imported:"),
		cliui.ValueStyle.Render(summary),
	)

	return nil
}

// runWatch blocks until the watch fails or the process is interrupted.
func (c *importCommander) runWatch(ctx context.Context, out io.Writer, driver memory.Driver, dir string) error {
	log := logger.New(logger.WithPretty(true), logger.WithDebug(c.debug), logger.WithWriter(os.Stderr))

	watcher := archive.NewWatcher(driver, archive.WatchConfig{Logger: log})

	fmt.Fprintln(out, cliui.DimStyle.Render(fmt.Sprintf("Watching %s for .jsonl archives. Press ctrl-c to stop.", dir)))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- watcher.Run(runCtx, dir)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-sigChan:
		cancel()
		<-errChan
		return nil
	}
}

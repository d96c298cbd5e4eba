// Package statuscmder provides the status command for showing the resolved
// configuration, store totals, chat session state, and provider reachability.
package statuscmder

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/dotdir"
)

const statusLongDesc string = `Show the current engram state.

Displays the resolved config file, the memory store totals, any saved chat
session, and whether the configured embedding, LLM, and API endpoints are
reachable.

Examples:
  engram status`

const statusShortDesc string = "Show config, store, and provider status"

const probeTimeout = 2 * time.Second

type statusCommander struct {
	sqlite string

	configDir string
}

func NewStatusCmd() *cobra.Command {
	cmder := &statusCommander{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlite, "sqlite", "s", "", "Path to the sqlite store")

	return cmd
}

func (c *statusCommander) run(ctx context.Context, out io.Writer) error {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Fprintln(out)

	configPath := cfger.GetTarget()
	if configPath == "" {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.KeyStyle.Render("Config:  "),
			cliui.DimStyle.Render("defaults (no config file)"),
		)
	} else {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.KeyStyle.Render("Config:  "),
			cliui.ValueStyle.Render(configPath),
		)
	}

	storageProvider := cfg.Storage.Provider
	if storageProvider == "" {
		storageProvider = "sqlite"
	}
	fmt.Fprintf(out, "  %s %s\n",
		cliui.KeyStyle.Render("Storage: "),
		cliui.ValueStyle.Render(storageProvider),
	)

	c.printStoreLine(ctx, out, cfg)
	printSessionLine(out, c.configDir)

	fmt.Fprintln(out)

	embProvider := cfg.Embedding.Provider
	if embProvider != "none" {
		printProbeLine(out, "embedding", embProvider, cfg.Embedding.Target,
			probeHTTP(ctx, cfg.Embedding.Target))
	}

	printProbeLine(out, "llm", cfg.LLM.Provider, cfg.LLM.Target,
		probeHTTP(ctx, cfg.LLM.Target))

	apiTarget := strings.TrimRight(cfg.Client.APITarget, "/") + "/ping"
	printProbeLine(out, "api", "", cfg.Client.APITarget, probeHTTP(ctx, apiTarget))

	switch cfg.VectorStore.Provider {
	case "chroma":
		printProbeLine(out, "vector", "chroma", cfg.VectorStore.Target,
			probeHTTP(ctx, cfg.VectorStore.Target))
	case "qdrant":
		addr := grpcAddr(cfg.VectorStore.Target)
		printProbeLine(out, "vector", "qdrant", addr, probeTCP(addr))
	}

	if cfg.Events.Provider == "kafka" {
		broker := firstBroker(cfg.Events.Brokers)
		printProbeLine(out, "events", "kafka", broker, probeTCP(broker))
	}

	fmt.Fprintln(out)
	return nil
}

func (c *statusCommander) printStoreLine(ctx context.Context, out io.Writer, cfg *config.Config) {
	driver, err := providers.OpenExistingStore(ctx, cfg, c.configDir, c.sqlite)
	if err != nil {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.KeyStyle.Render("Memories:"),
			cliui.DimStyle.Render("no store ("+err.Error()+")"),
		)
		return
	}
	defer driver.Close()

	stats, err := driver.Stats(ctx)
	if err != nil {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.KeyStyle.Render("Memories:"),
			cliui.DimStyle.Render(err.Error()),
		)
		return
	}

	fmt.Fprintf(out, "  %s %s\n",
		cliui.KeyStyle.Render("Memories:"),
		cliui.ValueStyle.Render(strconv.Itoa(stats.Total)),
	)
}

func printSessionLine(out io.Writer, configDir string) {
	state, err := dotdir.NewManager().LoadSession(configDir)
	if err != nil || state == nil {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.KeyStyle.Render("Session: "),
			cliui.DimStyle.Render("none (next chat starts fresh)"),
		)
		return
	}

	fmt.Fprintf(out, "  %s %s %s\n",
		cliui.KeyStyle.Render("Session: "),
		cliui.ValueStyle.Render(fmt.Sprintf("%d messages", len(state.Messages))),
		cliui.DimStyle.Render("since "+state.StartedAt.Format("2006-01-02 15:04")),
	)
}

func printProbeLine(out io.Writer, name, provider, target string, probeErr error) {
	label := name
	if provider != "" {
		label = name + " (" + provider + ")"
	}

	if probeErr != nil {
		fmt.Fprintf(out, "  %s %s %s\n",
			cliui.FailMark,
			cliui.ValueStyle.Render(fmt.Sprintf("%-16s", label)),
			cliui.DimStyle.Render(target+"  unreachable"),
		)
		return
	}

	fmt.Fprintf(out, "  %s %s %s\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(fmt.Sprintf("%-16s", label)),
		cliui.DimStyle.Render(target),
	)
}

// probeHTTP checks whether an HTTP endpoint answers at all. Any response
// counts as reachable, since a 401 or 404 still proves the host is up;
// only transport errors count against it.
func probeHTTP(ctx context.Context, target string) error {
	if target == "" {
		return fmt.Errorf("no target configured")
	}

	client := &http.Client{Timeout: probeTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}

func probeTCP(addr string) error {
	if addr == "" {
		return fmt.Errorf("no target configured")
	}

	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		return err
	}
	return conn.Close()
}

// grpcAddr normalizes a qdrant target to host:port, defaulting to the
// gRPC port when none is given.
func grpcAddr(target string) string {
	if target == "" {
		return ""
	}
	if _, _, err := net.SplitHostPort(target); err == nil {
		return target
	}
	return net.JoinHostPort(target, "6334")
}

func firstBroker(brokers string) string {
	for _, b := range strings.Split(brokers, ",") {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

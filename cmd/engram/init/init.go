// Package initcmder provides the init command for initializing a local
// .engram directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/providers"
	"github.com/papercomputeco/engram/cmd/engram/sqlitepath"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
)

const (
	dirName    = ".engram"
	configFile = "config.toml"

	// remoteConfigLimit caps how much of a remote config we read. A
	// config.toml is a few hundred bytes; anything near the cap is not one.
	remoteConfigLimit = 1 << 20
)

const initLongDesc string = `Initialize a new .engram/ directory in the current working directory.

Creates a local .engram/ directory that takes precedence over the default
~/.engram/ directory for configuration, the memory store, chat session
state, and other engram operations. The memory store is created and
migrated so the first remember works immediately.

A preset fills in provider settings for common setups. Passing a URL
instead of a preset name fetches a shared config.toml from a remote
source, which keeps a team on the same providers.

Examples:
  engram init
  engram init --preset ollama
  engram init --preset anthropic
  engram init --preset https://example.com/engram/config.toml`

const initShortDesc string = "Initialize a local .engram/ directory"

type InitCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &InitCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset (ollama, openai, anthropic) or a config.toml URL")

	_ = cmd.RegisterFlagCompletionFunc("preset", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *InitCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	freshDir := true
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		freshDir = false
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .engram directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(filepath.Join(dir, configFile))

	wroteConfig := false
	switch {
	case c.preset != "":
		cfg, err := c.resolvePreset()
		if err != nil {
			return err
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
		wroteConfig = true
	case statErr != nil:
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}
		wroteConfig = true
	}

	// Reload so provider resolution sees the saved values merged with
	// defaults.
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}

	// Pin the store to this directory so init never adopts a database
	// discovered elsewhere.
	override := ""
	if (cfg.Storage.Provider == "" || cfg.Storage.Provider == "sqlite") && cfg.Storage.Target == "" {
		override = filepath.Join(dir, sqlitepath.StoreFileName)
	}

	err = cliui.Step(os.Stdout, "Preparing memory store", func() error {
		driver, err := providers.OpenStore(ctx, cfg, dir, override)
		if err != nil {
			return err
		}
		return driver.Close()
	})
	if err != nil {
		return err
	}

	if freshDir {
		fmt.Printf("Initialized .engram directory: %s\n", dir)
	} else {
		fmt.Printf("Already initialized: %s\n", dir)
	}
	if wroteConfig {
		fmt.Printf("Wrote config: %s\n", cfger.GetTarget())
	}

	return nil
}

// resolvePreset maps the --preset value to a config, fetching it when
// the value is a URL.
func (c *InitCommander) resolvePreset() (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(c.preset)
	}
	return config.PresetConfig(c.preset)
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, remoteConfigLimit))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}

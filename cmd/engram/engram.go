// Package engramcmder
package engramcmder

import (
	archivecmder "github.com/papercomputeco/engram/cmd/engram/archive"
	browsecmder "github.com/papercomputeco/engram/cmd/engram/browse"
	chatcmder "github.com/papercomputeco/engram/cmd/engram/chat"
	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	initcmder "github.com/papercomputeco/engram/cmd/engram/init"
	pathcmder "github.com/papercomputeco/engram/cmd/engram/path"
	recallcmder "github.com/papercomputeco/engram/cmd/engram/recall"
	reflectcmder "github.com/papercomputeco/engram/cmd/engram/reflect"
	remembercmder "github.com/papercomputeco/engram/cmd/engram/remember"
	seedcmder "github.com/papercomputeco/engram/cmd/engram/seed"
	servecmder "github.com/papercomputeco/engram/cmd/engram/serve"
	statscmder "github.com/papercomputeco/engram/cmd/engram/stats"
	statuscmder "github.com/papercomputeco/engram/cmd/engram/status"
	sweepcmder "github.com/papercomputeco/engram/cmd/engram/sweep"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
	"github.com/spf13/cobra"
)

const engramLongDesc string = `Engram is a persistent memory engine for AI companions.

Memories are typed, weighted records that decay when untouched and
strengthen when recalled. Store them from the command line or over
HTTP and MCP, recall them by keyword or meaning, and let upkeep
sweeps forget what stopped mattering.

Get started:
  engram init         Create the .engram/ directory and defaults
  engram remember     Write a memory to the store
  engram recall       Search memories
  engram chat         Talk with a persona that remembers
  engram serve        Run the memory daemon`

const engramShortDesc string = "Engram - Persistent memory for AI companions"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .engram/ config directory")

	// Add subcommands
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(remembercmder.NewRememberCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(sweepcmder.NewSweepCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(pathcmder.NewPathCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(browsecmder.NewBrowseCmd())
	cmd.AddCommand(archivecmder.NewArchiveCmd())
	cmd.AddCommand(reflectcmder.NewReflectCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// Package pathcmder provides the path command for printing the resolved
// memory store location.
package pathcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/sqlitepath"
	"github.com/papercomputeco/engram/pkg/config"
)

const pathLongDesc string = `Print the resolved memory store path.

Resolution follows the same chain every other command uses: the
configured storage.target, then the ENGRAM_SQLITE and ENGRAM_DB
environment variables, then known store locations relative to the
current directory and the home directory. For non-sqlite providers the
configured target is printed as-is.

The output is a single line, so it composes with other tools:

Examples:
  engram path
  sqlite3 "$(engram path)" 'SELECT COUNT(*) FROM memories'`

const pathShortDesc string = "Print the resolved memory store path"

type PathCommander struct{}

func NewPathCmd() *cobra.Command {
	cmder := &PathCommander{}

	cmd := &cobra.Command{
		Use:   "path",
		Short: pathShortDesc,
		Long:  pathLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd, configDir)
		},
	}

	return cmd
}

func (c *PathCommander) run(cmd *cobra.Command, configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return err
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}

	if cfg.Storage.Provider != "" && cfg.Storage.Provider != "sqlite" {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Storage.Target)
		return nil
	}

	target := cfg.Storage.Target
	if target == "" {
		target, err = sqlitepath.ResolveSQLitePath("")
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), target)
	return nil
}

package seedcmder

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/cmd/engram/sqlitepath"
	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/engram"
	"github.com/papercomputeco/engram/pkg/memory/sqlite"
)

const seedLongDesc string = `Seed demo memories into a SQLite store.

Examples:
  engram seed
  engram seed --sqlite ./engram.sqlite
  engram seed --overwrite`

const seedShortDesc string = "Seed demo memories"

type seedCommander struct {
	sqlitePath string
	overwrite  bool

	configDir string
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to SQLite store")
	cmd.Flags().BoolVarP(&cmder.overwrite, "overwrite", "f", false, "Clear existing memories before seeding")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	sqlitePath, err := c.resolveSQLitePath()
	if err != nil {
		return err
	}

	var count int
	if err := cliui.Step(os.Stdout, "Seeding demo memories", func() error {
		driver, err := sqlite.NewDriver(ctx, sqlite.Config{Target: sqlitePath})
		if err != nil {
			return err
		}
		defer driver.Close()

		count, err = engram.SeedDemo(ctx, driver, c.overwrite)
		return err
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Seeded %s memories into %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(count)),
		cliui.DimStyle.Render(sqlitePath),
	)
	return nil
}

func (c *seedCommander) resolveSQLitePath() (string, error) {
	if strings.TrimSpace(c.sqlitePath) != "" {
		return c.sqlitePath, nil
	}

	path, err := sqlitepath.ResolveSQLitePath("")
	if err == nil {
		return path, nil
	}

	return sqlitepath.DefaultSQLitePath(c.configDir)
}

// Package archivecmder provides the archive command for moving memories
// in and out of a store as JSON Lines.
package archivecmder

import (
	"github.com/spf13/cobra"
)

const archiveLongDesc string = `Move memories in and out of a store as JSON Lines.

Export writes every memory to stdout or a file, one JSON document per
line. Import replays an archive into a store; replayed memories get
fresh IDs, timestamps and access counts, so an archive doubles as a
seed file or a migration path between storage providers.

Use subcommands to export or import:
  engram archive export             Write the store as JSON Lines
  engram archive import <file>      Replay an archive into the store

Examples:
  engram archive export -o memories.jsonl
  engram archive export | gzip > memories.jsonl.gz
  engram archive import memories.jsonl
  engram archive import drops/ --watch`

const archiveShortDesc string = "Export and import memory archives"

func NewArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: archiveShortDesc,
		Long:  archiveLongDesc,
	}

	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newImportCmd())

	return cmd
}

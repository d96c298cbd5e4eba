// Package versioncmder
package versioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/utils"
)

type VersionCommander struct{}

func NewVersionCmd() *cobra.Command {
	cmder := &VersionCommander{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "displays version",
		Long:  "displays the version of this CLI",
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	return cmd
}

func (c *VersionCommander) run() error {
	fmt.Printf("%s %s\n", cliui.KeyStyle.Render("Version:"), cliui.ValueStyle.Render(utils.Version))
	fmt.Printf("%s %s\n", cliui.KeyStyle.Render("Sha:"), cliui.ValueStyle.Render(utils.Sha))
	fmt.Printf("%s %s\n", cliui.KeyStyle.Render("Built at:"), cliui.ValueStyle.Render(utils.Buildtime))
	return nil
}

package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// NewManCommand creates the hidden man command.
func (a *App) NewManCommand() *cobra.Command {
	return &cobra.Command{
		Use:    "man",
		Short:  "Generate man page",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			header := &doc.GenManHeader{
				Title:   "CATALOGD",
				Section: "1",
				Source:  "catalogd " + a.version,
				Manual:  "catalogd Manual",
			}
			return doc.GenMan(cmd.Root(), header, a.out)
		},
	}
}

package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/catalogd/internal/cmd/output"
	"github.com/agentstation/catalogd/pkg/catalogs"
)

// NewListCommand creates the list command.
func (a *App) NewListCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		GroupID: "core",
		Short:   "List the catalogs the configured source defines",
		Long: `List performs one load from the configured source and prints the
catalogs found. Property values are never printed. Disabled catalogs are
hidden unless --all is given.`,
		Example: `  catalogd list
  catalogd list --format wide
  catalogd list -o yaml --config catalogd.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.CatalogConfig()
			if err != nil {
				return err
			}
			src, err := newSource(cfg)
			if err != nil {
				return err
			}
			set, err := src.LoadAll(cmd.Context())
			if err != nil {
				return err
			}

			records := make([]catalogs.Record, 0, set.Len())
			for _, r := range set.Records() {
				if !all && cfg.IsDisabled(r.Name()) {
					continue
				}
				records = append(records, r)
			}

			a.logger.Debug().
				Int("loaded", set.Len()).
				Int("listed", len(records)).
				Msg("Listing catalogs")

			return output.WriteCatalogs(a.out, catalogs.Summaries(records), output.DetectFormat(a.config.Format))
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include disabled catalogs")
	return cmd
}

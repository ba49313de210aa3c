package app

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentstation/catalogd/internal/cmd/output"
	"github.com/agentstation/catalogd/pkg/catalogs"
	"github.com/agentstation/catalogd/pkg/errors"
)

// ValidationReport is the result of validating a catalog source.
type ValidationReport struct {
	Source     string   `json:"source" yaml:"source"`
	Catalogs   int      `json:"catalogs" yaml:"catalogs"`
	Disabled   []string `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Duplicates []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Valid      bool     `json:"valid" yaml:"valid"`
}

// NewValidateCommand creates the validate command.
func (a *App) NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		GroupID: "management",
		Short:   "Check the configuration and catalog definitions",
		Long: `Validate loads the configuration and performs one load from the
configured source without creating any connector. It fails when the
configuration is invalid, the source cannot be read, a definition is
malformed, or two definitions share a catalog name.`,
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

			report := buildReport(cfg.SourceType.String(), set, cfg.IsDisabled)
			if err := a.printReport(report); err != nil {
				return err
			}
			if !report.Valid {
				return errors.NewValidationError("catalog", report.Duplicates, "duplicate catalog names")
			}
			return nil
		},
	}
}

func buildReport(source string, set catalogs.Set, disabled func(string) bool) ValidationReport {
	report := ValidationReport{Source: source, Catalogs: set.Len()}

	seen := make(map[string]int, set.Len())
	for _, r := range set.Records() {
		seen[r.Name()]++
		if seen[r.Name()] == 1 && disabled(r.Name()) {
			report.Disabled = append(report.Disabled, r.Name())
		}
	}
	for name, n := range seen {
		if n > 1 {
			report.Duplicates = append(report.Duplicates, name)
		}
	}
	sort.Strings(report.Duplicates)
	report.Valid = len(report.Duplicates) == 0
	return report
}

func (a *App) printReport(report ValidationReport) error {
	format := output.DetectFormat(a.config.Format)
	if !format.Tabular() {
		return output.NewFormatter(format).Format(a.out, report)
	}

	status := "valid"
	if !report.Valid {
		status = "invalid"
	}
	_, err := fmt.Fprintf(a.out, "%s source: %d catalogs, %d disabled, %s\n",
		report.Source, report.Catalogs, len(report.Disabled), status)
	for _, name := range report.Duplicates {
		if err == nil {
			_, err = fmt.Fprintf(a.out, "  duplicate catalog name: %s\n", name)
		}
	}
	return err
}

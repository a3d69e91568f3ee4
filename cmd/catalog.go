package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/model"
)

var catalogFormat string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the standardized metric catalog",
	Long:  "Prints every metric definition the engine can resolve, grouped by category, including units, ranking direction, and derivation formulas.",
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogFormat, "format", "table", "output format: table or json")
	rootCmd.AddCommand(catalogCmd)
}

func loadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(cfg.Catalog.Path)
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate("catalog"); err != nil {
		return err
	}

	cat, err := loadCatalog()
	if err != nil {
		return err
	}

	switch catalogFormat {
	case "json":
		return printJSON(cat.Definitions())
	case "table":
		return writeCatalogTable(os.Stdout, cat)
	default:
		return eris.Errorf("catalog: unsupported format %q", catalogFormat)
	}
}

func writeCatalogTable(w *os.File, cat *catalog.Catalog) error {
	for _, category := range model.Categories() {
		defs := cat.ByCategory(category)
		if len(defs) == 0 {
			continue
		}

		if _, err := fmt.Fprintf(w, "\n%s\n%s\n", strings.ToUpper(string(category)), strings.Repeat("-", 90)); err != nil {
			return eris.Wrap(err, "catalog: write category header")
		}
		for _, d := range defs {
			direction := "higher"
			if d.LowerIsBetter {
				direction = "lower"
			}
			unit := d.Unit
			if unit == "" {
				unit = "-"
			}
			line := fmt.Sprintf("%-40s %-28s %-10s %-7s %4.0f%%\n",
				d.CanonicalName, d.DisplayName, unit, direction, d.ExpectedAvailability*100)
			if _, err := fmt.Fprint(w, line); err != nil {
				return eris.Wrap(err, "catalog: write definition row")
			}
			if d.DerivationFormula != "" {
				if _, err := fmt.Fprintf(w, "%-40s derived: %s\n", "", d.DerivationFormula); err != nil {
					return eris.Wrap(err, "catalog: write formula row")
				}
			}
		}
	}

	_, err := fmt.Fprintf(w, "\n%d metrics across %d regions with synonym packs\n", cat.Len(), len(cat.Regions()))
	return eris.Wrap(err, "catalog: write summary")
}

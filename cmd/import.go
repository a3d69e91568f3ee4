package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/importer"
)

var (
	importBundlePath string
	importXLSXPath   string
	importSheet      string
	importSource     string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import seed bundles or spreadsheet grids into the store",
	Long: `Loads data into the store from one of two shapes: a JSON bundle
holding councils, payloads, official metrics, ratings, and issues; or a
spreadsheet grid of councils by raw metric names, which lands as one payload
per council under the spreadsheet source.`,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importBundlePath, "bundle", "", "path to a JSON seed bundle")
	f.StringVar(&importXLSXPath, "xlsx", "", "path to a councils-by-metrics spreadsheet")
	f.StringVar(&importSheet, "sheet", "", "spreadsheet sheet name (default: first sheet)")
	f.StringVar(&importSource, "source", "", "payload source label for spreadsheet imports")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("engine"); err != nil {
		return err
	}
	if (importBundlePath == "") == (importXLSXPath == "") {
		return eris.New("import: exactly one of --bundle or --xlsx is required")
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "import: migrate store")
	}

	var res *importer.Result
	if importBundlePath != "" {
		res, err = importer.ImportBundle(ctx, st, importBundlePath)
	} else {
		res, err = importer.ImportGrid(ctx, st, importXLSXPath, importer.GridOptions{
			Sheet:  importSheet,
			Source: importSource,
		})
	}
	if err != nil {
		return err
	}

	zap.L().Info("import complete",
		zap.Int("councils", res.Councils),
		zap.Int("payloads", res.Payloads),
		zap.Int("official_metrics", res.OfficialMetrics),
		zap.Int("ratings", res.Ratings),
		zap.Int("issues", res.Issues),
	)

	fmt.Printf("Imported %d councils, %d payloads, %d official snapshots, %d ratings, %d issues\n",
		res.Councils, res.Payloads, res.OfficialMetrics, res.Ratings, res.Issues)
	return nil
}

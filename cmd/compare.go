package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/aggregate"
	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/model"
)

var (
	compareCouncils string
	compareFormat   string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare an explicit list of councils side by side",
	Long: `Builds profiles for each named council and ranks them against each
other on every catalog metric they share. Needs at least two councils.`,
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.StringVar(&compareCouncils, "councils", "", "comma-separated council ids (required)")
	f.StringVar(&compareFormat, "format", "table", "output format: table or json")
	_ = compareCmd.MarkFlagRequired("councils")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("engine"); err != nil {
		return err
	}
	if compareFormat != "table" && compareFormat != "json" {
		return eris.Errorf("compare: unsupported format %q", compareFormat)
	}

	ids := splitAndTrim(compareCouncils)
	if len(ids) < 2 {
		return eris.Errorf("compare: --councils needs at least two ids (got %d)", len(ids))
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	runner := aggregate.NewRunner(cat, st, newBuilder(st, cat), runnerConfig())

	cmp, err := runner.Compare(ctx, ids)
	if err != nil {
		return eris.Wrap(err, "compare")
	}

	zap.L().Info("comparison complete",
		zap.Int("councils", len(cmp.Councils)),
		zap.Int("skipped", len(cmp.Skipped)),
		zap.Int("metrics", len(cmp.Metrics)),
	)

	if compareFormat == "json" {
		return printJSON(cmp)
	}
	return writeComparisonTable(os.Stdout, cat, cmp)
}

func writeComparisonTable(w *os.File, cat *catalog.Catalog, cmp *model.Comparison) error {
	fmt.Fprintf(w, "Comparing %d councils\n", len(cmp.Councils))
	for _, c := range cmp.Councils {
		fmt.Fprintf(w, "  %-28s %-16s coverage %.1f%%\n", fmt.Sprintf("%s (%s)", c.CouncilName, c.CouncilID), c.Region, c.CoverageScore*100)
	}
	if len(cmp.Skipped) > 0 {
		fmt.Fprintf(w, "  skipped: %s\n", strings.Join(cmp.Skipped, ", "))
	}
	fmt.Fprintln(w)

	for _, def := range cat.Definitions() {
		agg, ok := cmp.Metrics[def.CanonicalName]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(w, "%-40s %s\n", agg.CanonicalName, rankingLine(agg)); err != nil {
			return eris.Wrap(err, "compare: write metric row")
		}
	}
	return nil
}

// rankingLine renders a metric ranking as "1. melbourne 42.00  2. geelong 38.50".
func rankingLine(agg model.AggregationResult) string {
	parts := make([]string, 0, len(agg.Ranking))
	for _, r := range agg.Ranking {
		parts = append(parts, fmt.Sprintf("%d. %s %.2f", r.Rank, r.CouncilID, r.Value))
	}
	return strings.Join(parts, "  ")
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

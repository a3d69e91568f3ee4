package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/aggregate"
	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/model"
)

var (
	benchmarkRegion string
	benchmarkFormat string
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Benchmark every council in a region",
	Long: `Builds profiles for all councils in a region over a bounded worker
pool, then aggregates each catalog metric across them: mean, median, best
and worst councils, and a full ranking. Councils whose profile build fails
or times out are reported as skipped rather than failing the run.`,
	RunE: runBenchmark,
}

func init() {
	f := benchmarkCmd.Flags()
	f.StringVar(&benchmarkRegion, "region", "", "region name (required)")
	f.StringVar(&benchmarkFormat, "format", "table", "output format: table or json")
	_ = benchmarkCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(benchmarkCmd)
}

func runnerConfig() aggregate.Config {
	return aggregate.Config{
		Concurrency: cfg.Benchmark.Concurrency,
		Timeout:     time.Duration(cfg.Benchmark.TimeoutSecs) * time.Second,
		RateLimit:   cfg.Benchmark.RateLimit,
	}
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("engine"); err != nil {
		return err
	}
	if benchmarkFormat != "table" && benchmarkFormat != "json" {
		return eris.Errorf("benchmark: unsupported format %q", benchmarkFormat)
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

	bench, err := runner.BenchmarkRegion(ctx, benchmarkRegion)
	if err != nil {
		return eris.Wrapf(err, "benchmark: %s", benchmarkRegion)
	}

	zap.L().Info("benchmark complete",
		zap.String("region", bench.Region),
		zap.Int("councils", bench.CouncilCount),
		zap.Int("profiled", bench.Profiled),
		zap.Int("skipped", len(bench.Skipped)),
	)

	if benchmarkFormat == "json" {
		return printJSON(bench)
	}
	return writeBenchmarkTable(os.Stdout, cat, bench)
}

func writeBenchmarkTable(w *os.File, cat *catalog.Catalog, b *model.RegionBenchmark) error {
	fmt.Fprintf(w, "Region:    %s\n", b.Region)
	fmt.Fprintf(w, "Councils:  %d (%d profiled", b.CouncilCount, b.Profiled)
	if len(b.Skipped) > 0 {
		fmt.Fprintf(w, ", skipped: %s", strings.Join(b.Skipped, ", "))
	}
	fmt.Fprint(w, ")\n\n")

	header := fmt.Sprintf("%-40s %9s %14s %14s %-18s %-18s\n",
		"Metric", "Coverage", "Mean", "Median", "Best", "Worst")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "benchmark: write table header")
	}
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, def := range cat.Definitions() {
		agg, ok := b.Metrics[def.CanonicalName]
		if !ok {
			continue
		}
		line := fmt.Sprintf("%-40s %8.0f%% %14.2f %14.2f %-18s %-18s\n",
			agg.CanonicalName, agg.Coverage*100, agg.Mean, agg.Median,
			entityLabel(agg.Best), entityLabel(agg.Worst))
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "benchmark: write metric row")
		}
	}
	return nil
}

func entityLabel(ev *model.EntityValue) string {
	if ev == nil {
		return "-"
	}
	return ev.CouncilID
}

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

	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/estimate"
	"github.com/civicbench/council-cli/internal/model"
	"github.com/civicbench/council-cli/internal/profile"
	"github.com/civicbench/council-cli/internal/store"
)

var (
	profileCouncil string
	profileMissing bool
	profileFormat  string
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build the standardized profile for one council",
	Long: `Builds a council profile: flattens the raw source payloads, resolves
each catalog metric through direct, synonym, and fuzzy matching, derives or
estimates what the sources omit, and reports coverage plus any
council-specific data that matched no metric.`,
	RunE: runProfile,
}

func init() {
	f := profileCmd.Flags()
	f.StringVar(&profileCouncil, "council", "", "council id (required)")
	f.BoolVar(&profileMissing, "missing", false, "report missing metrics instead of the profile")
	f.StringVar(&profileFormat, "format", "table", "output format: table or json")
	_ = profileCmd.MarkFlagRequired("council")
	rootCmd.AddCommand(profileCmd)
}

// newBuilder wires the profile builder to the store and the configured peer
// estimator.
func newBuilder(st store.Store, cat *catalog.Catalog) *profile.Builder {
	est := estimate.New(st, estimate.Config{
		MaxPeers:       cfg.Peers.MaxPeers,
		PopulationBand: cfg.Peers.PopulationBand,
	})
	return profile.New(cat, st, est)
}

func runProfile(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("engine"); err != nil {
		return err
	}
	if profileFormat != "table" && profileFormat != "json" {
		return eris.Errorf("profile: unsupported format %q", profileFormat)
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
	builder := newBuilder(st, cat)

	p, err := builder.Build(ctx, profileCouncil)
	if err != nil {
		return eris.Wrapf(err, "profile: %s", profileCouncil)
	}

	zap.L().Info("profile built",
		zap.String("council_id", p.CouncilID),
		zap.Int("observations", len(p.Observations)),
		zap.Float64("coverage", p.CoverageScore),
	)

	if profileMissing {
		missing := builder.MissingMetrics(p)
		if profileFormat == "json" {
			return printJSON(missing)
		}
		return writeMissingTable(os.Stdout, p, missing)
	}

	if profileFormat == "json" {
		return printJSON(p)
	}
	return writeProfileTable(os.Stdout, cat, p)
}

func writeProfileTable(w *os.File, cat *catalog.Catalog, p *model.Profile) error {
	fmt.Fprintf(w, "Council:    %s (%s)\n", p.CouncilName, p.CouncilID)
	fmt.Fprintf(w, "Region:     %s\n", p.Region)
	fmt.Fprintf(w, "Population: %s\n", formatCount(p.Population))
	fmt.Fprintf(w, "Coverage:   %.1f%%\n\n", p.CoverageScore*100)

	header := fmt.Sprintf("%-40s %14s %-14s %-10s %s\n", "Metric", "Value", "Source", "Confidence", "Origin")
	if _, err := fmt.Fprint(w, header); err != nil {
		return eris.Wrap(err, "profile: write table header")
	}
	fmt.Fprintln(w, strings.Repeat("-", 100))

	// Catalog order keeps the report stable run to run.
	for _, def := range cat.Definitions() {
		obs, ok := p.Observations[def.CanonicalName]
		if !ok {
			continue
		}
		origin := obs.Origin
		if origin == "" {
			origin = "-"
		}
		line := fmt.Sprintf("%-40s %14.2f %-14s %-10s %s\n",
			def.CanonicalName, obs.Value, obs.Source, obs.Confidence, origin)
		if _, err := fmt.Fprint(w, line); err != nil {
			return eris.Wrap(err, "profile: write observation row")
		}
	}

	if len(p.UniqueData) > 0 {
		fmt.Fprintf(w, "\nCouncil-specific data (%d)\n", len(p.UniqueData))
		for _, u := range p.UniqueData {
			if u.Value != nil {
				fmt.Fprintf(w, "  %-40s %14.2f  [%s]\n", u.Key, *u.Value, u.Category)
			} else {
				fmt.Fprintf(w, "  %-40s %s  [%s]\n", u.Key, u.Text, u.Category)
			}
		}
	}
	return nil
}

func writeMissingTable(w *os.File, p *model.Profile, missing []catalog.Definition) error {
	fmt.Fprintf(w, "Council:  %s (%s)\n", p.CouncilName, p.CouncilID)
	fmt.Fprintf(w, "Missing:  %d metrics\n\n", len(missing))

	for _, d := range missing {
		if _, err := fmt.Fprintf(w, "%-40s %-28s expected in %3.0f%% of councils\n",
			d.CanonicalName, d.DisplayName, d.ExpectedAvailability*100); err != nil {
			return eris.Wrap(err, "profile: write missing row")
		}
	}
	return nil
}

// formatCount renders an integer with thousands separators.
func formatCount(n int64) string {
	if n == 0 {
		return "0"
	}
	s := fmt.Sprintf("%d", n)
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}

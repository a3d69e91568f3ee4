package aggregate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/model"
)

// ErrTooFewCouncils is returned when a comparison names fewer than two
// councils.
var ErrTooFewCouncils = eris.New("aggregate: comparison needs at least two councils")

// CouncilSource lists the councils a benchmark runs over.
type CouncilSource interface {
	CouncilsByRegion(ctx context.Context, region string) ([]model.Council, error)
}

// ProfileBuilder builds one council profile.
type ProfileBuilder interface {
	Build(ctx context.Context, councilID string) (*model.Profile, error)
}

// Config bounds how hard a benchmark run hits the store.
type Config struct {
	// Concurrency caps simultaneous profile builds.
	Concurrency int
	// Timeout bounds a single profile build.
	Timeout time.Duration
	// RateLimit caps build starts per second; zero disables the limiter.
	RateLimit float64
}

// DefaultConfig returns the runner defaults.
func DefaultConfig() Config {
	return Config{Concurrency: 8, Timeout: 30 * time.Second}
}

// Runner fans profile builds out over a bounded worker pool and aggregates
// the results.
type Runner struct {
	catalog *catalog.Catalog
	source  CouncilSource
	builder ProfileBuilder
	cfg     Config
	limiter *rate.Limiter
	now     func() time.Time
}

// NewRunner returns a Runner; non-positive config fields fall back to
// DefaultConfig.
func NewRunner(cat *catalog.Catalog, source CouncilSource, builder ProfileBuilder, cfg Config) *Runner {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	r := &Runner{catalog: cat, source: source, builder: builder, cfg: cfg, now: time.Now}
	if cfg.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(int(cfg.RateLimit), 1))
	}
	return r
}

// BenchmarkRegion builds every council profile in a region and aggregates
// all catalog metrics over them. Councils whose build fails or times out are
// skipped rather than failing the run; cancelling the context yields a
// benchmark over whatever completed.
func (r *Runner) BenchmarkRegion(ctx context.Context, region string) (*model.RegionBenchmark, error) {
	councils, err := r.source.CouncilsByRegion(ctx, region)
	if err != nil {
		return nil, eris.Wrapf(err, "aggregate: councils in region %s", region)
	}

	ids := make([]string, len(councils))
	for i, c := range councils {
		ids[i] = c.ID
	}
	profiles, skipped := r.buildAll(ctx, ids)

	bench := &model.RegionBenchmark{
		Region:       region,
		CouncilCount: len(councils),
		Profiled:     len(profiles),
		Skipped:      skipped,
		Metrics:      make(map[string]model.AggregationResult),
		GeneratedAt:  r.now(),
	}
	for _, def := range r.catalog.Definitions() {
		if res, ok := Metric(def, profiles, len(councils)); ok {
			bench.Metrics[def.CanonicalName] = res
		}
	}

	zap.L().Info("region benchmark complete",
		zap.String("region", region),
		zap.Int("councils", len(councils)),
		zap.Int("profiled", len(profiles)),
		zap.Int("skipped", len(skipped)),
		zap.Int("metrics", len(bench.Metrics)),
	)
	return bench, nil
}

// Compare builds profiles for an explicit council list and ranks them on
// every metric at least one of them carries.
func (r *Runner) Compare(ctx context.Context, councilIDs []string) (*model.Comparison, error) {
	if len(councilIDs) < 2 {
		return nil, eris.Wrapf(ErrTooFewCouncils, "got %d", len(councilIDs))
	}

	profiles, skipped := r.buildAll(ctx, councilIDs)

	cmp := &model.Comparison{
		Skipped:     skipped,
		Metrics:     make(map[string]model.AggregationResult),
		GeneratedAt: r.now(),
	}
	for _, p := range profiles {
		cmp.Councils = append(cmp.Councils, model.ComparedCouncil{
			CouncilID:     p.CouncilID,
			CouncilName:   p.CouncilName,
			Region:        p.Region,
			CoverageScore: p.CoverageScore,
		})
	}
	for _, def := range r.catalog.Definitions() {
		if res, ok := Metric(def, profiles, len(councilIDs)); ok {
			cmp.Metrics[def.CanonicalName] = res
		}
	}
	return cmp, nil
}

// buildAll builds profiles with bounded concurrency. Individual failures are
// logged and recorded as skipped, never propagated, so one bad council
// cannot sink a region run.
func (r *Runner) buildAll(ctx context.Context, ids []string) ([]*model.Profile, []string) {
	results := make([]*model.Profile, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if r.limiter != nil {
				if err := r.limiter.Wait(gctx); err != nil {
					return nil // cancelled while queued
				}
			}

			bctx, cancel := context.WithTimeout(gctx, r.cfg.Timeout)
			defer cancel()

			p, err := r.builder.Build(bctx, id)
			if err != nil {
				zap.L().Warn("skipping council", zap.String("council", id), zap.Error(err))
				return nil
			}
			results[i] = p
			return nil
		})
	}
	// Workers swallow their own failures, so Wait only drains the pool.
	_ = g.Wait()

	profiles := make([]*model.Profile, 0, len(ids))
	var skipped []string
	for i, p := range results {
		if p == nil {
			skipped = append(skipped, ids[i])
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, skipped
}

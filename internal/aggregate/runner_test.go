package aggregate

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/model"
)

type builderFunc func(ctx context.Context, councilID string) (*model.Profile, error)

func (f builderFunc) Build(ctx context.Context, councilID string) (*model.Profile, error) {
	return f(ctx, councilID)
}

type fakeCouncils struct {
	byRegion map[string][]model.Council
	err      error
}

func (f *fakeCouncils) CouncilsByRegion(_ context.Context, region string) ([]model.Council, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byRegion[region], nil
}

func victorianCouncils(ids ...string) *fakeCouncils {
	councils := make([]model.Council, len(ids))
	for i, id := range ids {
		councils[i] = model.Council{ID: id, Name: id, Region: "Victoria"}
	}
	return &fakeCouncils{byRegion: map[string][]model.Council{"Victoria": councils}}
}

func newRunner(t *testing.T, source CouncilSource, builder ProfileBuilder, cfg Config) *Runner {
	t.Helper()
	cat, err := catalog.Builtin()
	require.NoError(t, err)
	return NewRunner(cat, source, builder, cfg)
}

func TestBenchmarkRegion(t *testing.T) {
	t.Parallel()

	builder := builderFunc(func(_ context.Context, id string) (*model.Profile, error) {
		switch id {
		case "a":
			return profileWith("a", map[string]float64{
				"customer_satisfaction_score": 80,
				"complaint_response_time":     5,
			}), nil
		case "b":
			return profileWith("b", map[string]float64{
				"customer_satisfaction_score": 60,
			}), nil
		default:
			return nil, assert.AnError
		}
	})

	r := newRunner(t, victorianCouncils("a", "b", "c"), builder, Config{Concurrency: 2})
	bench, err := r.BenchmarkRegion(context.Background(), "Victoria")
	require.NoError(t, err)

	assert.Equal(t, "Victoria", bench.Region)
	assert.Equal(t, 3, bench.CouncilCount)
	assert.Equal(t, 2, bench.Profiled)
	assert.Equal(t, []string{"c"}, bench.Skipped)
	assert.False(t, bench.GeneratedAt.IsZero())

	require.Len(t, bench.Metrics, 2)

	sat := bench.Metrics["customer_satisfaction_score"]
	assert.Equal(t, 3, sat.EntityCount)
	assert.Equal(t, 2, sat.ValueCount)
	// Two of three councils resolved it; the failed council still counts in
	// the denominator.
	assert.InDelta(t, 2.0/3.0, sat.Coverage, 1e-9)
	assert.Equal(t, 70.0, sat.Mean)
	assert.Equal(t, 80.0, sat.Median)
	assert.Equal(t, &model.EntityValue{CouncilID: "a", Value: 80}, sat.Best)
	assert.Equal(t, &model.EntityValue{CouncilID: "b", Value: 60}, sat.Worst)

	resp := bench.Metrics["complaint_response_time"]
	assert.Equal(t, 1, resp.ValueCount)
	assert.Equal(t, &model.EntityValue{CouncilID: "a", Value: 5}, resp.Best)
}

func TestBenchmarkRegionSourceError(t *testing.T) {
	t.Parallel()

	builder := builderFunc(func(_ context.Context, id string) (*model.Profile, error) {
		return profileWith(id, nil), nil
	})
	r := newRunner(t, &fakeCouncils{err: assert.AnError}, builder, Config{})

	bench, err := r.BenchmarkRegion(context.Background(), "Victoria")
	assert.Nil(t, bench)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBenchmarkRegionEmpty(t *testing.T) {
	t.Parallel()

	builder := builderFunc(func(_ context.Context, id string) (*model.Profile, error) {
		return profileWith(id, nil), nil
	})
	r := newRunner(t, &fakeCouncils{byRegion: map[string][]model.Council{}}, builder, Config{})

	bench, err := r.BenchmarkRegion(context.Background(), "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, 0, bench.CouncilCount)
	assert.Equal(t, 0, bench.Profiled)
	assert.Empty(t, bench.Skipped)
	assert.Empty(t, bench.Metrics)
}

func TestBenchmarkConcurrencyBound(t *testing.T) {
	t.Parallel()

	var inFlight atomic.Int64
	var exceeded atomic.Bool
	builder := builderFunc(func(_ context.Context, id string) (*model.Profile, error) {
		if inFlight.Add(1) > 3 {
			exceeded.Store(true)
		}
		defer inFlight.Add(-1)
		time.Sleep(5 * time.Millisecond)
		return profileWith(id, map[string]float64{"customer_satisfaction_score": 50}), nil
	})

	ids := make([]string, 9)
	for i := range ids {
		ids[i] = fmt.Sprintf("c%d", i)
	}
	r := newRunner(t, victorianCouncils(ids...), builder, Config{Concurrency: 3, RateLimit: 1000})

	bench, err := r.BenchmarkRegion(context.Background(), "Victoria")
	require.NoError(t, err)
	assert.Equal(t, 9, bench.Profiled)
	assert.False(t, exceeded.Load(), "more than 3 builds ran at once")
}

func TestBenchmarkBuildTimeout(t *testing.T) {
	t.Parallel()

	builder := builderFunc(func(ctx context.Context, id string) (*model.Profile, error) {
		if id != "slow" {
			return profileWith(id, map[string]float64{"customer_satisfaction_score": 50}), nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
			return profileWith(id, map[string]float64{"customer_satisfaction_score": 99}), nil
		}
	})

	r := newRunner(t, victorianCouncils("fast", "slow"), builder, Config{Concurrency: 2, Timeout: 20 * time.Millisecond})
	bench, err := r.BenchmarkRegion(context.Background(), "Victoria")
	require.NoError(t, err)

	assert.Equal(t, 1, bench.Profiled)
	assert.Equal(t, []string{"slow"}, bench.Skipped)
}

func TestBenchmarkPartialOnCancel(t *testing.T) {
	t.Parallel()

	builder := builderFunc(func(ctx context.Context, id string) (*model.Profile, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return profileWith(id, map[string]float64{"customer_satisfaction_score": 50}), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newRunner(t, victorianCouncils("a", "b", "c"), builder, Config{})
	bench, err := r.BenchmarkRegion(ctx, "Victoria")
	require.NoError(t, err)

	assert.Equal(t, 3, bench.CouncilCount)
	assert.Equal(t, 0, bench.Profiled)
	assert.Equal(t, []string{"a", "b", "c"}, bench.Skipped)
	assert.Empty(t, bench.Metrics)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	builder := builderFunc(func(_ context.Context, id string) (*model.Profile, error) {
		switch id {
		case "a":
			return profileWith("a", map[string]float64{"customer_satisfaction_score": 80}), nil
		case "b":
			return profileWith("b", map[string]float64{"customer_satisfaction_score": 60}), nil
		default:
			return nil, assert.AnError
		}
	})
	r := newRunner(t, &fakeCouncils{}, builder, Config{})

	t.Run("ranks the chosen councils", func(t *testing.T) {
		t.Parallel()
		cmp, err := r.Compare(context.Background(), []string{"b", "a", "ghost"})
		require.NoError(t, err)

		// Council rows follow the requested order.
		require.Len(t, cmp.Councils, 2)
		assert.Equal(t, "b", cmp.Councils[0].CouncilID)
		assert.Equal(t, "a", cmp.Councils[1].CouncilID)
		assert.Equal(t, []string{"ghost"}, cmp.Skipped)

		sat := cmp.Metrics["customer_satisfaction_score"]
		assert.Equal(t, 3, sat.EntityCount)
		assert.Equal(t, []model.RankedEntity{
			{Rank: 1, CouncilID: "a", Value: 80},
			{Rank: 2, CouncilID: "b", Value: 60},
		}, sat.Ranking)
	})

	t.Run("rejects fewer than two", func(t *testing.T) {
		t.Parallel()
		_, err := r.Compare(context.Background(), []string{"a"})
		assert.ErrorIs(t, err, ErrTooFewCouncils)
	})
}

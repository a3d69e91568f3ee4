// Package aggregate computes cross-council statistics over built profiles:
// per-metric means, medians, rankings, and region benchmarks.
package aggregate

import (
	"sort"

	"github.com/civicbench/council-cli/internal/catalog"
	"github.com/civicbench/council-cli/internal/model"
)

// Metric aggregates one catalog metric across a profile set. entityCount is
// the coverage denominator: the number of councils asked for, which may
// exceed the number that resolved the metric. The second return is false
// when no profile carries the metric.
func Metric(def catalog.Definition, profiles []*model.Profile, entityCount int) (model.AggregationResult, bool) {
	pairs := make([]model.EntityValue, 0, len(profiles))
	for _, p := range profiles {
		if v, ok := p.Value(def.CanonicalName); ok {
			pairs = append(pairs, model.EntityValue{CouncilID: p.CouncilID, Value: v})
		}
	}
	if len(pairs) == 0 {
		return model.AggregationResult{}, false
	}

	var sum float64
	values := make([]float64, len(pairs))
	for i, pv := range pairs {
		sum += pv.Value
		values[i] = pv.Value
	}
	sort.Float64s(values)

	ranking := rank(pairs, def.LowerIsBetter)
	best := ranking[0]
	worst := ranking[len(ranking)-1]

	res := model.AggregationResult{
		CanonicalName: def.CanonicalName,
		EntityCount:   entityCount,
		ValueCount:    len(pairs),
		Mean:          sum / float64(len(pairs)),
		// The upper-middle element, not the interpolated median: an even
		// count reports the higher of the two middle values.
		Median:  values[len(values)/2],
		Best:    &model.EntityValue{CouncilID: best.CouncilID, Value: best.Value},
		Worst:   &model.EntityValue{CouncilID: worst.CouncilID, Value: worst.Value},
		Ranking: ranking,
	}
	if entityCount > 0 {
		res.Coverage = float64(len(pairs)) / float64(entityCount)
	}
	return res, true
}

// rank orders entities best first: descending values normally, ascending
// when lower is better. Ties keep profile order.
func rank(pairs []model.EntityValue, lowerIsBetter bool) []model.RankedEntity {
	ordered := make([]model.EntityValue, len(pairs))
	copy(ordered, pairs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if lowerIsBetter {
			return ordered[i].Value < ordered[j].Value
		}
		return ordered[i].Value > ordered[j].Value
	})

	out := make([]model.RankedEntity, len(ordered))
	for i, pv := range ordered {
		out[i] = model.RankedEntity{Rank: i + 1, CouncilID: pv.CouncilID, Value: pv.Value}
	}
	return out
}

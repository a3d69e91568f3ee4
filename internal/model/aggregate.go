package model

import "time"

// EntityValue pairs a council with its value for one metric.
type EntityValue struct {
	CouncilID string  `json:"council_id"`
	Value     float64 `json:"value"`
}

// RankedEntity is one row of a metric ranking. Rank 1 is best.
type RankedEntity struct {
	Rank      int     `json:"rank"`
	CouncilID string  `json:"council_id"`
	Value     float64 `json:"value"`
}

// AggregationResult summarizes one metric across an entity set. Coverage is
// measured against the full requested set, so councils excluded by failure or
// timeout pull it down.
type AggregationResult struct {
	CanonicalName string         `json:"canonical_name"`
	EntityCount   int            `json:"entity_count"`
	ValueCount    int            `json:"value_count"`
	Coverage      float64        `json:"coverage"`
	Mean          float64        `json:"mean"`
	Median        float64        `json:"median"`
	Best          *EntityValue   `json:"best,omitempty"`
	Worst         *EntityValue   `json:"worst,omitempty"`
	Ranking       []RankedEntity `json:"ranking,omitempty"`
}

// RegionBenchmark is the aggregated view of every catalog metric across a
// council set, usually one region.
type RegionBenchmark struct {
	Region       string                       `json:"region"`
	CouncilCount int                          `json:"council_count"`
	Profiled     int                          `json:"profiled"`
	Skipped      []string                     `json:"skipped,omitempty"`
	Metrics      map[string]AggregationResult `json:"metrics"`
	GeneratedAt  time.Time                    `json:"generated_at"`
}

// ComparedCouncil is the per-council header row of a comparison.
type ComparedCouncil struct {
	CouncilID     string  `json:"council_id"`
	CouncilName   string  `json:"council_name"`
	Region        string  `json:"region"`
	CoverageScore float64 `json:"coverage_score"`
}

// Comparison is the side-by-side view of an explicitly chosen council list.
type Comparison struct {
	Councils    []ComparedCouncil            `json:"councils"`
	Skipped     []string                     `json:"skipped,omitempty"`
	Metrics     map[string]AggregationResult `json:"metrics"`
	GeneratedAt time.Time                    `json:"generated_at"`
}

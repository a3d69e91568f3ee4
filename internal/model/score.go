package model

import "time"

// ComponentScore is one weighted component of a composite score.
type ComponentScore struct {
	Score      float64    `json:"score"`
	Confidence Confidence `json:"confidence"`
	SampleSize int        `json:"sample_size"`
}

// SampleSizes counts the resident signals behind a composite score.
type SampleSizes struct {
	Ratings int `json:"ratings"`
	Issues  int `json:"issues"`
}

// CompositeScore is the weighted overall rating of a council, computed fresh
// per request.
type CompositeScore struct {
	CouncilID            string         `json:"council_id"`
	OverallScore         float64        `json:"overall_score"`
	OverallConfidence    Confidence     `json:"overall_confidence"`
	CustomerSatisfaction ComponentScore `json:"customer_satisfaction"`
	ServiceDelivery      ComponentScore `json:"service_delivery"`
	ValueForRates        ComponentScore `json:"value_for_rates"`
	Responsiveness       ComponentScore `json:"responsiveness"`
	SampleSizes          SampleSizes    `json:"sample_sizes"`
	GeneratedAt          time.Time      `json:"generated_at"`
}

// RedFlagIndex measures a recent spike in reported issues against the
// preceding window.
type RedFlagIndex struct {
	CouncilID     string     `json:"council_id"`
	RecentCount   int        `json:"recent_count"`
	PreviousCount int        `json:"previous_count"`
	SpikeRatio    float64    `json:"spike_ratio"`
	Score         float64    `json:"score"`
	Confidence    Confidence `json:"confidence"`
	GeneratedAt   time.Time  `json:"generated_at"`
}

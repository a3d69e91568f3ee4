package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Category classifies a catalog metric.
type Category string

const (
	CategoryFinancial       Category = "financial"
	CategoryServiceDelivery Category = "service_delivery"
	CategoryInfrastructure  Category = "infrastructure"
	CategoryEnvironmental   Category = "environmental"
	CategoryCommunity       Category = "community"
	CategoryEconomic        Category = "economic"
)

// Categories lists every defined category in display order.
func Categories() []Category {
	return []Category{
		CategoryFinancial,
		CategoryServiceDelivery,
		CategoryInfrastructure,
		CategoryEnvironmental,
		CategoryCommunity,
		CategoryEconomic,
	}
}

// Valid reports whether c is a defined category.
func (c Category) Valid() bool {
	switch c {
	case CategoryFinancial, CategoryServiceDelivery, CategoryInfrastructure,
		CategoryEnvironmental, CategoryCommunity, CategoryEconomic:
		return true
	}
	return false
}

// ParseCategory validates s as a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", eris.Errorf("model: unknown category %q", s)
	}
	return c, nil
}

// Source records how an observation's value was obtained.
type Source string

const (
	SourceDirect     Source = "direct"
	SourceCalculated Source = "calculated"
	SourceEstimated  Source = "estimated"
	// SourceUnavailable is the implied state of any catalog metric absent
	// from a profile. It is never stored on an observation; absence of the
	// key is what represents it.
	SourceUnavailable Source = "unavailable"
)

// Storable reports whether s may appear on a stored observation.
func (s Source) Storable() bool {
	switch s {
	case SourceDirect, SourceCalculated, SourceEstimated:
		return true
	}
	return false
}

// Confidence grades how much trust a value or score deserves.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidenceMedium  Confidence = "medium"
	ConfidenceLow     Confidence = "low"
	ConfidenceVeryLow Confidence = "very_low"
)

// Valid reports whether c is a defined confidence grade.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceVeryLow:
		return true
	}
	return false
}

// UniqueCategory labels a unique-data entry by inferred subject matter.
type UniqueCategory string

const (
	UniqueEnvironmental  UniqueCategory = "environmental"
	UniqueInfrastructure UniqueCategory = "infrastructure"
	UniqueEconomic       UniqueCategory = "economic"
	UniqueCommunity      UniqueCategory = "community"
	UniquePerformance    UniqueCategory = "performance"
)

// Observation is one resolved catalog metric on a council profile.
type Observation struct {
	CanonicalName string     `json:"canonical_name"`
	Value         float64    `json:"value"`
	RawValue      *float64   `json:"raw_value,omitempty"`
	Source        Source     `json:"source"`
	Confidence    Confidence `json:"confidence"`
	// Origin names the data source whose key supplied the value; empty for
	// estimated observations.
	Origin string `json:"origin,omitempty"`
}

// Validate checks the source and confidence enums.
func (o Observation) Validate() error {
	if !o.Source.Storable() {
		return eris.Errorf("model: source %q not storable", o.Source)
	}
	if !o.Confidence.Valid() {
		return eris.Errorf("model: unknown confidence %q", o.Confidence)
	}
	return nil
}

// UniqueDatum is a flat-map entry that matched no catalog metric, kept as
// council-specific color.
type UniqueDatum struct {
	Key      string         `json:"key"`
	Value    *float64       `json:"value,omitempty"`
	Text     string         `json:"text,omitempty"`
	Origin   string         `json:"origin,omitempty"`
	Category UniqueCategory `json:"category"`
}

// Profile is the standardized picture of one council, built fresh per request
// and never persisted.
type Profile struct {
	CouncilID     string                 `json:"council_id"`
	CouncilName   string                 `json:"council_name"`
	Region        string                 `json:"region"`
	Population    int64                  `json:"population"`
	Observations  map[string]Observation `json:"observations"`
	UniqueData    []UniqueDatum          `json:"unique_data,omitempty"`
	CoverageScore float64                `json:"coverage_score"`
	BuiltAt       time.Time              `json:"built_at"`
}

// Value returns the observed value for a canonical name, if resolved.
func (p *Profile) Value(canonicalName string) (float64, bool) {
	obs, ok := p.Observations[canonicalName]
	if !ok {
		return 0, false
	}
	return obs.Value, true
}

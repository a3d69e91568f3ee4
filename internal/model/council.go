// Package model defines the value types shared across the engine: council
// registry records, raw source payloads, metric observations, and the derived
// benchmarking and scoring shapes.
package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// Council identifies a local-government body in the registry.
type Council struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Region     string  `json:"region"`
	Population int64   `json:"population"`
	AreaKm2    float64 `json:"area_km2"`
}

// HasPopulation reports whether the registry knows a usable population figure.
func (c Council) HasPopulation() bool {
	return c.Population > 0
}

// SourcePayload is one raw data drop for a council from a named source.
// Data is arbitrarily nested; see RawMap.
type SourcePayload struct {
	ID        string    `json:"id,omitempty"`
	CouncilID string    `json:"council_id"`
	Source    string    `json:"source"`
	Data      RawMap    `json:"data"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}

// OfficialMetrics is the latest standardized reporting-year snapshot for a
// council. Every figure is optional; nil means the report omitted it.
type OfficialMetrics struct {
	CouncilID            string   `json:"council_id"`
	Year                 int      `json:"year"`
	RatesRevenue         *float64 `json:"rates_revenue,omitempty"`
	TotalRevenue         *float64 `json:"total_revenue,omitempty"`
	TotalExpenditure     *float64 `json:"total_expenditure,omitempty"`
	OperatingDeficit     *float64 `json:"operating_deficit,omitempty"`
	PopulationServed     *int64   `json:"population_served,omitempty"`
	AreaKm2              *float64 `json:"area_km2,omitempty"`
	RoadsMaintainedKm    *float64 `json:"roads_maintained_km,omitempty"`
	CustomerSatisfaction *float64 `json:"customer_satisfaction,omitempty"`
	ServiceDeliveryScore *float64 `json:"service_delivery_score,omitempty"`
}

// Flat returns the non-nil figures keyed by their reporting names, ready to
// merge into a flattened payload map.
func (m *OfficialMetrics) Flat() map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64)
	put := func(key string, v *float64) {
		if v != nil {
			out[key] = *v
		}
	}
	put("rates_revenue", m.RatesRevenue)
	put("total_revenue", m.TotalRevenue)
	put("total_expenditure", m.TotalExpenditure)
	put("operating_deficit", m.OperatingDeficit)
	put("area_km2", m.AreaKm2)
	put("roads_maintained_km", m.RoadsMaintainedKm)
	put("customer_satisfaction", m.CustomerSatisfaction)
	put("service_delivery_score", m.ServiceDeliveryScore)
	if m.PopulationServed != nil {
		out["population_served"] = float64(*m.PopulationServed)
	}
	return out
}

// ModerationStatus is the review state of a submitted rating.
type ModerationStatus string

const (
	ModerationPending  ModerationStatus = "pending"
	ModerationApproved ModerationStatus = "approved"
	ModerationRejected ModerationStatus = "rejected"
)

// Valid reports whether s is a defined moderation status.
func (s ModerationStatus) Valid() bool {
	switch s {
	case ModerationPending, ModerationApproved, ModerationRejected:
		return true
	}
	return false
}

// IssueStatus is the lifecycle state of a reported issue.
type IssueStatus string

const (
	IssueReported   IssueStatus = "reported"
	IssueInProgress IssueStatus = "in_progress"
	IssueResolved   IssueStatus = "resolved"
)

// Valid reports whether s is a defined issue status.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueReported, IssueInProgress, IssueResolved:
		return true
	}
	return false
}

// Priority is the triage level of a reported issue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a defined priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// RatingRecord is a resident rating of a council service category.
type RatingRecord struct {
	ID               string           `json:"id"`
	CouncilID        string           `json:"council_id"`
	Category         string           `json:"category"`
	Rating           float64          `json:"rating"`
	Comment          string           `json:"comment,omitempty"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Validate checks the rating value and moderation status.
func (r RatingRecord) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return eris.Errorf("model: rating %.2f outside 1-5", r.Rating)
	}
	if !r.ModerationStatus.Valid() {
		return eris.Errorf("model: unknown moderation status %q", r.ModerationStatus)
	}
	return nil
}

// IssueRecord is a resident-reported service issue.
type IssueRecord struct {
	ID                 string      `json:"id"`
	CouncilID          string      `json:"council_id"`
	Category           string      `json:"category"`
	Description        string      `json:"description,omitempty"`
	Status             IssueStatus `json:"status"`
	Priority           Priority    `json:"priority"`
	ResolutionTimeDays *int        `json:"resolution_time_days,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// Validate checks the status and priority enums.
func (i IssueRecord) Validate() error {
	if !i.Status.Valid() {
		return eris.Errorf("model: unknown issue status %q", i.Status)
	}
	if !i.Priority.Valid() {
		return eris.Errorf("model: unknown issue priority %q", i.Priority)
	}
	return nil
}

// Resolved reports whether the issue is closed with a recorded resolution
// time. Issues resolved without a recorded duration do not count toward
// responsiveness.
func (i IssueRecord) Resolved() bool {
	return i.Status == IssueResolved && i.ResolutionTimeDays != nil
}

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingRecordValidate(t *testing.T) {
	t.Parallel()

	base := RatingRecord{
		ID:               "r-1",
		CouncilID:        "c-1",
		Category:         "waste",
		Rating:           4,
		ModerationStatus: ModerationApproved,
		CreatedAt:        time.Now(),
	}

	tests := []struct {
		name    string
		mutate  func(*RatingRecord)
		wantErr bool
	}{
		{name: "valid", mutate: func(*RatingRecord) {}},
		{name: "rating below range", mutate: func(r *RatingRecord) { r.Rating = 0.5 }, wantErr: true},
		{name: "rating above range", mutate: func(r *RatingRecord) { r.Rating = 5.5 }, wantErr: true},
		{name: "rating at bounds", mutate: func(r *RatingRecord) { r.Rating = 1 }},
		{name: "unknown moderation status", mutate: func(r *RatingRecord) { r.ModerationStatus = "flagged" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := base
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIssueRecordResolved(t *testing.T) {
	t.Parallel()

	days := 12
	zero := 0

	t.Run("resolved with recorded time", func(t *testing.T) {
		t.Parallel()
		i := IssueRecord{Status: IssueResolved, Priority: PriorityMedium, ResolutionTimeDays: &days}
		assert.True(t, i.Resolved())
	})

	t.Run("zero-day resolution still counts", func(t *testing.T) {
		t.Parallel()
		i := IssueRecord{Status: IssueResolved, Priority: PriorityLow, ResolutionTimeDays: &zero}
		assert.True(t, i.Resolved())
	})

	t.Run("resolved without recorded time", func(t *testing.T) {
		t.Parallel()
		i := IssueRecord{Status: IssueResolved, Priority: PriorityHigh}
		assert.False(t, i.Resolved())
	})

	t.Run("open issue", func(t *testing.T) {
		t.Parallel()
		i := IssueRecord{Status: IssueInProgress, Priority: PriorityMedium, ResolutionTimeDays: &days}
		assert.False(t, i.Resolved())
	})
}

func TestIssueRecordValidate(t *testing.T) {
	t.Parallel()

	i := IssueRecord{Status: IssueReported, Priority: PriorityHigh}
	require.NoError(t, i.Validate())

	i.Status = "escalated"
	assert.Error(t, i.Validate())

	i.Status = IssueReported
	i.Priority = "urgent"
	assert.Error(t, i.Validate())
}

func TestEnumValidation(t *testing.T) {
	t.Parallel()

	t.Run("categories", func(t *testing.T) {
		t.Parallel()
		for _, c := range Categories() {
			assert.True(t, c.Valid(), string(c))
		}
		assert.False(t, Category("fiscal").Valid())

		c, err := ParseCategory("environmental")
		require.NoError(t, err)
		assert.Equal(t, CategoryEnvironmental, c)

		_, err = ParseCategory("Environment")
		assert.Error(t, err)
	})

	t.Run("sources", func(t *testing.T) {
		t.Parallel()
		assert.True(t, SourceDirect.Storable())
		assert.True(t, SourceCalculated.Storable())
		assert.True(t, SourceEstimated.Storable())
		assert.False(t, SourceUnavailable.Storable())
	})

	t.Run("observation rejects unavailable source", func(t *testing.T) {
		t.Parallel()
		obs := Observation{CanonicalName: "waste_recycling_rate", Value: 50, Source: SourceUnavailable, Confidence: ConfidenceHigh}
		assert.Error(t, obs.Validate())

		obs.Source = SourceDirect
		assert.NoError(t, obs.Validate())

		obs.Confidence = "certain"
		assert.Error(t, obs.Validate())
	})
}

func TestOfficialMetricsFlat(t *testing.T) {
	t.Parallel()

	rates := 4_200_000.0
	pop := int64(61000)

	m := &OfficialMetrics{
		CouncilID:        "c-1",
		Year:             2025,
		RatesRevenue:     &rates,
		PopulationServed: &pop,
	}

	flat := m.Flat()
	assert.Equal(t, map[string]float64{
		"rates_revenue":     4_200_000,
		"population_served": 61000,
	}, flat)

	var none *OfficialMetrics
	assert.Nil(t, none.Flat())
}

func TestProfileValue(t *testing.T) {
	t.Parallel()

	p := &Profile{Observations: map[string]Observation{
		"waste_recycling_rate": {CanonicalName: "waste_recycling_rate", Value: 48.5, Source: SourceDirect, Confidence: ConfidenceHigh},
	}}

	v, ok := p.Value("waste_recycling_rate")
	require.True(t, ok)
	assert.Equal(t, 48.5, v)

	_, ok = p.Value("local_employment_rate")
	assert.False(t, ok)
}

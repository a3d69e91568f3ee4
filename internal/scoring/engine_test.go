package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicbench/council-cli/internal/model"
)

var scoreTime = time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)

type fakeSignals struct {
	council  *model.Council
	official *model.OfficialMetrics
	ratings  []model.RatingRecord
	issues   []model.IssueRecord
	since    time.Time

	failCouncil  bool
	failOfficial bool
	failRatings  bool
	failIssues   bool
}

func (f *fakeSignals) Council(_ context.Context, _ string) (*model.Council, error) {
	if f.failCouncil {
		return nil, assert.AnError
	}
	return f.council, nil
}

func (f *fakeSignals) OfficialMetrics(_ context.Context, _ string) (*model.OfficialMetrics, error) {
	if f.failOfficial {
		return nil, assert.AnError
	}
	return f.official, nil
}

func (f *fakeSignals) ApprovedRatingsSince(_ context.Context, _ string, since time.Time) ([]model.RatingRecord, error) {
	if f.failRatings {
		return nil, assert.AnError
	}
	f.since = since
	return f.ratings, nil
}

func (f *fakeSignals) Issues(_ context.Context, _ string) ([]model.IssueRecord, error) {
	if f.failIssues {
		return nil, assert.AnError
	}
	return f.issues, nil
}

func newTestEngine(t *testing.T, src SignalSource) *Engine {
	t.Helper()
	e, err := NewEngine(src, DefaultWeights())
	require.NoError(t, err)
	e.now = func() time.Time { return scoreTime }
	return e
}

func approved(rating float64, category string) model.RatingRecord {
	return model.RatingRecord{
		CouncilID:        "vic-ballarat",
		Category:         category,
		Rating:           rating,
		ModerationStatus: model.ModerationApproved,
		CreatedAt:        scoreTime.AddDate(0, 0, -30),
	}
}

func resolvedAfter(days int) model.IssueRecord {
	return model.IssueRecord{
		CouncilID:          "vic-ballarat",
		Status:             model.IssueResolved,
		Priority:           model.PriorityMedium,
		ResolutionTimeDays: &days,
		CreatedAt:          scoreTime.AddDate(0, 0, -40),
	}
}

func openIssue(status model.IssueStatus) model.IssueRecord {
	return model.IssueRecord{
		CouncilID: "vic-ballarat",
		Status:    status,
		Priority:  model.PriorityLow,
		CreatedAt: scoreTime.AddDate(0, 0, -40),
	}
}

func TestCustomerSatisfaction(t *testing.T) {
	t.Parallel()

	t.Run("no ratings is neutral", func(t *testing.T) {
		t.Parallel()
		got := customerSatisfaction(nil)
		assert.Equal(t, model.ComponentScore{Score: 50, Confidence: model.ConfidenceLow}, got)
	})

	t.Run("one low rating survives the filter", func(t *testing.T) {
		t.Parallel()
		// Scores 100, 100, 100, 20: mean 80, population sd ~34.6, so even
		// the 20 sits inside three deviations and nothing is dropped.
		got := customerSatisfaction([]model.RatingRecord{
			approved(5, "roads"),
			approved(5, "roads"),
			approved(5, "waste"),
			approved(1, "roads"),
		})
		assert.Equal(t, 80.0, got.Score)
		assert.Equal(t, 4, got.SampleSize)
		assert.Equal(t, model.ConfidenceLow, got.Confidence)
	})

	t.Run("extreme outlier in a large sample is dropped", func(t *testing.T) {
		t.Parallel()
		// Thirty fives and a one: mean ~97.4, sd ~14.1, and the lone 20 is
		// ~77 points out, well past three deviations.
		ratings := make([]model.RatingRecord, 0, 31)
		for i := 0; i < 30; i++ {
			ratings = append(ratings, approved(5, "roads"))
		}
		ratings = append(ratings, approved(1, "roads"))

		got := customerSatisfaction(ratings)
		assert.Equal(t, 100.0, got.Score)
		assert.Equal(t, 30, got.SampleSize)
		assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	})

	t.Run("fewer than three ratings skip the filter", func(t *testing.T) {
		t.Parallel()
		// (100 + 20) / 2.
		got := customerSatisfaction([]model.RatingRecord{
			approved(5, "roads"),
			approved(1, "roads"),
		})
		assert.Equal(t, 60.0, got.Score)
		assert.Equal(t, 2, got.SampleSize)
		assert.Equal(t, model.ConfidenceVeryLow, got.Confidence)
	})

	t.Run("rounds to one decimal", func(t *testing.T) {
		t.Parallel()
		// (80 + 80 + 100) / 3 = 86.66...
		got := customerSatisfaction([]model.RatingRecord{
			approved(4, "roads"),
			approved(4, "roads"),
			approved(5, "roads"),
		})
		assert.Equal(t, 86.7, got.Score)
	})
}

func TestServiceDelivery(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }

	t.Run("blends official and per-category rating means", func(t *testing.T) {
		t.Parallel()
		official := &model.OfficialMetrics{ServiceDeliveryScore: f(80)}
		// roads (80+40)/2 = 60, parks 100; mean of means 80.
		ratings := []model.RatingRecord{
			approved(4, "roads"),
			approved(2, "roads"),
			approved(5, "parks"),
		}

		got := serviceDelivery(official, ratings)
		// 80*0.7 + 80*0.3.
		assert.Equal(t, 80.0, got.Score)
		assert.Equal(t, 2, got.SampleSize)
		assert.Equal(t, model.ConfidenceVeryLow, got.Confidence)
	})

	t.Run("official score stands alone", func(t *testing.T) {
		t.Parallel()
		got := serviceDelivery(&model.OfficialMetrics{ServiceDeliveryScore: f(72.5)}, nil)
		assert.Equal(t, 72.5, got.Score)
		assert.Equal(t, 1, got.SampleSize)
	})

	t.Run("ratings stand alone", func(t *testing.T) {
		t.Parallel()
		got := serviceDelivery(nil, []model.RatingRecord{approved(3, "roads")})
		assert.Equal(t, 60.0, got.Score)
		assert.Equal(t, 1, got.SampleSize)
	})

	t.Run("no signals is neutral", func(t *testing.T) {
		t.Parallel()
		got := serviceDelivery(&model.OfficialMetrics{}, nil)
		assert.Equal(t, model.ComponentScore{Score: 50, Confidence: model.ConfidenceLow}, got)
	})
}

func TestValueForRates(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }
	council := &model.Council{ID: "vic-ballarat", Population: 50_000}

	t.Run("mid-range rates burden", func(t *testing.T) {
		t.Parallel()
		official := &model.OfficialMetrics{
			CustomerSatisfaction: f(80),
			RatesRevenue:         f(45_000_000),
		}
		// 45M / 50k = 900 per capita; factor 100 - 400/15 = 73.33;
		// (80 + 73.33) / 2 = 76.66.
		got := valueForRates(official, council)
		assert.Equal(t, 76.7, got.Score)
		assert.Equal(t, model.ConfidenceMedium, got.Confidence)
	})

	t.Run("rates factor clamps at zero", func(t *testing.T) {
		t.Parallel()
		official := &model.OfficialMetrics{
			CustomerSatisfaction: f(80),
			RatesRevenue:         f(125_000_000),
		}
		// 2500 per capita pushes the factor to -33, clamped to 0.
		got := valueForRates(official, council)
		assert.Equal(t, 40.0, got.Score)
	})

	t.Run("rates factor clamps at one hundred", func(t *testing.T) {
		t.Parallel()
		official := &model.OfficialMetrics{
			CustomerSatisfaction: f(80),
			RatesRevenue:         f(10_000_000),
		}
		// 200 per capita would score 120, clamped to 100.
		got := valueForRates(official, council)
		assert.Equal(t, 90.0, got.Score)
	})

	t.Run("missing inputs are neutral", func(t *testing.T) {
		t.Parallel()
		neutral := model.ComponentScore{Score: 50, Confidence: model.ConfidenceLow}

		assert.Equal(t, neutral, valueForRates(nil, council))
		assert.Equal(t, neutral, valueForRates(&model.OfficialMetrics{RatesRevenue: f(1)}, council))
		assert.Equal(t, neutral, valueForRates(&model.OfficialMetrics{CustomerSatisfaction: f(80)}, council))
		assert.Equal(t, neutral, valueForRates(&model.OfficialMetrics{
			CustomerSatisfaction: f(80),
			RatesRevenue:         f(45_000_000),
		}, &model.Council{ID: "no-pop"}))
	})
}

func TestResponsiveness(t *testing.T) {
	t.Parallel()

	t.Run("no issues is neutral", func(t *testing.T) {
		t.Parallel()
		got := responsiveness(nil)
		assert.Equal(t, model.ComponentScore{Score: 50, Confidence: model.ConfidenceLow}, got)
	})

	t.Run("no resolved issues is neutral", func(t *testing.T) {
		t.Parallel()
		got := responsiveness([]model.IssueRecord{
			openIssue(model.IssueReported),
			openIssue(model.IssueInProgress),
			openIssue(model.IssueResolved), // resolved but no recorded duration
		})
		assert.Equal(t, model.ComponentScore{Score: 50, Confidence: model.ConfidenceLow}, got)
	})

	t.Run("ten day average lands in the two week bucket", func(t *testing.T) {
		t.Parallel()
		// (8 + 12) / 2 = 10 days.
		got := responsiveness([]model.IssueRecord{resolvedAfter(8), resolvedAfter(12)})
		assert.Equal(t, 75.0, got.Score)
		assert.Equal(t, 2, got.SampleSize)
		assert.Equal(t, model.ConfidenceVeryLow, got.Confidence)
	})

	t.Run("same day resolutions count", func(t *testing.T) {
		t.Parallel()
		// (0 + 1) / 2 = 0.5 days.
		got := responsiveness([]model.IssueRecord{resolvedAfter(0), resolvedAfter(1)})
		assert.Equal(t, 100.0, got.Score)
		assert.Equal(t, 2, got.SampleSize)
	})

	t.Run("buckets", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			days int
			want float64
		}{
			{1, 100},
			{7, 90},
			{14, 75},
			{30, 50},
			{60, 25},
			{61, 10},
		}
		for _, tt := range tests {
			got := responsiveness([]model.IssueRecord{resolvedAfter(tt.days)})
			assert.Equal(t, tt.want, got.Score, "days=%d", tt.days)
		}
	})

	t.Run("unresolved issues are excluded from the average", func(t *testing.T) {
		t.Parallel()
		got := responsiveness([]model.IssueRecord{
			resolvedAfter(10),
			openIssue(model.IssueReported),
			openIssue(model.IssueInProgress),
		})
		assert.Equal(t, 75.0, got.Score)
		assert.Equal(t, 1, got.SampleSize)
	})
}

func TestScore(t *testing.T) {
	t.Parallel()

	f := func(v float64) *float64 { return &v }
	src := &fakeSignals{
		council: &model.Council{ID: "vic-ballarat", Name: "Ballarat", Region: "Victoria", Population: 50_000},
		official: &model.OfficialMetrics{
			CouncilID:            "vic-ballarat",
			Year:                 2025,
			ServiceDeliveryScore: f(80),
			CustomerSatisfaction: f(80),
			RatesRevenue:         f(45_000_000),
		},
		ratings: []model.RatingRecord{
			approved(5, "roads"),
			approved(5, "roads"),
			approved(5, "roads"),
			approved(1, "roads"),
		},
		issues: []model.IssueRecord{
			resolvedAfter(8),
			resolvedAfter(12),
			openIssue(model.IssueReported),
			openIssue(model.IssueResolved),
		},
	}

	score, err := newTestEngine(t, src).Score(context.Background(), "vic-ballarat")
	require.NoError(t, err)

	// Components: satisfaction 80, delivery 0.7*80 + 0.3*80 = 80, value 76.7,
	// responsiveness 75. Weighted: 80*0.4 + 80*0.3 + 76.7*0.2 + 75*0.1.
	assert.Equal(t, 80.0, score.CustomerSatisfaction.Score)
	assert.Equal(t, 80.0, score.ServiceDelivery.Score)
	assert.Equal(t, 76.7, score.ValueForRates.Score)
	assert.Equal(t, 75.0, score.Responsiveness.Score)
	assert.Equal(t, 78.8, score.OverallScore)

	// 4 ratings + 4 issues = 8 signals.
	assert.Equal(t, model.ConfidenceLow, score.OverallConfidence)
	assert.Equal(t, model.SampleSizes{Ratings: 4, Issues: 4}, score.SampleSizes)
	assert.Equal(t, scoreTime, score.GeneratedAt)

	// Ratings are fetched from a 730-day window ending now.
	assert.Equal(t, scoreTime.AddDate(0, 0, -730), src.since)
}

func TestScoreUnknownCouncil(t *testing.T) {
	t.Parallel()

	score, err := newTestEngine(t, &fakeSignals{}).Score(context.Background(), "ghost")
	assert.Nil(t, score)
	assert.ErrorIs(t, err, ErrUnknownCouncil)
}

func TestScoreSourceErrors(t *testing.T) {
	t.Parallel()

	base := func() *fakeSignals {
		return &fakeSignals{council: &model.Council{ID: "vic-ballarat", Population: 50_000}}
	}

	tests := []struct {
		name    string
		corrupt func(*fakeSignals)
	}{
		{"council", func(f *fakeSignals) { f.failCouncil = true }},
		{"official metrics", func(f *fakeSignals) { f.failOfficial = true }},
		{"ratings", func(f *fakeSignals) { f.failRatings = true }},
		{"issues", func(f *fakeSignals) { f.failIssues = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := base()
			tt.corrupt(src)
			_, err := newTestEngine(t, src).Score(context.Background(), "vic-ballarat")
			assert.ErrorIs(t, err, assert.AnError)
		})
	}
}

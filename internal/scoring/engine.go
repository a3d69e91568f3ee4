// Package scoring computes weighted composite scores and the complaint-spike
// red-flag index for councils, with anti-gaming controls on resident ratings.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/model"
)

// ErrUnknownCouncil is returned when the scored council is not in the
// registry.
var ErrUnknownCouncil = eris.New("scoring: unknown council")

// ratingWindowDays bounds how far back approved ratings count.
const ratingWindowDays = 730

// SignalSource supplies the stored signals a score is computed from.
type SignalSource interface {
	Council(ctx context.Context, id string) (*model.Council, error)
	OfficialMetrics(ctx context.Context, councilID string) (*model.OfficialMetrics, error)
	ApprovedRatingsSince(ctx context.Context, councilID string, since time.Time) ([]model.RatingRecord, error)
	Issues(ctx context.Context, councilID string) ([]model.IssueRecord, error)
}

// Engine scores councils. Scores are computed fresh per call and never
// persisted.
type Engine struct {
	source  SignalSource
	weights Weights
	now     func() time.Time
}

// NewEngine returns an Engine using the given weights, which must validate.
func NewEngine(source SignalSource, weights Weights) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Engine{source: source, weights: weights, now: time.Now}, nil
}

// Score computes the weighted composite score for one council. Missing
// signals degrade individual components to a neutral 50, never fail the
// computation.
func (e *Engine) Score(ctx context.Context, councilID string) (*model.CompositeScore, error) {
	now := e.now()

	council, err := e.source.Council(ctx, councilID)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load council %s", councilID)
	}
	if council == nil {
		return nil, eris.Wrapf(ErrUnknownCouncil, "id %s", councilID)
	}

	official, err := e.source.OfficialMetrics(ctx, councilID)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load official metrics for %s", councilID)
	}
	ratings, err := e.source.ApprovedRatingsSince(ctx, councilID, now.AddDate(0, 0, -ratingWindowDays))
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load ratings for %s", councilID)
	}
	issues, err := e.source.Issues(ctx, councilID)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load issues for %s", councilID)
	}

	customer := customerSatisfaction(ratings)
	service := serviceDelivery(official, ratings)
	value := valueForRates(official, council)
	responsiveness := responsiveness(issues)

	overall := customer.Score*e.weights.CustomerSatisfaction +
		service.Score*e.weights.ServiceDelivery +
		value.Score*e.weights.ValueForRates +
		responsiveness.Score*e.weights.Responsiveness

	score := &model.CompositeScore{
		CouncilID:            councilID,
		OverallScore:         round1(overall),
		OverallConfidence:    overallConfidence(len(ratings), len(issues)),
		CustomerSatisfaction: customer,
		ServiceDelivery:      service,
		ValueForRates:        value,
		Responsiveness:       responsiveness,
		SampleSizes:          model.SampleSizes{Ratings: len(ratings), Issues: len(issues)},
		GeneratedAt:          now,
	}

	zap.L().Info("scored council",
		zap.String("council", councilID),
		zap.Float64("overall", score.OverallScore),
		zap.String("confidence", string(score.OverallConfidence)),
		zap.Int("ratings", len(ratings)),
		zap.Int("issues", len(issues)),
	)
	return score, nil
}

// customerSatisfaction averages approved ratings on a 0-100 scale after
// outlier filtering.
func customerSatisfaction(ratings []model.RatingRecord) model.ComponentScore {
	if len(ratings) == 0 {
		return neutralComponent()
	}

	scores := make([]float64, len(ratings))
	for i, r := range ratings {
		scores[i] = r.Rating * 20
	}
	filtered := filterOutliers(scores)

	return model.ComponentScore{
		Score:      round1(mean(filtered)),
		Confidence: sampleConfidence(len(filtered)),
		SampleSize: len(filtered),
	}
}

// serviceDelivery blends the official delivery score (0.7) with the mean of
// per-category rating means (0.3). A single present signal stands alone.
func serviceDelivery(official *model.OfficialMetrics, ratings []model.RatingRecord) model.ComponentScore {
	var officialScore *float64
	if official != nil {
		officialScore = official.ServiceDeliveryScore
	}
	userScore, hasUser := categoryMeanOfMeans(ratings)

	switch {
	case officialScore != nil && hasUser:
		return model.ComponentScore{
			Score:      round1(*officialScore*0.7 + userScore*0.3),
			Confidence: sampleConfidence(2),
			SampleSize: 2,
		}
	case officialScore != nil:
		return model.ComponentScore{
			Score:      round1(*officialScore),
			Confidence: sampleConfidence(1),
			SampleSize: 1,
		}
	case hasUser:
		return model.ComponentScore{
			Score:      round1(userScore),
			Confidence: sampleConfidence(1),
			SampleSize: 1,
		}
	default:
		return neutralComponent()
	}
}

// valueForRates relates official satisfaction to the rates burden per
// resident. Roughly $500-2000 per capita is the expected range; every $15
// above $500 costs one point of the rates factor.
func valueForRates(official *model.OfficialMetrics, council *model.Council) model.ComponentScore {
	if official == nil || official.CustomerSatisfaction == nil ||
		official.RatesRevenue == nil || !council.HasPopulation() {
		return neutralComponent()
	}

	ratesPerCapita := *official.RatesRevenue / float64(council.Population)
	ratesFactor := math.Max(0, math.Min(100, 100-(ratesPerCapita-500)/15))
	score := (*official.CustomerSatisfaction + ratesFactor) / 2

	return model.ComponentScore{
		Score:      round1(score),
		Confidence: model.ConfidenceMedium,
	}
}

// responsiveness buckets the mean resolution time of resolved issues.
func responsiveness(issues []model.IssueRecord) model.ComponentScore {
	if len(issues) == 0 {
		return neutralComponent()
	}

	var sum float64
	resolved := 0
	for _, issue := range issues {
		if !issue.Resolved() {
			continue
		}
		sum += float64(*issue.ResolutionTimeDays)
		resolved++
	}
	if resolved == 0 {
		return neutralComponent()
	}

	return model.ComponentScore{
		Score:      resolutionScore(sum / float64(resolved)),
		Confidence: sampleConfidence(resolved),
		SampleSize: resolved,
	}
}

// resolutionScore maps average resolution days to a score; faster is better.
func resolutionScore(avgDays float64) float64 {
	switch {
	case avgDays <= 1:
		return 100
	case avgDays <= 7:
		return 90
	case avgDays <= 14:
		return 75
	case avgDays <= 30:
		return 50
	case avgDays <= 60:
		return 25
	default:
		return 10
	}
}

// filterOutliers drops scores more than three population standard deviations
// from the mean. Fewer than three scores pass through untouched, and the
// filter abandons itself rather than discard half the sample or more.
func filterOutliers(scores []float64) []float64 {
	if len(scores) < 3 {
		return scores
	}

	m := mean(scores)
	var variance float64
	for _, s := range scores {
		variance += (s - m) * (s - m)
	}
	variance /= float64(len(scores))
	sd := math.Sqrt(variance)

	filtered := make([]float64, 0, len(scores))
	for _, s := range scores {
		if math.Abs(s-m) <= 3*sd {
			filtered = append(filtered, s)
		}
	}
	if float64(len(filtered)) < float64(len(scores))*0.5 {
		return scores
	}
	return filtered
}

// categoryMeanOfMeans averages ratings within each service category, then
// averages the category means, so a flood of ratings in one category cannot
// drown out the rest.
func categoryMeanOfMeans(ratings []model.RatingRecord) (float64, bool) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range ratings {
		sums[r.Category] += r.Rating * 20
		counts[r.Category]++
	}
	if len(sums) == 0 {
		return 0, false
	}

	var total float64
	for category, sum := range sums {
		total += sum / float64(counts[category])
	}
	return total / float64(len(sums)), true
}

// sampleConfidence grades a component by its sample size.
func sampleConfidence(n int) model.Confidence {
	switch {
	case n >= 30:
		return model.ConfidenceHigh
	case n >= 10:
		return model.ConfidenceMedium
	case n >= 3:
		return model.ConfidenceLow
	default:
		return model.ConfidenceVeryLow
	}
}

// overallConfidence grades the composite by total signal volume.
func overallConfidence(ratings, issues int) model.Confidence {
	switch total := ratings + issues; {
	case total >= 50:
		return model.ConfidenceHigh
	case total >= 20:
		return model.ConfidenceMedium
	case total >= 5:
		return model.ConfidenceLow
	default:
		return model.ConfidenceVeryLow
	}
}

func neutralComponent() model.ComponentScore {
	return model.ComponentScore{Score: 50, Confidence: model.ConfidenceLow}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

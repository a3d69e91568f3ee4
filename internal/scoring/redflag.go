package scoring

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/civicbench/council-cli/internal/model"
)

// redFlagWindowDays is the width of each comparison window.
const redFlagWindowDays = 90

// RedFlag computes the complaint-spike index: issue reports from the last 90
// days against the 90 days before them. A spike of 4x or more pins the score
// at 100.
func (e *Engine) RedFlag(ctx context.Context, councilID string) (*model.RedFlagIndex, error) {
	now := e.now()

	issues, err := e.source.Issues(ctx, councilID)
	if err != nil {
		return nil, eris.Wrapf(err, "scoring: load issues for %s", councilID)
	}

	recentCutoff := now.AddDate(0, 0, -redFlagWindowDays)
	previousCutoff := now.AddDate(0, 0, -2*redFlagWindowDays)

	var recent, previous int
	for _, issue := range issues {
		switch {
		case !issue.CreatedAt.Before(recentCutoff):
			recent++
		case !issue.CreatedAt.Before(previousCutoff):
			previous++
		}
	}

	var spike float64
	if previous == 0 {
		// No baseline window to compare against; treat each recent report
		// as a doubled signal.
		spike = float64(recent) * 2
	} else {
		spike = float64(recent) / float64(previous)
	}

	confidence := model.ConfidenceLow
	if recent+previous >= 10 {
		confidence = model.ConfidenceMedium
	}

	return &model.RedFlagIndex{
		CouncilID:     councilID,
		RecentCount:   recent,
		PreviousCount: previous,
		SpikeRatio:    round2(spike),
		Score:         round1(math.Min(100, spike*25)),
		Confidence:    confidence,
		GeneratedAt:   now,
	}, nil
}

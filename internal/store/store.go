// Package store persists the council registry, raw source payloads,
// official reporting snapshots, and community signals behind a single
// interface with SQLite and Postgres implementations.
package store

import (
	"context"
	"time"

	"github.com/civicbench/council-cli/internal/model"
)

// Store is the persistence boundary for the engine. Lookup methods return
// (nil, nil) when the requested record does not exist.
type Store interface {
	// Registry
	UpsertCouncil(ctx context.Context, c model.Council) error
	Council(ctx context.Context, id string) (*model.Council, error)
	CouncilsByRegion(ctx context.Context, region string) ([]model.Council, error)
	PeerCouncils(ctx context.Context, region string, minPop, maxPop int64, excludeID string, limit int) ([]model.Council, error)

	// Source data
	ImportPayloads(ctx context.Context, payloads []model.SourcePayload) (int, error)
	Payloads(ctx context.Context, councilID string) ([]model.SourcePayload, error)
	UpsertOfficialMetrics(ctx context.Context, m model.OfficialMetrics) error
	OfficialMetrics(ctx context.Context, councilID string) (*model.OfficialMetrics, error)

	// Community signals
	ImportRatings(ctx context.Context, ratings []model.RatingRecord) (int, error)
	ApprovedRatingsSince(ctx context.Context, councilID string, since time.Time) ([]model.RatingRecord, error)
	ImportIssues(ctx context.Context, issues []model.IssueRecord) (int, error)
	Issues(ctx context.Context, councilID string) ([]model.IssueRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

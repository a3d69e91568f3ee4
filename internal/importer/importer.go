// Package importer loads seed bundles and spreadsheet grids into the store.
package importer

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/model"
)

// Store is the subset of the persistence layer the importer writes through.
type Store interface {
	UpsertCouncil(ctx context.Context, c model.Council) error
	ImportPayloads(ctx context.Context, payloads []model.SourcePayload) (int, error)
	UpsertOfficialMetrics(ctx context.Context, m model.OfficialMetrics) error
	ImportRatings(ctx context.Context, ratings []model.RatingRecord) (int, error)
	ImportIssues(ctx context.Context, issues []model.IssueRecord) (int, error)
}

// Bundle is the JSON seed format: registry rows, raw source payloads,
// official reporting snapshots, and community signals in one document.
type Bundle struct {
	Councils        []model.Council         `json:"councils"`
	Payloads        []model.SourcePayload   `json:"payloads"`
	OfficialMetrics []model.OfficialMetrics `json:"official_metrics"`
	Ratings         []model.RatingRecord    `json:"ratings"`
	Issues          []model.IssueRecord     `json:"issues"`
}

// Result counts what an import wrote per section.
type Result struct {
	Councils        int `json:"councils"`
	Payloads        int `json:"payloads"`
	OfficialMetrics int `json:"official_metrics"`
	Ratings         int `json:"ratings"`
	Issues          int `json:"issues"`
}

// ImportBundle reads a JSON bundle from path and writes it to the store.
// The whole bundle is validated before the first write. Councils are written
// first so that payloads, snapshots, and signals always reference existing
// registry rows.
func ImportBundle(ctx context.Context, st Store, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open bundle")
	}
	defer f.Close() //nolint:errcheck

	var bundle Bundle
	if err := json.NewDecoder(f).Decode(&bundle); err != nil {
		return nil, eris.Wrap(err, "importer: decode bundle")
	}

	if err := validateBundle(&bundle); err != nil {
		return nil, err
	}

	res := &Result{}

	for _, c := range bundle.Councils {
		if err := st.UpsertCouncil(ctx, c); err != nil {
			return nil, eris.Wrapf(err, "importer: council %s", c.ID)
		}
		res.Councils++
	}

	for _, m := range bundle.OfficialMetrics {
		if err := st.UpsertOfficialMetrics(ctx, m); err != nil {
			return nil, eris.Wrapf(err, "importer: official metrics %s/%d", m.CouncilID, m.Year)
		}
		res.OfficialMetrics++
	}

	if res.Payloads, err = st.ImportPayloads(ctx, bundle.Payloads); err != nil {
		return nil, eris.Wrap(err, "importer: payloads")
	}
	if res.Ratings, err = st.ImportRatings(ctx, bundle.Ratings); err != nil {
		return nil, eris.Wrap(err, "importer: ratings")
	}
	if res.Issues, err = st.ImportIssues(ctx, bundle.Issues); err != nil {
		return nil, eris.Wrap(err, "importer: issues")
	}

	zap.L().Debug("bundle imported",
		zap.String("path", path),
		zap.Int("councils", res.Councils),
		zap.Int("payloads", res.Payloads),
		zap.Int("official_metrics", res.OfficialMetrics),
		zap.Int("ratings", res.Ratings),
		zap.Int("issues", res.Issues),
	)
	return res, nil
}

func validateBundle(b *Bundle) error {
	for i, c := range b.Councils {
		if c.ID == "" {
			return eris.Errorf("importer: councils[%d]: id is required", i)
		}
		if c.Name == "" {
			return eris.Errorf("importer: councils[%d]: name is required", i)
		}
	}
	for i, p := range b.Payloads {
		if p.CouncilID == "" {
			return eris.Errorf("importer: payloads[%d]: council_id is required", i)
		}
		if p.Source == "" {
			return eris.Errorf("importer: payloads[%d]: source is required", i)
		}
	}
	for i, m := range b.OfficialMetrics {
		if m.CouncilID == "" {
			return eris.Errorf("importer: official_metrics[%d]: council_id is required", i)
		}
		if m.Year <= 0 {
			return eris.Errorf("importer: official_metrics[%d]: year is required", i)
		}
	}
	for i, r := range b.Ratings {
		if r.CouncilID == "" {
			return eris.Errorf("importer: ratings[%d]: council_id is required", i)
		}
		if err := r.Validate(); err != nil {
			return eris.Wrapf(err, "importer: ratings[%d]", i)
		}
	}
	for i, rec := range b.Issues {
		if rec.CouncilID == "" {
			return eris.Errorf("importer: issues[%d]: council_id is required", i)
		}
		if err := rec.Validate(); err != nil {
			return eris.Wrapf(err, "importer: issues[%d]", i)
		}
	}
	return nil
}

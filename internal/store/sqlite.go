package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/civicbench/council-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS councils (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	region     TEXT NOT NULL,
	population INTEGER NOT NULL DEFAULT 0,
	area_km2   REAL NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS source_payloads (
	id         TEXT PRIMARY KEY,
	council_id TEXT NOT NULL REFERENCES councils(id),
	source     TEXT NOT NULL,
	data       TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS official_metrics (
	council_id             TEXT NOT NULL REFERENCES councils(id),
	year                   INTEGER NOT NULL,
	rates_revenue          REAL,
	total_revenue          REAL,
	total_expenditure      REAL,
	operating_deficit      REAL,
	population_served      INTEGER,
	area_km2               REAL,
	roads_maintained_km    REAL,
	customer_satisfaction  REAL,
	service_delivery_score REAL,
	PRIMARY KEY (council_id, year)
);

CREATE TABLE IF NOT EXISTS ratings (
	id                TEXT PRIMARY KEY,
	council_id        TEXT NOT NULL REFERENCES councils(id),
	category          TEXT NOT NULL,
	rating            REAL NOT NULL,
	comment           TEXT NOT NULL DEFAULT '',
	moderation_status TEXT NOT NULL DEFAULT 'pending',
	created_at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS issues (
	id                   TEXT PRIMARY KEY,
	council_id           TEXT NOT NULL REFERENCES councils(id),
	category             TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'reported',
	priority             TEXT NOT NULL DEFAULT 'medium',
	resolution_time_days INTEGER,
	created_at           DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_councils_region_population ON councils(region, population);
CREATE INDEX IF NOT EXISTS idx_source_payloads_council_id ON source_payloads(council_id);
CREATE INDEX IF NOT EXISTS idx_ratings_council_status ON ratings(council_id, moderation_status, created_at);
CREATE INDEX IF NOT EXISTS idx_issues_council_id ON issues(council_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertCouncil(ctx context.Context, c model.Council) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO councils (id, name, region, population, area_km2, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, region = excluded.region, population = excluded.population,
		   area_km2 = excluded.area_km2, updated_at = excluded.updated_at`,
		c.ID, c.Name, c.Region, c.Population, c.AreaKm2, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert council %s", c.ID)
}

func (s *SQLiteStore) Council(ctx context.Context, id string) (*model.Council, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, region, population, area_km2 FROM councils WHERE id = ?`,
		id,
	)
	var c model.Council
	err := row.Scan(&c.ID, &c.Name, &c.Region, &c.Population, &c.AreaKm2)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get council %s", id)
	}
	return &c, nil
}

func (s *SQLiteStore) CouncilsByRegion(ctx context.Context, region string) ([]model.Council, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, region, population, area_km2 FROM councils WHERE region = ? ORDER BY name`,
		region,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: councils in %s", region)
	}
	defer rows.Close()
	return collectCouncils(rows)
}

func (s *SQLiteStore) PeerCouncils(ctx context.Context, region string, minPop, maxPop int64, excludeID string, limit int) ([]model.Council, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, region, population, area_km2 FROM councils
		 WHERE region = ? AND id != ? AND population >= ? AND population <= ?
		 ORDER BY population, id LIMIT ?`,
		region, excludeID, minPop, maxPop, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: peers in %s", region)
	}
	defer rows.Close()
	return collectCouncils(rows)
}

// ImportPayloads appends source drops. Every drop gets a fresh id; the
// payload table is a journal, and the profile merge resolves which drop
// wins per key.
func (s *SQLiteStore) ImportPayloads(ctx context.Context, payloads []model.SourcePayload) (int, error) {
	if len(payloads) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin payload import")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range payloads {
		fetchedAt := p.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now().UTC()
		}
		dataJSON, err := json.Marshal(p.Data)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: marshal payload for %s", p.CouncilID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO source_payloads (id, council_id, source, data, fetched_at) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), p.CouncilID, p.Source, string(dataJSON), fetchedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert payload for %s", p.CouncilID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit payload import")
	}
	return len(payloads), nil
}

func (s *SQLiteStore) Payloads(ctx context.Context, councilID string) ([]model.SourcePayload, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, council_id, source, data, fetched_at FROM source_payloads
		 WHERE council_id = ? ORDER BY fetched_at, id`,
		councilID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: payloads for %s", councilID)
	}
	defer rows.Close()

	var payloads []model.SourcePayload
	for rows.Next() {
		var p model.SourcePayload
		var dataJSON string
		if err := rows.Scan(&p.ID, &p.CouncilID, &p.Source, &dataJSON, &p.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan payload")
		}
		if p.Data, err = model.DecodeJSON([]byte(dataJSON)); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode payload %s", p.ID)
		}
		payloads = append(payloads, p)
	}
	return payloads, eris.Wrap(rows.Err(), "sqlite: payloads iterate")
}

func (s *SQLiteStore) UpsertOfficialMetrics(ctx context.Context, m model.OfficialMetrics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO official_metrics
		 (council_id, year, rates_revenue, total_revenue, total_expenditure, operating_deficit,
		  population_served, area_km2, roads_maintained_km, customer_satisfaction, service_delivery_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (council_id, year) DO UPDATE SET
		   rates_revenue = excluded.rates_revenue, total_revenue = excluded.total_revenue,
		   total_expenditure = excluded.total_expenditure, operating_deficit = excluded.operating_deficit,
		   population_served = excluded.population_served, area_km2 = excluded.area_km2,
		   roads_maintained_km = excluded.roads_maintained_km, customer_satisfaction = excluded.customer_satisfaction,
		   service_delivery_score = excluded.service_delivery_score`,
		m.CouncilID, m.Year, m.RatesRevenue, m.TotalRevenue, m.TotalExpenditure, m.OperatingDeficit,
		m.PopulationServed, m.AreaKm2, m.RoadsMaintainedKm, m.CustomerSatisfaction, m.ServiceDeliveryScore,
	)
	return eris.Wrapf(err, "sqlite: upsert official metrics %s/%d", m.CouncilID, m.Year)
}

// OfficialMetrics returns the latest reporting year for a council, or
// (nil, nil) when none has been imported.
func (s *SQLiteStore) OfficialMetrics(ctx context.Context, councilID string) (*model.OfficialMetrics, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT council_id, year, rates_revenue, total_revenue, total_expenditure, operating_deficit,
		        population_served, area_km2, roads_maintained_km, customer_satisfaction, service_delivery_score
		 FROM official_metrics WHERE council_id = ? ORDER BY year DESC LIMIT 1`,
		councilID,
	)
	var m model.OfficialMetrics
	err := row.Scan(&m.CouncilID, &m.Year, &m.RatesRevenue, &m.TotalRevenue, &m.TotalExpenditure,
		&m.OperatingDeficit, &m.PopulationServed, &m.AreaKm2, &m.RoadsMaintainedKm,
		&m.CustomerSatisfaction, &m.ServiceDeliveryScore)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: official metrics for %s", councilID)
	}
	return &m, nil
}

// ImportRatings upserts ratings by id, assigning ids to records that lack
// one, so bundle re-imports stay idempotent.
func (s *SQLiteStore) ImportRatings(ctx context.Context, ratings []model.RatingRecord) (int, error) {
	if len(ratings) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin rating import")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range ratings {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ratings (id, council_id, category, rating, comment, moderation_status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   council_id = excluded.council_id, category = excluded.category, rating = excluded.rating,
			   comment = excluded.comment, moderation_status = excluded.moderation_status,
			   created_at = excluded.created_at`,
			r.ID, r.CouncilID, r.Category, r.Rating, r.Comment, string(r.ModerationStatus), r.CreatedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert rating for %s", r.CouncilID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit rating import")
	}
	return len(ratings), nil
}

func (s *SQLiteStore) ApprovedRatingsSince(ctx context.Context, councilID string, since time.Time) ([]model.RatingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, council_id, category, rating, comment, moderation_status, created_at FROM ratings
		 WHERE council_id = ? AND moderation_status = 'approved' AND created_at >= ?
		 ORDER BY created_at`,
		councilID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: ratings for %s", councilID)
	}
	defer rows.Close()

	var ratings []model.RatingRecord
	for rows.Next() {
		var r model.RatingRecord
		if err := rows.Scan(&r.ID, &r.CouncilID, &r.Category, &r.Rating, &r.Comment, &r.ModerationStatus, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan rating")
		}
		ratings = append(ratings, r)
	}
	return ratings, eris.Wrap(rows.Err(), "sqlite: ratings iterate")
}

// ImportIssues upserts issues by id, assigning ids to records that lack one.
func (s *SQLiteStore) ImportIssues(ctx context.Context, issues []model.IssueRecord) (int, error) {
	if len(issues) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin issue import")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, i := range issues {
		if i.ID == "" {
			i.ID = uuid.New().String()
		}
		if i.CreatedAt.IsZero() {
			i.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO issues (id, council_id, category, description, status, priority, resolution_time_days, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET
			   council_id = excluded.council_id, category = excluded.category, description = excluded.description,
			   status = excluded.status, priority = excluded.priority,
			   resolution_time_days = excluded.resolution_time_days, created_at = excluded.created_at`,
			i.ID, i.CouncilID, i.Category, i.Description, string(i.Status), string(i.Priority), i.ResolutionTimeDays, i.CreatedAt,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert issue for %s", i.CouncilID)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit issue import")
	}
	return len(issues), nil
}

func (s *SQLiteStore) Issues(ctx context.Context, councilID string) ([]model.IssueRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, council_id, category, description, status, priority, resolution_time_days, created_at
		 FROM issues WHERE council_id = ? ORDER BY created_at`,
		councilID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: issues for %s", councilID)
	}
	defer rows.Close()

	var issues []model.IssueRecord
	for rows.Next() {
		var i model.IssueRecord
		if err := rows.Scan(&i.ID, &i.CouncilID, &i.Category, &i.Description, &i.Status, &i.Priority, &i.ResolutionTimeDays, &i.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan issue")
		}
		issues = append(issues, i)
	}
	return issues, eris.Wrap(rows.Err(), "sqlite: issues iterate")
}

// helpers

func collectCouncils(rows *sql.Rows) ([]model.Council, error) {
	var councils []model.Council
	for rows.Next() {
		var c model.Council
		if err := rows.Scan(&c.ID, &c.Name, &c.Region, &c.Population, &c.AreaKm2); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan council")
		}
		councils = append(councils, c)
	}
	return councils, eris.Wrap(rows.Err(), "sqlite: councils iterate")
}

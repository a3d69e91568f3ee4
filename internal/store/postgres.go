package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/civicbench/council-cli/internal/db"
	"github.com/civicbench/council-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the per-profile read path.
var preparedStatements = map[string]string{
	"get_council":     `SELECT id, name, region, population, area_km2 FROM councils WHERE id = $1`,
	"payloads":        `SELECT id, council_id, source, data, fetched_at FROM source_payloads WHERE council_id = $1 ORDER BY fetched_at, id`,
	"official_latest": `SELECT council_id, year, rates_revenue, total_revenue, total_expenditure, operating_deficit, population_served, area_km2, roads_maintained_km, customer_satisfaction, service_delivery_score FROM official_metrics WHERE council_id = $1 ORDER BY year DESC LIMIT 1`,
	"peer_councils":   `SELECT id, name, region, population, area_km2 FROM councils WHERE region = $1 AND id != $2 AND population >= $3 AND population <= $4 ORDER BY population, id LIMIT $5`,
	"ratings_since":   `SELECT id, council_id, category, rating, comment, moderation_status, created_at FROM ratings WHERE council_id = $1 AND moderation_status = 'approved' AND created_at >= $2 ORDER BY created_at`,
	"issues":          `SELECT id, council_id, category, description, status, priority, resolution_time_days, created_at FROM issues WHERE council_id = $1 ORDER BY created_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS councils (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	region     TEXT NOT NULL,
	population BIGINT NOT NULL DEFAULT 0,
	area_km2   DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS source_payloads (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	council_id TEXT NOT NULL REFERENCES councils(id),
	source     TEXT NOT NULL,
	data       JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS official_metrics (
	council_id             TEXT NOT NULL REFERENCES councils(id),
	year                   INTEGER NOT NULL,
	rates_revenue          DOUBLE PRECISION,
	total_revenue          DOUBLE PRECISION,
	total_expenditure      DOUBLE PRECISION,
	operating_deficit      DOUBLE PRECISION,
	population_served      BIGINT,
	area_km2               DOUBLE PRECISION,
	roads_maintained_km    DOUBLE PRECISION,
	customer_satisfaction  DOUBLE PRECISION,
	service_delivery_score DOUBLE PRECISION,
	PRIMARY KEY (council_id, year)
);

CREATE TABLE IF NOT EXISTS ratings (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	council_id        TEXT NOT NULL REFERENCES councils(id),
	category          TEXT NOT NULL,
	rating            DOUBLE PRECISION NOT NULL,
	comment           TEXT NOT NULL DEFAULT '',
	moderation_status TEXT NOT NULL DEFAULT 'pending',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS issues (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	council_id           TEXT NOT NULL REFERENCES councils(id),
	category             TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'reported',
	priority             TEXT NOT NULL DEFAULT 'medium',
	resolution_time_days INTEGER,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_councils_region_population ON councils(region, population);
CREATE INDEX IF NOT EXISTS idx_source_payloads_council_id ON source_payloads(council_id);
CREATE INDEX IF NOT EXISTS idx_official_metrics_latest ON official_metrics(council_id, year DESC);
CREATE INDEX IF NOT EXISTS idx_ratings_council_status ON ratings(council_id, moderation_status, created_at);
CREATE INDEX IF NOT EXISTS idx_issues_council_id ON issues(council_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertCouncil(ctx context.Context, c model.Council) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO councils (id, name, region, population, area_km2, updated_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET name = $2, region = $3, population = $4, area_km2 = $5, updated_at = $6`,
		c.ID, c.Name, c.Region, c.Population, c.AreaKm2, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert council %s", c.ID)
}

func (s *PostgresStore) Council(ctx context.Context, id string) (*model.Council, error) {
	var c model.Council
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, region, population, area_km2 FROM councils WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Region, &c.Population, &c.AreaKm2)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get council %s", id)
	}
	return &c, nil
}

func (s *PostgresStore) CouncilsByRegion(ctx context.Context, region string) ([]model.Council, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, region, population, area_km2 FROM councils WHERE region = $1 ORDER BY name`,
		region,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: councils in %s", region)
	}
	defer rows.Close()
	return collectPgxCouncils(rows)
}

func (s *PostgresStore) PeerCouncils(ctx context.Context, region string, minPop, maxPop int64, excludeID string, limit int) ([]model.Council, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, region, population, area_km2 FROM councils
		 WHERE region = $1 AND id != $2 AND population >= $3 AND population <= $4
		 ORDER BY population, id LIMIT $5`,
		region, excludeID, minPop, maxPop, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: peers in %s", region)
	}
	defer rows.Close()
	return collectPgxCouncils(rows)
}

// ImportPayloads appends source drops via COPY. Every drop gets a fresh id;
// the payload table is a journal, and the profile merge resolves which drop
// wins per key.
func (s *PostgresStore) ImportPayloads(ctx context.Context, payloads []model.SourcePayload) (int, error) {
	if len(payloads) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(payloads))
	for _, p := range payloads {
		fetchedAt := p.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = now
		}
		dataJSON, err := json.Marshal(p.Data)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal payload for %s", p.CouncilID)
		}
		rows = append(rows, []any{uuid.New().String(), p.CouncilID, p.Source, dataJSON, fetchedAt})
	}
	n, err := db.CopyFrom(ctx, s.pool, "source_payloads",
		[]string{"id", "council_id", "source", "data", "fetched_at"}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import payloads")
	}
	return int(n), nil
}

func (s *PostgresStore) Payloads(ctx context.Context, councilID string) ([]model.SourcePayload, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, council_id, source, data, fetched_at FROM source_payloads
		 WHERE council_id = $1 ORDER BY fetched_at, id`,
		councilID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: payloads for %s", councilID)
	}
	defer rows.Close()

	var payloads []model.SourcePayload
	for rows.Next() {
		var p model.SourcePayload
		var dataJSON []byte
		if err := rows.Scan(&p.ID, &p.CouncilID, &p.Source, &dataJSON, &p.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan payload")
		}
		if p.Data, err = model.DecodeJSON(dataJSON); err != nil {
			return nil, eris.Wrapf(err, "postgres: decode payload %s", p.ID)
		}
		payloads = append(payloads, p)
	}
	return payloads, eris.Wrap(rows.Err(), "postgres: payloads iterate")
}

func (s *PostgresStore) UpsertOfficialMetrics(ctx context.Context, m model.OfficialMetrics) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO official_metrics
		 (council_id, year, rates_revenue, total_revenue, total_expenditure, operating_deficit,
		  population_served, area_km2, roads_maintained_km, customer_satisfaction, service_delivery_score)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (council_id, year) DO UPDATE SET
		   rates_revenue = $3, total_revenue = $4, total_expenditure = $5, operating_deficit = $6,
		   population_served = $7, area_km2 = $8, roads_maintained_km = $9,
		   customer_satisfaction = $10, service_delivery_score = $11`,
		m.CouncilID, m.Year, m.RatesRevenue, m.TotalRevenue, m.TotalExpenditure, m.OperatingDeficit,
		m.PopulationServed, m.AreaKm2, m.RoadsMaintainedKm, m.CustomerSatisfaction, m.ServiceDeliveryScore,
	)
	return eris.Wrapf(err, "postgres: upsert official metrics %s/%d", m.CouncilID, m.Year)
}

// OfficialMetrics returns the latest reporting year for a council, or
// (nil, nil) when none has been imported.
func (s *PostgresStore) OfficialMetrics(ctx context.Context, councilID string) (*model.OfficialMetrics, error) {
	var m model.OfficialMetrics
	err := s.pool.QueryRow(ctx,
		`SELECT council_id, year, rates_revenue, total_revenue, total_expenditure, operating_deficit,
		        population_served, area_km2, roads_maintained_km, customer_satisfaction, service_delivery_score
		 FROM official_metrics WHERE council_id = $1 ORDER BY year DESC LIMIT 1`,
		councilID,
	).Scan(&m.CouncilID, &m.Year, &m.RatesRevenue, &m.TotalRevenue, &m.TotalExpenditure,
		&m.OperatingDeficit, &m.PopulationServed, &m.AreaKm2, &m.RoadsMaintainedKm,
		&m.CustomerSatisfaction, &m.ServiceDeliveryScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: official metrics for %s", councilID)
	}
	return &m, nil
}

// ImportRatings upserts ratings by id through a temp table, assigning ids to
// records that lack one, so bundle re-imports stay idempotent.
func (s *PostgresStore) ImportRatings(ctx context.Context, ratings []model.RatingRecord) (int, error) {
	if len(ratings) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(ratings))
	for _, r := range ratings {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		rows = append(rows, []any{r.ID, r.CouncilID, r.Category, r.Rating, r.Comment, string(r.ModerationStatus), r.CreatedAt})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "ratings",
		Columns:      []string{"id", "council_id", "category", "rating", "comment", "moderation_status", "created_at"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import ratings")
	}
	return int(n), nil
}

func (s *PostgresStore) ApprovedRatingsSince(ctx context.Context, councilID string, since time.Time) ([]model.RatingRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, council_id, category, rating, comment, moderation_status, created_at FROM ratings
		 WHERE council_id = $1 AND moderation_status = 'approved' AND created_at >= $2
		 ORDER BY created_at`,
		councilID, since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: ratings for %s", councilID)
	}
	defer rows.Close()

	var ratings []model.RatingRecord
	for rows.Next() {
		var r model.RatingRecord
		if err := rows.Scan(&r.ID, &r.CouncilID, &r.Category, &r.Rating, &r.Comment, &r.ModerationStatus, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan rating")
		}
		ratings = append(ratings, r)
	}
	return ratings, eris.Wrap(rows.Err(), "postgres: ratings iterate")
}

// ImportIssues upserts issues by id through a temp table, assigning ids to
// records that lack one.
func (s *PostgresStore) ImportIssues(ctx context.Context, issues []model.IssueRecord) (int, error) {
	if len(issues) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	rows := make([][]any, 0, len(issues))
	for _, i := range issues {
		if i.ID == "" {
			i.ID = uuid.New().String()
		}
		if i.CreatedAt.IsZero() {
			i.CreatedAt = now
		}
		rows = append(rows, []any{i.ID, i.CouncilID, i.Category, i.Description, string(i.Status), string(i.Priority), i.ResolutionTimeDays, i.CreatedAt})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "issues",
		Columns:      []string{"id", "council_id", "category", "description", "status", "priority", "resolution_time_days", "created_at"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import issues")
	}
	return int(n), nil
}

func (s *PostgresStore) Issues(ctx context.Context, councilID string) ([]model.IssueRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, council_id, category, description, status, priority, resolution_time_days, created_at
		 FROM issues WHERE council_id = $1 ORDER BY created_at`,
		councilID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: issues for %s", councilID)
	}
	defer rows.Close()

	var issues []model.IssueRecord
	for rows.Next() {
		var i model.IssueRecord
		if err := rows.Scan(&i.ID, &i.CouncilID, &i.Category, &i.Description, &i.Status, &i.Priority, &i.ResolutionTimeDays, &i.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan issue")
		}
		issues = append(issues, i)
	}
	return issues, eris.Wrap(rows.Err(), "postgres: issues iterate")
}

func collectPgxCouncils(rows pgx.Rows) ([]model.Council, error) {
	var councils []model.Council
	for rows.Next() {
		var c model.Council
		if err := rows.Scan(&c.ID, &c.Name, &c.Region, &c.Population, &c.AreaKm2); err != nil {
			return nil, eris.Wrap(err, "postgres: scan council")
		}
		councils = append(councils, c)
	}
	return councils, eris.Wrap(rows.Err(), "postgres: councils iterate")
}

package store

import (
	"context"
	"fmt"
	"time"

	"staffing-risk/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps history in a PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a pool to dsn and creates the schema if needed.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect history db: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS demand_buckets (
	start_at TIMESTAMPTZ PRIMARY KEY,
	orders DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_runs (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	horizon_start TIMESTAMPTZ NOT NULL,
	intervals INTEGER NOT NULL,
	overload_periods INTEGER NOT NULL,
	idle_periods INTEGER NOT NULL,
	recommendations INTEGER NOT NULL,
	summary_json JSONB
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_at)`)
	if err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// SaveBuckets upserts buckets in a single batch.
func (p *Postgres) SaveBuckets(ctx context.Context, buckets []models.Bucket) error {
	if len(buckets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range buckets {
		batch.Queue(`
INSERT INTO demand_buckets (start_at, orders) VALUES ($1, $2)
ON CONFLICT (start_at) DO UPDATE SET orders = EXCLUDED.orders`, b.Start.UTC(), b.Orders)
	}
	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert buckets: %w", err)
	}
	return nil
}

// LoadBuckets returns buckets at or after since in time order.
func (p *Postgres) LoadBuckets(ctx context.Context, since time.Time) ([]models.Bucket, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT start_at, orders FROM demand_buckets WHERE start_at >= $1 ORDER BY start_at`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var out []models.Bucket
	for rows.Next() {
		var b models.Bucket
		if err := rows.Scan(&b.Start, &b.Orders); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		b.Start = b.Start.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return out, nil
}

// SaveRun inserts a run record.
func (p *Postgres) SaveRun(ctx context.Context, run Run) (string, error) {
	run = prepareRun(run)
	var summary any
	if run.SummaryJSON != "" {
		summary = run.SummaryJSON
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO analysis_runs (id, created_at, horizon_start, intervals, overload_periods, idle_periods, recommendations, summary_json)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.CreatedAt, run.HorizonStart, run.Intervals, run.OverloadPeriods, run.IdlePeriods, run.Recommendations, summary)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return run.ID, nil
}

// Runs lists the newest runs first.
func (p *Postgres) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx, `
SELECT id::text, created_at, horizon_start, intervals, overload_periods, idle_periods, recommendations, COALESCE(summary_json::text, '')
FROM analysis_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.HorizonStart, &r.Intervals, &r.OverloadPeriods, &r.IdlePeriods, &r.Recommendations, &r.SummaryJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.HorizonStart = r.HorizonStart.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"staffing-risk/models"

	_ "modernc.org/sqlite"
)

// SQLite keeps history in a single database file.
type SQLite struct {
	DBPath string
	db     *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve history db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	s := &SQLite{DBPath: absPath, db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLite) ensureSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS demand_buckets (
	start_unix INTEGER PRIMARY KEY,
	orders REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_runs (
	id TEXT PRIMARY KEY,
	created_unix INTEGER NOT NULL,
	horizon_start_unix INTEGER NOT NULL,
	intervals INTEGER NOT NULL,
	overload_periods INTEGER NOT NULL,
	idle_periods INTEGER NOT NULL,
	recommendations INTEGER NOT NULL,
	summary_json TEXT
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON analysis_runs(created_unix);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// SaveBuckets upserts buckets in one transaction.
func (s *SQLite) SaveBuckets(ctx context.Context, buckets []models.Bucket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bucket insert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO demand_buckets (start_unix, orders) VALUES (?, ?)
ON CONFLICT(start_unix) DO UPDATE SET orders = excluded.orders`)
	if err != nil {
		return fmt.Errorf("prepare bucket insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range buckets {
		if _, err := stmt.ExecContext(ctx, b.Start.Unix(), b.Orders); err != nil {
			return fmt.Errorf("insert bucket %s: %w", b.Start.UTC().Format(time.RFC3339), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bucket insert: %w", err)
	}
	return nil
}

// LoadBuckets returns buckets at or after since in time order.
func (s *SQLite) LoadBuckets(ctx context.Context, since time.Time) ([]models.Bucket, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT start_unix, orders FROM demand_buckets WHERE start_unix >= ? ORDER BY start_unix", since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var out []models.Bucket
	for rows.Next() {
		var start int64
		var b models.Bucket
		if err := rows.Scan(&start, &b.Orders); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		b.Start = time.Unix(start, 0).UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return out, nil
}

// SaveRun inserts a run record.
func (s *SQLite) SaveRun(ctx context.Context, run Run) (string, error) {
	run = prepareRun(run)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO analysis_runs (id, created_unix, horizon_start_unix, intervals, overload_periods, idle_periods, recommendations, summary_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UnixNano(),
		run.HorizonStart.Unix(),
		run.Intervals,
		run.OverloadPeriods,
		run.IdlePeriods,
		run.Recommendations,
		run.SummaryJSON,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return run.ID, nil
}

// Runs lists the newest runs first.
func (s *SQLite) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, created_unix, horizon_start_unix, intervals, overload_periods, idle_periods, recommendations, summary_json
FROM analysis_runs ORDER BY created_unix DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var created, horizon int64
		var summary sql.NullString
		if err := rows.Scan(&r.ID, &created, &horizon, &r.Intervals, &r.OverloadPeriods, &r.IdlePeriods, &r.Recommendations, &summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		r.HorizonStart = time.Unix(horizon, 0).UTC()
		r.SummaryJSON = summary.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Package store persists historical demand buckets and analysis runs so the
// demand model can be retrained on a schedule.
package store

import (
	"context"
	"fmt"
	"time"

	customerrors "staffing-risk/errors"
	"staffing-risk/models"

	"github.com/google/uuid"
)

// Run is the record of one workload analysis.
type Run struct {
	ID              string
	CreatedAt       time.Time
	HorizonStart    time.Time
	Intervals       int
	OverloadPeriods int
	IdlePeriods     int
	Recommendations int
	SummaryJSON     string
}

// HistoryStore is implemented by every backend.
type HistoryStore interface {
	// SaveBuckets inserts buckets, replacing any existing bucket with the
	// same start time.
	SaveBuckets(ctx context.Context, buckets []models.Bucket) error
	// LoadBuckets returns buckets starting at or after since, oldest first.
	LoadBuckets(ctx context.Context, since time.Time) ([]models.Bucket, error)
	// SaveRun stores run and returns its id, generating one when empty.
	SaveRun(ctx context.Context, run Run) (string, error)
	// Runs returns up to limit runs, newest first.
	Runs(ctx context.Context, limit int) ([]Run, error)
	Close() error
}

// Open connects to the backend named by driver.
func Open(ctx context.Context, driver, dsn string) (HistoryStore, error) {
	switch driver {
	case "sqlite":
		s, err := OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		p, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", customerrors.ErrUnknownStore, driver)
	}
}

var (
	_ HistoryStore = (*SQLite)(nil)
	_ HistoryStore = (*Postgres)(nil)
)

// prepareRun fills the id and creation time the caller left empty.
func prepareRun(run Run) Run {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC()
	run.HorizonStart = run.HorizonStart.UTC()
	return run
}

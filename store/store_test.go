package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	customerrors "staffing-risk/errors"
	"staffing-risk/models"
	"staffing-risk/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func buckets(orders ...float64) []models.Bucket {
	out := make([]models.Bucket, len(orders))
	for i, o := range orders {
		out[i] = models.Bucket{Start: base.Add(time.Duration(i) * 15 * time.Minute), Orders: o}
	}
	return out
}

// backends returns every store the environment can provide.
func backends(t *testing.T) map[string]store.HistoryStore {
	t.Helper()
	ctx := context.Background()
	out := map[string]store.HistoryStore{}

	sqlite, err := store.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	out["SQLite"] = sqlite

	if dsn := os.Getenv("STAFFRISK_TEST_POSTGRES_DSN"); dsn != "" {
		pg, err := store.Open(ctx, "postgres", dsn)
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		out["Postgres"] = pg
	}
	return out
}

func TestBucketsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveBuckets(ctx, buckets(3, 5, 8, 2)))
			// The second save replaces the overlapping bucket.
			require.NoError(t, s.SaveBuckets(ctx, []models.Bucket{{Start: base.Add(15 * time.Minute), Orders: 6}}))
			require.NoError(t, s.SaveBuckets(ctx, nil))

			got, err := s.LoadBuckets(ctx, base)
			require.NoError(t, err)
			require.Len(t, got, 4)
			assert.Equal(t, []float64{3, 6, 8, 2}, []float64{got[0].Orders, got[1].Orders, got[2].Orders, got[3].Orders})
			assert.Equal(t, base, got[0].Start)
			assert.Equal(t, base.Add(45*time.Minute), got[3].Start)

			later, err := s.LoadBuckets(ctx, base.Add(30*time.Minute))
			require.NoError(t, err)
			assert.Len(t, later, 2)
		})
	}
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	// Creation times relative to now keep these runs newest on a shared database.
	now := time.Now().UTC().Truncate(time.Second)
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := s.SaveRun(ctx, store.Run{
				CreatedAt:       now,
				HorizonStart:    base,
				Intervals:       96,
				OverloadPeriods: 2,
				IdlePeriods:     3,
				Recommendations: 4,
				SummaryJSON:     `{"burnout_risk": 40}`,
			})
			require.NoError(t, err)
			_, err = uuid.Parse(first)
			assert.NoError(t, err, "generated ids are uuids")

			fixed := uuid.NewString()
			second, err := s.SaveRun(ctx, store.Run{ID: fixed, CreatedAt: now.Add(time.Second), HorizonStart: base.Add(time.Hour)})
			require.NoError(t, err)
			assert.Equal(t, fixed, second)

			runs, err := s.Runs(ctx, 10)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(runs), 2)
			assert.Equal(t, second, runs[0].ID)
			assert.Equal(t, first, runs[1].ID)
			assert.Equal(t, 96, runs[1].Intervals)
			assert.Equal(t, 4, runs[1].Recommendations)
			assert.Equal(t, base, runs[1].HorizonStart)
			assert.Contains(t, runs[1].SummaryJSON, "burnout_risk")
			assert.Empty(t, runs[0].SummaryJSON)

			limited, err := s.Runs(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestSQLiteReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := store.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveBuckets(ctx, buckets(7)))
	require.NoError(t, s.Close())

	s, err = store.OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.LoadBuckets(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, buckets(7), got)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := store.Open(context.Background(), "mongo", "")
	assert.True(t, errors.Is(err, customerrors.ErrUnknownStore))
}

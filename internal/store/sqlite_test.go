package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bonus-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "bonos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRoundtrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := testRecord("A1", 1)
	require.NoError(t, s.Insert(ctx, rec))

	got, err := s.Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.Equal(t, rec.AgentID, got.AgentID)
	assert.Equal(t, rec.Metrics, got.Metrics)
	assert.Equal(t, "427050", got.TotalBono.String())
	assert.True(t, got.RecordedAt.Equal(rec.RecordedAt))
}

func TestSQLiteDuplicateInsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := testRecord("A1", 1)
	require.NoError(t, s.Insert(ctx, rec))

	err := s.Insert(ctx, rec)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestSQLiteUpdateAndDelete(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rec := testRecord("A1", 1)
	require.NoError(t, s.Insert(ctx, rec))

	m := model.Metrics{Sales: 130, Quality: 98, Absenteeism: 0}
	require.NoError(t, s.UpdateMetrics(ctx, rec.Key(), m, decimal.NewFromInt(384345)))

	got, err := s.Get(ctx, rec.Key())
	require.NoError(t, err)
	assert.Equal(t, m, got.Metrics)
	assert.Equal(t, rec.Name, got.Name)

	require.NoError(t, s.Delete(ctx, rec.Key()))
	_, err = s.Get(ctx, rec.Key())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteUpdateUnknownKey(t *testing.T) {
	s := newTestSQLite(t)

	key := model.NewRecordKey("ghost", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	err := s.UpdateMetrics(context.Background(), key, model.Metrics{}, decimal.Zero)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Delete(context.Background(), key)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteListOrdering(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testRecord("A1", 3)))
	require.NoError(t, s.Insert(ctx, testRecord("A1", 1)))
	require.NoError(t, s.Insert(ctx, testRecord("A1", 2)))

	records, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].RecordedAt.Before(records[1].RecordedAt))
	assert.True(t, records[1].RecordedAt.Before(records[2].RecordedAt))
}

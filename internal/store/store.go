// Package store persists bonus records in a tabular backend. Backends share
// the fixed column order [id, name, email, sales, quality, absenteeism,
// totalBono, timestamp]; in the sheet backend the first row is a header and is
// never treated as data.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sells-group/bonus-cli/internal/model"
)

var (
	// ErrNotFound is returned when a key matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert collides with an existing
	// (agent id, timestamp) key.
	ErrDuplicate = errors.New("record already exists")
)

// Store defines the persistence interface for bonus records. Operations are
// synchronous; no atomicity is guaranteed across concurrent writers.
type Store interface {
	Insert(ctx context.Context, rec model.BonusRecord) error
	ListAll(ctx context.Context) ([]model.BonusRecord, error)
	Get(ctx context.Context, key model.RecordKey) (*model.BonusRecord, error)
	// UpdateMetrics replaces only the metric fields and the recomputed
	// total; identity fields are never touched.
	UpdateMetrics(ctx context.Context, key model.RecordKey, m model.Metrics, total decimal.Decimal) error
	Delete(ctx context.Context, key model.RecordKey) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

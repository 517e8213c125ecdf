// Package model defines the record types shared by the stores, the bonus
// engine, and the reporting layer.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Metrics holds the three raw performance values for one evaluation period.
// Sales and Quality are higher-is-better; Absenteeism counts missed days and
// is lower-is-better.
type Metrics struct {
	Sales       float64 `json:"sales"`
	Quality     float64 `json:"quality"`
	Absenteeism float64 `json:"absenteeism"`
}

// RecordKey identifies a bonus record by agent and normalized timestamp.
// Keys are compared structurally; there is no surrogate id.
type RecordKey struct {
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordKey builds a key with the timestamp normalized.
func NewRecordKey(agentID string, ts time.Time) RecordKey {
	return RecordKey{AgentID: agentID, Timestamp: NormalizeTimestamp(ts)}
}

// Equal reports whether two keys identify the same record.
func (k RecordKey) Equal(other RecordKey) bool {
	return k.AgentID == other.AgentID && k.Timestamp.Equal(other.Timestamp)
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s@%s", k.AgentID, k.Timestamp.Format(time.RFC3339))
}

// BonusRecord is one persisted evaluation of an agent. TotalBono is always
// computed server-side from the metrics; values supplied by callers are
// discarded.
type BonusRecord struct {
	AgentID    string          `json:"agent_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Metrics    Metrics         `json:"metrics"`
	TotalBono  decimal.Decimal `json:"total_bono"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Key returns the record's structural key.
func (r BonusRecord) Key() RecordKey {
	return NewRecordKey(r.AgentID, r.RecordedAt)
}

// NormalizeTimestamp converts a timestamp to its canonical stored form:
// UTC, truncated to whole seconds. Stores persist this form, so structural
// key comparison never depends on sub-second precision or zone offsets.
func NormalizeTimestamp(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Second)
}

// timestampLayouts are accepted at the CLI and HTTP boundaries, tried in
// order. Date-only values resolve to midnight UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a boundary-supplied timestamp string. An unparseable
// value is a validation error, never a raw-string fallback key.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return NormalizeTimestamp(ts), nil
		}
	}
	return time.Time{}, Invalidf("unrecognized timestamp %q", raw)
}

// CoerceMetric normalizes a loosely-typed metric value. Missing, non-numeric,
// NaN, and infinite inputs all become 0. Applied before calculation and
// before storage.
func CoerceMetric(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return sanitize(x)
	case float32:
		return sanitize(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		return sanitize(f)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		return sanitize(f)
	default:
		return 0
	}
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

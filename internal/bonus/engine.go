package bonus

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bonus-cli/internal/model"
	"github.com/sells-group/bonus-cli/internal/store"
)

// SubmitForm is the boundary shape of a save request. Metric fields are
// loosely typed so missing or non-numeric values coerce to 0 instead of
// failing the request.
type SubmitForm struct {
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Sales       any    `json:"sales"`
	Quality     any    `json:"quality"`
	Absenteeism any    `json:"absenteeism"`
	// RecordedAt is optional; empty means now.
	RecordedAt string `json:"recorded_at,omitempty"`
}

// MetricsPatch carries the metric fields of an update. Nil fields keep the
// stored value; identity fields can never be patched.
type MetricsPatch struct {
	Sales       *float64 `json:"sales,omitempty"`
	Quality     *float64 `json:"quality,omitempty"`
	Absenteeism *float64 `json:"absenteeism,omitempty"`
}

// Engine wires the rule set to a record store and implements the record
// entry points. Totals are always computed here; caller-supplied totals are
// ignored everywhere.
type Engine struct {
	store store.Store
	rules RuleSet
}

// NewEngine creates an Engine. The rule set must already be validated.
func NewEngine(st store.Store, rules RuleSet) *Engine {
	return &Engine{store: st, rules: rules}
}

// Rules returns the engine's immutable rule set.
func (e *Engine) Rules() RuleSet { return e.rules }

// Save validates the form, normalizes the metrics, computes the total, and
// inserts the record. Validation failures never touch the store.
func (e *Engine) Save(ctx context.Context, form SubmitForm) (*model.BonusRecord, error) {
	if form.AgentID == "" {
		return nil, model.Invalidf("agent id is required")
	}

	ts := time.Now()
	if form.RecordedAt != "" {
		parsed, err := model.ParseTimestamp(form.RecordedAt)
		if err != nil {
			return nil, err
		}
		ts = parsed
	}

	rec := model.BonusRecord{
		AgentID: form.AgentID,
		Name:    form.Name,
		Email:   form.Email,
		Metrics: model.Metrics{
			Sales:       model.CoerceMetric(form.Sales),
			Quality:     model.CoerceMetric(form.Quality),
			Absenteeism: model.CoerceMetric(form.Absenteeism),
		},
		RecordedAt: model.NormalizeTimestamp(ts),
	}
	rec.TotalBono = e.rules.Total(rec.Metrics)

	if err := e.store.Insert(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "engine: save record")
	}

	zap.L().Info("record saved",
		zap.String("agent_id", rec.AgentID),
		zap.String("total_bono", rec.TotalBono.String()),
	)
	return &rec, nil
}

// Update merges the patch over the stored metrics, recomputes the total, and
// persists metric fields only. Applying the same patch twice stores the same
// total both times.
func (e *Engine) Update(ctx context.Context, key model.RecordKey, patch MetricsPatch) (*model.BonusRecord, error) {
	if key.AgentID == "" {
		return nil, model.Invalidf("agent id is required")
	}
	if key.Timestamp.IsZero() {
		return nil, model.Invalidf("record timestamp is required")
	}

	rec, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: update %s", key)
	}

	merged := rec.Metrics
	if patch.Sales != nil {
		merged.Sales = model.CoerceMetric(*patch.Sales)
	}
	if patch.Quality != nil {
		merged.Quality = model.CoerceMetric(*patch.Quality)
	}
	if patch.Absenteeism != nil {
		merged.Absenteeism = model.CoerceMetric(*patch.Absenteeism)
	}

	total := e.rules.Total(merged)
	if err := e.store.UpdateMetrics(ctx, key, merged, total); err != nil {
		return nil, eris.Wrapf(err, "engine: update %s", key)
	}

	rec.Metrics = merged
	rec.TotalBono = total
	return rec, nil
}

// Delete removes the record under key.
func (e *Engine) Delete(ctx context.Context, key model.RecordKey) error {
	if key.AgentID == "" {
		return model.Invalidf("agent id is required")
	}
	if key.Timestamp.IsZero() {
		return model.Invalidf("record timestamp is required")
	}
	if err := e.store.Delete(ctx, key); err != nil {
		return eris.Wrapf(err, "engine: delete %s", key)
	}
	return nil
}

// Get fetches one record by key.
func (e *Engine) Get(ctx context.Context, key model.RecordKey) (*model.BonusRecord, error) {
	if key.AgentID == "" {
		return nil, model.Invalidf("agent id is required")
	}
	rec, err := e.store.Get(ctx, key)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: get %s", key)
	}
	return rec, nil
}

// List returns all records in stored order.
func (e *Engine) List(ctx context.Context) ([]model.BonusRecord, error) {
	records, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list records")
	}
	return records, nil
}

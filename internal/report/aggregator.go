// Package report derives period reports and company-wide KPIs from stored
// bonus records. Nothing here is persisted.
package report

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/bonus-cli/internal/bonus"
	"github.com/sells-group/bonus-cli/internal/model"
	"github.com/sells-group/bonus-cli/internal/store"
)

// MetricSummary is one metric's period average measured against its baseline
// target.
type MetricSummary struct {
	Average  float64 `json:"average"`
	Baseline float64 `json:"baseline"`
	Passed   bool    `json:"passed"`
}

// Report is the derived individual performance view for one agent and period.
type Report struct {
	AgentID     string          `json:"agent_id"`
	Records     int             `json:"records"`
	Sales       MetricSummary   `json:"sales"`
	Quality     MetricSummary   `json:"quality"`
	Absenteeism MetricSummary   `json:"absenteeism"`
	AvgBono     decimal.Decimal `json:"avg_bono"`
	Earned      bool            `json:"earned"`
	// Awarded is the sum of the period's stored per-record totals when all
	// three metrics pass, else zero. It is never recomputed from averages.
	Awarded decimal.Decimal `json:"awarded"`
}

// KPISnapshot aggregates across all records. All fields are zero on an empty
// store.
type KPISnapshot struct {
	DistinctAgents int             `json:"distinct_agents"`
	AvgBono        decimal.Decimal `json:"avg_bono"`
	AvgQuality     float64         `json:"avg_quality"`
}

// Aggregator computes reports over a record store with a fixed rule set.
type Aggregator struct {
	store store.Store
	rules bonus.RuleSet
}

// NewAggregator creates an Aggregator.
func NewAggregator(st store.Store, rules bonus.RuleSet) *Aggregator {
	return &Aggregator{store: st, rules: rules}
}

// Individual builds the period report for one agent. Nil start or end leave
// that side of the window open; the end date is inclusive of its full
// calendar day. An empty filtered set is a not-found error.
func (a *Aggregator) Individual(ctx context.Context, agentID string, start, end *time.Time) (*Report, error) {
	if agentID == "" {
		return nil, model.Invalidf("agent id is required")
	}

	records, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "report: list records")
	}

	var cutoff time.Time
	if end != nil {
		cutoff = end.AddDate(0, 0, 1)
	}

	var period []model.BonusRecord
	for _, rec := range records {
		if rec.AgentID != agentID {
			continue
		}
		if start != nil && rec.RecordedAt.Before(*start) {
			continue
		}
		if end != nil && !rec.RecordedAt.Before(cutoff) {
			continue
		}
		period = append(period, rec)
	}

	if len(period) == 0 {
		return nil, eris.Wrapf(store.ErrNotFound, "report: no records for agent %s in period", agentID)
	}

	n := len(period)
	var sales, quality, absent float64
	total := decimal.Zero
	for _, rec := range period {
		sales += rec.Metrics.Sales
		quality += rec.Metrics.Quality
		absent += rec.Metrics.Absenteeism
		total = total.Add(rec.TotalBono)
	}

	count := decimal.NewFromInt(int64(n))
	rep := &Report{
		AgentID:     agentID,
		Records:     n,
		Sales:       a.summarize(a.rules.Sales, sales/float64(n)),
		Quality:     a.summarize(a.rules.Quality, quality/float64(n)),
		Absenteeism: a.summarize(a.rules.Absenteeism, absent/float64(n)),
		AvgBono:     total.Div(count),
		Awarded:     decimal.Zero,
	}

	rep.Earned = rep.Sales.Passed && rep.Quality.Passed && rep.Absenteeism.Passed
	if rep.Earned {
		rep.Awarded = total
	}
	return rep, nil
}

func (a *Aggregator) summarize(rule bonus.MetricRule, avg float64) MetricSummary {
	return MetricSummary{
		Average:  avg,
		Baseline: rule.Baseline(),
		Passed:   rule.Passes(avg),
	}
}

// KPIs computes the dashboard headline numbers across all records.
func (a *Aggregator) KPIs(ctx context.Context) (*KPISnapshot, error) {
	records, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "report: list records")
	}

	snap := &KPISnapshot{AvgBono: decimal.Zero}
	if len(records) == 0 {
		return snap, nil
	}

	agents := make(map[string]struct{})
	total := decimal.Zero
	var quality float64
	for _, rec := range records {
		agents[rec.AgentID] = struct{}{}
		total = total.Add(rec.TotalBono)
		quality += rec.Metrics.Quality
	}

	n := len(records)
	snap.DistinctAgents = len(agents)
	snap.AvgBono = total.Div(decimal.NewFromInt(int64(n)))
	snap.AvgQuality = quality / float64(n)
	return snap, nil
}

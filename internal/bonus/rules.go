// Package bonus implements the incentive-pay rules: tier evaluation, total
// calculation, and the engine backing the record entry points.
package bonus

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/bonus-cli/internal/model"
)

// Direction states how a metric's tier thresholds are read.
type Direction string

const (
	// Descending means higher values are better (sales, quality); a tier is
	// satisfied when value >= threshold.
	Descending Direction = "descending"
	// Ascending means lower values are better (absenteeism); a tier is
	// satisfied when value <= threshold.
	Ascending Direction = "ascending"
)

// Tier pairs a threshold with the payout awarded when the threshold is met.
type Tier struct {
	Threshold float64
	Payout    decimal.Decimal
}

// MetricRule is the ordered tier table for one metric. Tiers must be listed
// from most- to least-demanding threshold; the first satisfied tier wins.
type MetricRule struct {
	Direction Direction
	Tiers     []Tier
}

// Evaluate returns the payout of the first satisfied tier, or zero when no
// tier is satisfied. The threshold boundary is inclusive in both directions.
func (r MetricRule) Evaluate(value float64) decimal.Decimal {
	for _, t := range r.Tiers {
		if r.satisfies(value, t.Threshold) {
			return t.Payout
		}
	}
	return decimal.Zero
}

func (r MetricRule) satisfies(value, threshold float64) bool {
	if r.Direction == Ascending {
		return value <= threshold
	}
	return value >= threshold
}

// Baseline returns the least-demanding configured threshold: the maximum
// allowed value for ascending metrics, the minimum required value for
// descending ones. Validate guarantees this is the last tier.
func (r MetricRule) Baseline() float64 {
	return r.Tiers[len(r.Tiers)-1].Threshold
}

// Passes reports whether an averaged metric value meets the baseline target.
func (r MetricRule) Passes(avg float64) bool {
	if r.Direction == Ascending {
		return avg <= r.Baseline()
	}
	return avg >= r.Baseline()
}

// RuleSet holds the tier tables for the fixed set of metrics. It is an
// immutable value passed into constructors, never a package-level singleton.
type RuleSet struct {
	Sales       MetricRule
	Quality     MetricRule
	Absenteeism MetricRule
}

// Total sums the three independent per-metric evaluations. Only the fixed
// metric set participates; unrelated fields can never leak into the total.
func (rs RuleSet) Total(m model.Metrics) decimal.Decimal {
	total := rs.Sales.Evaluate(m.Sales)
	total = total.Add(rs.Quality.Evaluate(m.Quality))
	total = total.Add(rs.Absenteeism.Evaluate(m.Absenteeism))
	return total
}

// Validate checks every tier table is non-empty and strictly monotonic in its
// declared direction, so the last tier is always the least-demanding one.
func (rs RuleSet) Validate() error {
	for _, mr := range []struct {
		name string
		rule MetricRule
	}{
		{"sales", rs.Sales},
		{"quality", rs.Quality},
		{"absenteeism", rs.Absenteeism},
	} {
		if err := mr.rule.validate(); err != nil {
			return eris.Wrapf(err, "rules: metric %s", mr.name)
		}
	}
	return nil
}

func (r MetricRule) validate() error {
	switch r.Direction {
	case Ascending, Descending:
	default:
		return eris.Errorf("unknown direction %q", r.Direction)
	}
	if len(r.Tiers) == 0 {
		return eris.New("no tiers configured")
	}
	for i := 1; i < len(r.Tiers); i++ {
		prev, cur := r.Tiers[i-1].Threshold, r.Tiers[i].Threshold
		if r.Direction == Descending && cur >= prev {
			return eris.Errorf("tiers must be strictly decreasing, got %v after %v", cur, prev)
		}
		if r.Direction == Ascending && cur <= prev {
			return eris.Errorf("tiers must be strictly increasing, got %v after %v", cur, prev)
		}
	}
	return nil
}

// DefaultRules returns the standard tier tables.
func DefaultRules() RuleSet {
	return RuleSet{
		Sales: MetricRule{
			Direction: Descending,
			Tiers: []Tier{
				{Threshold: 150, Payout: decimal.NewFromInt(213525)},
				{Threshold: 130, Payout: decimal.NewFromInt(170820)},
				{Threshold: 100, Payout: decimal.NewFromInt(128115)},
			},
		},
		Quality: MetricRule{
			Direction: Descending,
			Tiers: []Tier{
				{Threshold: 98, Payout: decimal.NewFromInt(170820)},
				{Threshold: 96, Payout: decimal.NewFromInt(128115)},
				{Threshold: 90, Payout: decimal.NewFromInt(85410)},
			},
		},
		Absenteeism: MetricRule{
			Direction: Ascending,
			Tiers: []Tier{
				{Threshold: 1, Payout: decimal.NewFromInt(85410)},
				{Threshold: 2, Payout: decimal.NewFromInt(56940)},
				{Threshold: 4, Payout: decimal.NewFromFloat(27331.2)},
			},
		},
	}
}

type tierYAML struct {
	Threshold float64 `yaml:"threshold"`
	Payout    float64 `yaml:"payout"`
}

type metricRuleYAML struct {
	Direction string     `yaml:"direction"`
	Tiers     []tierYAML `yaml:"tiers"`
}

type ruleSetYAML struct {
	Sales       metricRuleYAML `yaml:"sales"`
	Quality     metricRuleYAML `yaml:"quality"`
	Absenteeism metricRuleYAML `yaml:"absenteeism"`
}

// ParseRules decodes a YAML rule set and validates it.
func ParseRules(data []byte) (RuleSet, error) {
	var raw ruleSetYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return RuleSet{}, eris.Wrap(err, "rules: parse yaml")
	}
	rs := RuleSet{
		Sales:       raw.Sales.toRule(),
		Quality:     raw.Quality.toRule(),
		Absenteeism: raw.Absenteeism.toRule(),
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rs, nil
}

// LoadRulesFile reads a YAML rule set from disk.
func LoadRulesFile(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, eris.Wrapf(err, "rules: read %s", path)
	}
	return ParseRules(data)
}

func (m metricRuleYAML) toRule() MetricRule {
	rule := MetricRule{Direction: Direction(m.Direction)}
	for _, t := range m.Tiers {
		rule.Tiers = append(rule.Tiers, Tier{
			Threshold: t.Threshold,
			Payout:    decimal.NewFromFloat(t.Payout),
		})
	}
	return rule
}

package bonus

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bonus-cli/internal/model"
)

func TestEvaluateDescendingTiers(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		value float64
		want  string
	}{
		{150, "213525"},
		{151, "213525"},
		{130, "170820"},
		{149, "170820"},
		{100, "128115"},
		{99, "0"},
		{0, "0"},
	}
	for _, tt := range tests {
		got := rules.Sales.Evaluate(tt.value)
		assert.Equal(t, tt.want, got.String(), "sales=%v", tt.value)
	}
}

func TestEvaluateAscendingTiers(t *testing.T) {
	rules := DefaultRules()

	tests := []struct {
		value float64
		want  string
	}{
		{0, "85410"},
		{1, "85410"},
		{2, "56940"},
		{4, "27331.2"},
		{5, "0"},
		{6, "0"},
	}
	for _, tt := range tests {
		got := rules.Absenteeism.Evaluate(tt.value)
		assert.Equal(t, tt.want, got.String(), "absenteeism=%v", tt.value)
	}
}

func TestEvaluateBoundaryIsInclusive(t *testing.T) {
	rules := DefaultRules()

	// Exactly at a threshold satisfies the tier in both directions.
	assert.Equal(t, "128115", rules.Quality.Evaluate(96).String())
	assert.Equal(t, "27331.2", rules.Absenteeism.Evaluate(4).String())
}

func TestTotalSumsIndependentEvaluations(t *testing.T) {
	rules := DefaultRules()

	total := rules.Total(model.Metrics{Sales: 150, Quality: 96, Absenteeism: 1})
	assert.Equal(t, "427050", total.String())

	// Changing one metric never affects another's payout.
	base := rules.Total(model.Metrics{Sales: 150, Quality: 96, Absenteeism: 1})
	moved := rules.Total(model.Metrics{Sales: 130, Quality: 96, Absenteeism: 1})
	diff := base.Sub(moved)
	assert.Equal(t, "42705", diff.String()) // 213525 - 170820
}

func TestTotalZeroWhenNoTierSatisfied(t *testing.T) {
	rules := DefaultRules()

	total := rules.Total(model.Metrics{Sales: 50, Quality: 10, Absenteeism: 20})
	assert.True(t, total.IsZero())
}

func TestBaselineIsLastTier(t *testing.T) {
	rules := DefaultRules()

	assert.Equal(t, 100.0, rules.Sales.Baseline())
	assert.Equal(t, 90.0, rules.Quality.Baseline())
	assert.Equal(t, 4.0, rules.Absenteeism.Baseline())

	assert.True(t, rules.Sales.Passes(100))
	assert.False(t, rules.Sales.Passes(99.9))
	assert.True(t, rules.Absenteeism.Passes(4))
	assert.False(t, rules.Absenteeism.Passes(4.1))
}

func TestValidateRejectsNonMonotonicTiers(t *testing.T) {
	rules := DefaultRules()
	rules.Sales.Tiers = []Tier{
		{Threshold: 100, Payout: decimal.NewFromInt(1)},
		{Threshold: 150, Payout: decimal.NewFromInt(2)},
	}

	err := rules.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales")
}

func TestValidateRejectsEmptyAndUnknownDirection(t *testing.T) {
	rules := DefaultRules()
	rules.Quality.Tiers = nil
	require.Error(t, rules.Validate())

	rules = DefaultRules()
	rules.Absenteeism.Direction = "sideways"
	require.Error(t, rules.Validate())
}

func TestDefaultRulesAreValid(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())
}

func TestParseRulesYAML(t *testing.T) {
	data := []byte(`
sales:
  direction: descending
  tiers:
    - threshold: 150
      payout: 213525
    - threshold: 130
      payout: 170820
quality:
  direction: descending
  tiers:
    - threshold: 96
      payout: 128115
absenteeism:
  direction: ascending
  tiers:
    - threshold: 1
      payout: 85410
    - threshold: 4
      payout: 27331.2
`)

	rules, err := ParseRules(data)
	require.NoError(t, err)

	assert.Equal(t, "213525", rules.Sales.Evaluate(155).String())
	assert.Equal(t, "27331.2", rules.Absenteeism.Evaluate(3).String())
	assert.Equal(t, 4.0, rules.Absenteeism.Baseline())
}

func TestParseRulesRejectsBadOrder(t *testing.T) {
	data := []byte(`
sales:
  direction: descending
  tiers:
    - threshold: 100
      payout: 1
    - threshold: 150
      payout: 2
quality:
  direction: descending
  tiers:
    - threshold: 90
      payout: 1
absenteeism:
  direction: ascending
  tiers:
    - threshold: 2
      payout: 1
`)

	_, err := ParseRules(data)
	require.Error(t, err)
}

package plans

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var onePercent = decimal.RequireFromString("0.01")

func TestLoadWithoutFile(t *testing.T) {
	c, err := Load("", onePercent)
	require.NoError(t, err)

	def := c.Default()
	assert.Equal(t, DefaultPlanName, def.Name)
	assert.True(t, def.DailyRate.Equal(onePercent))

	_, ok := c.Get("premium")
	assert.False(t, ok)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default: premium
plans:
  - name: standard
    daily_rate: "0.01"
  - name: premium
    daily_rate: "0.015"
    min_amount: "1000"
`), 0o600))

	c, err := Load(path, onePercent)
	require.NoError(t, err)

	assert.Equal(t, "premium", c.Default().Name)
	p, ok := c.Get("premium")
	require.True(t, ok)
	assert.True(t, p.DailyRate.Equal(decimal.RequireFromString("0.015")))
	assert.True(t, p.MinAmount.Equal(decimal.NewFromInt(1000)))
	assert.ElementsMatch(t, []string{"standard", "premium"}, c.Names())
}

func TestParseAddsStandardPlan(t *testing.T) {
	c, err := Parse([]byte(`plans: [{name: gold, daily_rate: "0.02"}]`), onePercent)
	require.NoError(t, err)

	assert.Equal(t, DefaultPlanName, c.Default().Name)
	assert.True(t, c.Default().DailyRate.Equal(onePercent))
	_, ok := c.Get("gold")
	assert.True(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "bad yaml", doc: "plans: ["},
		{name: "missing name", doc: `plans: [{daily_rate: "0.01"}]`},
		{name: "bad rate", doc: `plans: [{name: a, daily_rate: "x"}]`},
		{name: "negative rate", doc: `plans: [{name: a, daily_rate: "-1"}]`},
		{name: "bad minimum", doc: `plans: [{name: a, daily_rate: "0.01", min_amount: "x"}]`},
		{name: "duplicate", doc: `plans: [{name: a, daily_rate: "0.01"}, {name: a, daily_rate: "0.02"}]`},
		{name: "unknown default", doc: `{default: missing, plans: [{name: a, daily_rate: "0.01"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), onePercent)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), onePercent)
	assert.Error(t, err)
}

package types_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

func TestParseUrgency(t *testing.T) {
	tests := map[string]types.Urgency{
		"low":        types.UrgencyLow,
		" HIGH ":     types.UrgencyHigh,
		"Critical":   types.UrgencyCritical,
		"medium":     types.UrgencyMedium,
		"":           types.UrgencyMedium,
		"apocalypse": types.UrgencyMedium,
	}
	for in, want := range tests {
		assert.Equal(t, want, types.ParseUrgency(in), "input %q", in)
	}
}

func TestUrgencyIsHigh(t *testing.T) {
	assert.True(t, types.UrgencyHigh.IsHigh())
	assert.True(t, types.UrgencyCritical.IsHigh())
	assert.False(t, types.UrgencyMedium.IsHigh())
	assert.False(t, types.UrgencyLow.IsHigh())
}

func TestParseSpreadRisk(t *testing.T) {
	assert.Equal(t, types.SpreadRiskHigh, types.ParseSpreadRisk("High"))
	assert.Equal(t, types.SpreadRiskMedium, types.ParseSpreadRisk("medium"))
	assert.Equal(t, types.SpreadRiskLow, types.ParseSpreadRisk("viral"))
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, types.CategoryHealth, types.ParseCategory("health"))
	assert.Equal(t, types.CategoryEnvironmental, types.ParseCategory(" ENVIRONMENTAL "))
	assert.Equal(t, types.CategoryUnknown, types.ParseCategory("Sports"))
}

func TestAnalysisResultNormalize(t *testing.T) {
	r := types.AnalysisResult{
		TruthinessPercent: 140,
		Confidence:        -0.2,
		Category:          "political",
		Urgency:           "",
		SpreadRisk:        "HIGH",
	}
	r.Normalize()

	assert.Equal(t, 100.0, r.TruthinessPercent)
	assert.Equal(t, 0.0, r.Confidence)
	assert.Equal(t, types.CategoryPolitical, r.Category)
	assert.Equal(t, types.UrgencyMedium, r.Urgency)
	assert.Equal(t, types.SpreadRiskHigh, r.SpreadRisk)
}

func TestAnalysisResultNormalize_NaN(t *testing.T) {
	r := types.AnalysisResult{TruthinessPercent: math.NaN(), Confidence: math.NaN()}
	r.Normalize()

	assert.Equal(t, 0.0, r.TruthinessPercent)
	assert.Equal(t, 0.0, r.Confidence)
}

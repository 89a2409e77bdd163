package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

func TestDecide_Scenarios(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		name         string
		analysis     types.AnalysisResult
		patterns     types.PatternInfo
		wantAlert    bool
		wantSeverity types.Severity
		wantReason   string
	}{
		{
			name:         "low truthiness high urgency alerts high",
			analysis:     types.AnalysisResult{TruthinessPercent: 30, Confidence: 0.8, Urgency: types.UrgencyHigh},
			wantAlert:    true,
			wantSeverity: types.SeverityHigh,
		},
		{
			name:       "low confidence suppressed regardless of urgency",
			analysis:   types.AnalysisResult{TruthinessPercent: 30, Confidence: 0.4, Urgency: types.UrgencyHigh},
			patterns:   types.PatternInfo{IsRecurring: true},
			wantReason: ReasonLowConfidence,
		},
		{
			name:       "credible statement not alerted",
			analysis:   types.AnalysisResult{TruthinessPercent: 85, Confidence: 0.9},
			wantReason: ReasonCredible,
		},
		{
			name:       "truthiness exactly at threshold is credible",
			analysis:   types.AnalysisResult{TruthinessPercent: 50, Confidence: 0.9},
			wantReason: ReasonCredible,
		},
		{
			name:         "confidence exactly at threshold passes",
			analysis:     types.AnalysisResult{TruthinessPercent: 49, Confidence: 0.6, Urgency: types.UrgencyMedium},
			wantAlert:    true,
			wantSeverity: types.SeverityMedium,
		},
		{
			name:         "recurring medium boosted to high",
			analysis:     types.AnalysisResult{TruthinessPercent: 20, Confidence: 0.9, Urgency: types.UrgencyMedium},
			patterns:     types.PatternInfo{IsRecurring: true},
			wantAlert:    true,
			wantSeverity: types.SeverityHigh,
		},
		{
			name:         "recurring low boosted to medium",
			analysis:     types.AnalysisResult{TruthinessPercent: 20, Confidence: 0.9, Urgency: types.UrgencyLow},
			patterns:     types.PatternInfo{IsRecurring: true},
			wantAlert:    true,
			wantSeverity: types.SeverityMedium,
		},
		{
			name:         "recurring high stays high",
			analysis:     types.AnalysisResult{TruthinessPercent: 20, Confidence: 0.9, Urgency: types.UrgencyHigh},
			patterns:     types.PatternInfo{IsRecurring: true},
			wantAlert:    true,
			wantSeverity: types.SeverityHigh,
		},
		{
			name:         "critical maps to critical",
			analysis:     types.AnalysisResult{TruthinessPercent: 5, Confidence: 0.95, Urgency: types.UrgencyCritical},
			wantAlert:    true,
			wantSeverity: types.SeverityCritical,
		},
		{
			name:         "unknown urgency treated as medium",
			analysis:     types.AnalysisResult{TruthinessPercent: 20, Confidence: 0.9, Urgency: "apocalyptic"},
			wantAlert:    true,
			wantSeverity: types.SeverityMedium,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.analysis, tt.patterns, th)
			assert.Equal(t, tt.wantAlert, got.Alert)
			assert.Equal(t, tt.wantSeverity, got.Severity)
			assert.Equal(t, tt.wantReason, got.Reason)
			if !tt.wantAlert {
				assert.Empty(t, got.Description)
			}
		})
	}
}

func TestDecide_DescriptionPrecedence(t *testing.T) {
	th := DefaultThresholds()
	base := types.AnalysisResult{TruthinessPercent: 10, Confidence: 0.9}

	withUrgency := func(u types.Urgency, s types.SpreadRisk) types.AnalysisResult {
		a := base
		a.Urgency = u
		a.SpreadRisk = s
		return a
	}

	got := Decide(withUrgency(types.UrgencyHigh, types.SpreadRiskHigh), types.PatternInfo{IsRecurring: true}, th)
	assert.Equal(t, DescriptionHighUrgency, got.Description)
	assert.Equal(t, AdviceHighUrgency, got.Advice)
	assert.Equal(t, TitleCommunityAlert, got.Title)
	assert.True(t, got.MentionAuthor)

	got = Decide(withUrgency(types.UrgencyMedium, types.SpreadRiskHigh), types.PatternInfo{IsRecurring: true}, th)
	assert.Equal(t, DescriptionRecurring, got.Description)
	assert.Equal(t, AdviceSpreadRisk, got.Advice)
	assert.Equal(t, TitlePotential, got.Title)
	assert.False(t, got.MentionAuthor)

	got = Decide(withUrgency(types.UrgencyLow, types.SpreadRiskHigh), types.PatternInfo{}, th)
	assert.Equal(t, DescriptionSpreadRisk, got.Description)

	got = Decide(withUrgency(types.UrgencyLow, types.SpreadRiskMedium), types.PatternInfo{}, th)
	assert.Equal(t, DescriptionGeneric, got.Description)
	assert.Equal(t, AdviceGeneric, got.Advice)
}

func TestDecide_Deterministic(t *testing.T) {
	a := types.AnalysisResult{TruthinessPercent: 22, Confidence: 0.77, Urgency: types.UrgencyMedium, SpreadRisk: types.SpreadRiskHigh}
	p := types.PatternInfo{IsRecurring: true, Frequency: 4, Examples: []string{"x"}}
	th := Thresholds{Truthiness: 40, Confidence: 0.5}

	first := Decide(a, p, th)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Decide(a, p, th))
	}
}

func TestDecide_CustomThresholds(t *testing.T) {
	a := types.AnalysisResult{TruthinessPercent: 60, Confidence: 0.5}
	assert.False(t, Decide(a, types.PatternInfo{}, DefaultThresholds()).Alert)
	assert.True(t, Decide(a, types.PatternInfo{}, Thresholds{Truthiness: 70, Confidence: 0.4}).Alert)
}

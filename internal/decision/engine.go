// Package decision turns a normalized analysis and recurrence info into an
// alert verdict. Everything here is a pure function of its inputs.
package decision

import (
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// Default thresholds.
const (
	DefaultTruthinessThreshold = 50.0
	DefaultConfidenceThreshold = 0.6
)

// Suppression reasons reported in Decision.Reason.
const (
	ReasonLowConfidence = "low_confidence"
	ReasonCredible      = "credible"
)

// Alert titles.
const (
	TitleCommunityAlert = "Community Misinformation Alert"
	TitlePotential      = "Potential Misinformation Detected"
)

// Alert descriptions, in precedence order. Exactly one is chosen.
const (
	DescriptionHighUrgency = "🚨 **HIGH PRIORITY**: This appears to be potentially harmful misinformation that could spread rapidly in your community."
	DescriptionRecurring   = "🔄 **RECURRING PATTERN**: Similar misinformation has been detected multiple times in this community."
	DescriptionSpreadRisk  = "📢 **SPREAD RISK**: This type of misinformation tends to spread quickly and may influence others."
	DescriptionGeneric     = "This message may contain misinformation based on AI analysis and community context."
)

// Community advice lines, in precedence order.
const (
	AdviceHighUrgency = "⚠️ **Moderators**: Consider reviewing this content. **Members**: Please verify before sharing or discussing further."
	AdviceSpreadRisk  = "📢 **Community**: Please fact-check this information before sharing with others."
	AdviceGeneric     = "💭 **Suggestion**: Verify this information with reliable sources before accepting or sharing."
)

// Thresholds is the alert policy configuration.
type Thresholds struct {
	// Truthiness: results at or above this percentage are credible.
	Truthiness float64 `json:"truthiness"`
	// Confidence: results below this are suppressed.
	Confidence float64 `json:"confidence"`
}

// DefaultThresholds returns the default policy.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Truthiness: DefaultTruthinessThreshold,
		Confidence: DefaultConfidenceThreshold,
	}
}

// Suppressed applies the first two policy rules: low confidence, then
// sufficient credibility. It reports whether the analysis can never alert
// and why.
func Suppressed(a types.AnalysisResult, th Thresholds) (bool, string) {
	if a.Confidence < th.Confidence {
		return true, ReasonLowConfidence
	}
	if a.TruthinessPercent >= th.Truthiness {
		return true, ReasonCredible
	}
	return false, ""
}

// Decide evaluates the alert policy.
func Decide(a types.AnalysisResult, p types.PatternInfo, th Thresholds) types.Decision {
	if suppressed, reason := Suppressed(a, th); suppressed {
		return types.Decision{Alert: false, Severity: types.SeverityNone, Reason: reason}
	}

	urgency := types.ParseUrgency(string(a.Urgency))
	spread := types.ParseSpreadRisk(string(a.SpreadRisk))
	return types.Decision{
		Alert:         true,
		Severity:      Severity(urgency, p.IsRecurring),
		Title:         Title(urgency),
		Description:   Description(urgency, spread, p.IsRecurring),
		Advice:        Advice(urgency, spread),
		MentionAuthor: urgency.IsHigh(),
	}
}

// Severity maps urgency to severity. High and critical map directly; low
// and medium are raised one level for recurring claims, never above high.
func Severity(u types.Urgency, recurring bool) types.Severity {
	switch u {
	case types.UrgencyCritical:
		return types.SeverityCritical
	case types.UrgencyHigh:
		return types.SeverityHigh
	case types.UrgencyLow:
		if recurring {
			return types.SeverityMedium
		}
		return types.SeverityLow
	default:
		if recurring {
			return types.SeverityHigh
		}
		return types.SeverityMedium
	}
}

// Title returns the alert title.
func Title(u types.Urgency) string {
	if u.IsHigh() {
		return TitleCommunityAlert
	}
	return TitlePotential
}

// Description picks one description by precedence: high urgency, recurring
// pattern, high spread risk, generic.
func Description(u types.Urgency, spread types.SpreadRisk, recurring bool) string {
	switch {
	case u.IsHigh():
		return DescriptionHighUrgency
	case recurring:
		return DescriptionRecurring
	case spread == types.SpreadRiskHigh:
		return DescriptionSpreadRisk
	default:
		return DescriptionGeneric
	}
}

// Advice picks the community advice line: high urgency, high spread risk, generic.
func Advice(u types.Urgency, spread types.SpreadRisk) string {
	switch {
	case u.IsHigh():
		return AdviceHighUrgency
	case spread == types.SpreadRiskHigh:
		return AdviceSpreadRisk
	default:
		return AdviceGeneric
	}
}

// Package types defines the core data structures for the fact-check detector:
// identities and messages entering the pipeline, normalized provider analysis,
// recurring-pattern bookkeeping, logged events and the final decision.
package types

import (
	"math"
	"strings"
)

// Urgency is the provider's estimate of how quickly a claim needs a response.
type Urgency string

// SpreadRisk is the provider's estimate of how likely a claim is to go viral.
type SpreadRisk string

// Category is the subject area of a claim.
type Category string

// Urgency constants
const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// SpreadRisk constants
const (
	SpreadRiskLow    SpreadRisk = "low"
	SpreadRiskMedium SpreadRisk = "medium"
	SpreadRiskHigh   SpreadRisk = "high"
)

// Category constants
const (
	CategoryScientific    Category = "Scientific"
	CategoryPolitical     Category = "Political"
	CategoryHealth        Category = "Health"
	CategoryHistorical    Category = "Historical"
	CategoryTechnology    Category = "Technology"
	CategorySocial        Category = "Social"
	CategoryEconomic      Category = "Economic"
	CategoryEnvironmental Category = "Environmental"
	CategoryUnknown       Category = "Unknown"
)

// ValidCategories lists every category a provider may return.
var ValidCategories = []Category{
	CategoryScientific,
	CategoryPolitical,
	CategoryHealth,
	CategoryHistorical,
	CategoryTechnology,
	CategorySocial,
	CategoryEconomic,
	CategoryEnvironmental,
	CategoryUnknown,
}

// Defaults applied when a provider omits a field. A missing truthiness
// counts as credible so it can never raise an alert on its own.
const (
	DefaultTruthinessPercent = 100.0
	DefaultConfidence        = 0.0
)

// ParseUrgency normalizes a provider-supplied urgency. Unknown values map to medium.
func ParseUrgency(s string) Urgency {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyLow:
		return UrgencyLow
	case UrgencyHigh:
		return UrgencyHigh
	case UrgencyCritical:
		return UrgencyCritical
	default:
		return UrgencyMedium
	}
}

// ParseSpreadRisk normalizes a provider-supplied spread risk. Unknown values map to low.
func ParseSpreadRisk(s string) SpreadRisk {
	switch SpreadRisk(strings.ToLower(strings.TrimSpace(s))) {
	case SpreadRiskMedium:
		return SpreadRiskMedium
	case SpreadRiskHigh:
		return SpreadRiskHigh
	default:
		return SpreadRiskLow
	}
}

// ParseCategory matches a provider-supplied category case-insensitively.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, c := range ValidCategories {
		if strings.EqualFold(string(c), s) {
			return c
		}
	}
	return CategoryUnknown
}

// IsHigh reports whether the urgency is high or critical.
func (u Urgency) IsHigh() bool {
	return u == UrgencyHigh || u == UrgencyCritical
}

// AnalysisResult is the normalized output of any analysis provider.
// TruthinessPercent and Confidence are always populated before the result
// leaves the orchestrator.
type AnalysisResult struct {
	// TruthinessPercent is the likelihood the statement is true, 0-100.
	TruthinessPercent float64 `json:"truthiness_percent"`

	// Confidence is the provider's confidence in its own rating, 0-1.
	Confidence float64 `json:"confidence"`

	Reasoning  string     `json:"reasoning"`
	Category   Category   `json:"category"`
	Urgency    Urgency    `json:"urgency"`
	SpreadRisk SpreadRisk `json:"spread_risk"`

	// ProviderUsed is the identifier of the provider that produced this result.
	ProviderUsed string `json:"provider_used"`

	// Degraded is true when the result came from the single-field rating
	// path instead of the full community-context analysis.
	Degraded bool `json:"degraded,omitempty"`
}

// Normalize clamps numeric fields into range and fills enum defaults.
func (a *AnalysisResult) Normalize() {
	a.TruthinessPercent = clamp(a.TruthinessPercent, 0, 100)
	a.Confidence = clamp(a.Confidence, 0, 1)
	a.Urgency = ParseUrgency(string(a.Urgency))
	a.SpreadRisk = ParseSpreadRisk(string(a.SpreadRisk))
	a.Category = ParseCategory(string(a.Category))
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package types

// Severity grades an alert.
type Severity string

// Severity constants, lowest first.
const (
	SeverityNone     Severity = ""
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Decision is the verdict for one analysed message.
type Decision struct {
	Alert         bool     `json:"alert"`
	Severity      Severity `json:"severity,omitempty"`
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	Advice        string   `json:"advice,omitempty"`
	MentionAuthor bool     `json:"mention_author,omitempty"`

	// Reason explains a suppressed decision (low_confidence, credible).
	Reason string `json:"reason,omitempty"`
}

// OutcomeStatus describes how far a message got through the pipeline.
type OutcomeStatus string

// Outcome status constants
const (
	// OutcomeSkipped means a pre-filter rejected the message.
	OutcomeSkipped OutcomeStatus = "skipped"

	// OutcomeRateLimited means the automatic-check limiter rejected the author.
	OutcomeRateLimited OutcomeStatus = "rate_limited"

	// OutcomeEvaluated means a decision was produced.
	OutcomeEvaluated OutcomeStatus = "evaluated"

	// OutcomeCouldNotEvaluate means every provider failed on both the full
	// and the degraded path.
	OutcomeCouldNotEvaluate OutcomeStatus = "could_not_evaluate"
)

// Outcome is what the pipeline hands back to the caller for one message.
type Outcome struct {
	MessageID string          `json:"message_id"`
	Status    OutcomeStatus   `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	Analysis  *AnalysisResult `json:"analysis,omitempty"`
	Patterns  *PatternInfo    `json:"patterns,omitempty"`
	Decision  *Decision       `json:"decision,omitempty"`
	Context   ContextWindow   `json:"context,omitempty"`
}

// Alerted reports whether the outcome carries an alert.
func (o *Outcome) Alerted() bool {
	return o != nil && o.Decision != nil && o.Decision.Alert
}

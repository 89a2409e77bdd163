package types

import "time"

// Event is an immutable record of one alert decision.
type Event struct {
	ID              string      `json:"id"`
	Timestamp       time.Time   `json:"timestamp"`
	IdentityHash    string      `json:"identity_hash"`
	TruthinessScore float64     `json:"truthiness_score"`
	Urgency         Urgency     `json:"urgency"`
	Severity        Severity    `json:"severity,omitempty"`
	KeyPhrases      []KeyPhrase `json:"key_phrases,omitempty"`
}

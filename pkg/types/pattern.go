package types

import "time"

// MaxPatternExamples is the number of source snippets retained per phrase.
const MaxPatternExamples = 5

// KeyPhrase is a lowercased bigram or trigram extracted from message text.
type KeyPhrase string

// PatternEntry tracks how often a key phrase has been seen in a community.
// Examples keep the earliest snippets; later ones are dropped once full.
type PatternEntry struct {
	Count     int       `json:"count"`
	Examples  []string  `json:"examples"`
	FirstSeen time.Time `json:"first_seen,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
}

// PatternInfo is the recurrence summary for one message.
type PatternInfo struct {
	IsRecurring bool        `json:"is_recurring"`
	Frequency   int         `json:"frequency"`
	Examples    []string    `json:"examples,omitempty"`
	KeyPhrases  []KeyPhrase `json:"key_phrases,omitempty"`
}

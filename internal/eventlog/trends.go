package eventlog

import (
	"fmt"
	"sort"

	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// Direction labels for Trends.WeeklyDirection.
const (
	DirectionIncreasing = "increasing"
	DirectionDecreasing = "decreasing"
)

// ClaimCount is a recurring phrase and how often it was seen.
type ClaimCount struct {
	Phrase types.KeyPhrase `json:"phrase"`
	Count  int             `json:"count"`
}

// WeekCount is the number of alerts in one ISO week.
type WeekCount struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

// Trends summarizes a community's recent alerts.
type Trends struct {
	TotalAlerts       int          `json:"total_alerts"`
	AverageTruthiness float64      `json:"average_truthiness"`
	HighUrgency       int          `json:"high_urgency"`
	TopClaims         []ClaimCount `json:"top_claims,omitempty"`
	Weekly            []WeekCount  `json:"weekly,omitempty"`

	// WeeklyDirection compares the latest week to the earliest one. It is
	// empty when the events fall within a single week.
	WeeklyDirection string `json:"weekly_direction,omitempty"`
}

// MaxTopClaims caps Trends.TopClaims.
const MaxTopClaims = 5

// Summarize builds Trends from events (typically QueryRecent over 30 days)
// and the community's top claims, already ranked.
func Summarize(events []types.Event, claims []ClaimCount) Trends {
	t := Trends{TotalAlerts: len(events)}
	if len(events) == 0 {
		return t
	}

	var sum float64
	weeks := make(map[string]int)
	for _, ev := range events {
		sum += ev.TruthinessScore
		if ev.Urgency.IsHigh() {
			t.HighUrgency++
		}
		year, week := ev.Timestamp.ISOWeek()
		weeks[fmt.Sprintf("%04d-W%02d", year, week)]++
	}
	t.AverageTruthiness = sum / float64(len(events))

	for w, c := range weeks {
		t.Weekly = append(t.Weekly, WeekCount{Week: w, Count: c})
	}
	sort.Slice(t.Weekly, func(i, j int) bool { return t.Weekly[i].Week < t.Weekly[j].Week })
	if len(t.Weekly) > 1 {
		t.WeeklyDirection = DirectionDecreasing
		if t.Weekly[len(t.Weekly)-1].Count > t.Weekly[0].Count {
			t.WeeklyDirection = DirectionIncreasing
		}
	}

	if len(claims) > MaxTopClaims {
		claims = claims[:MaxTopClaims]
	}
	t.TopClaims = append([]ClaimCount(nil), claims...)
	return t
}

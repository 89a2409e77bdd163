package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mangomango3x/Discord-fact-check/internal/eventlog"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// TrendWindow is the period summarized by Trends.
const TrendWindow = 30 * 24 * time.Hour

// Trends summarizes a community's alerts over TrendWindow together with its
// most active claims.
func (d *Detector) Trends(ctx context.Context, communityID string) (eventlog.Trends, error) {
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return eventlog.Trends{}, fmt.Errorf("%w: community id is required", types.ErrInvalidIdentity)
	}

	events, err := d.deps.Events.QueryRecent(ctx, communityID, TrendWindow)
	if err != nil {
		return eventlog.Trends{}, fmt.Errorf("query events: %w", err)
	}
	top, err := d.deps.Patterns.Top(ctx, communityID, eventlog.MaxTopClaims)
	if err != nil {
		return eventlog.Trends{}, fmt.Errorf("top claims: %w", err)
	}

	claims := make([]eventlog.ClaimCount, len(top))
	for i, st := range top {
		claims[i] = eventlog.ClaimCount{Phrase: st.Phrase, Count: st.Count}
	}
	return eventlog.Summarize(events, claims), nil
}

// RecentEvents returns a community's alert events no older than maxAge,
// oldest first. maxAge <= 0 returns everything retained.
func (d *Detector) RecentEvents(ctx context.Context, communityID string, maxAge time.Duration) ([]types.Event, error) {
	communityID = strings.TrimSpace(communityID)
	if communityID == "" {
		return nil, fmt.Errorf("%w: community id is required", types.ErrInvalidIdentity)
	}
	return d.deps.Events.QueryRecent(ctx, communityID, maxAge)
}

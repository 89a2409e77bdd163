package handlers

import (
	"context"
	"time"

	"github.com/mangomango3x/Discord-fact-check/internal/analysis"
	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/eventlog"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// Pipeline is the detector surface used by the API. *detector.Detector
// implements it.
type Pipeline interface {
	Process(ctx context.Context, msg *types.Message) (*types.Outcome, error)
	RateStatement(ctx context.Context, identity types.Identity, statement string) (*types.AnalysisResult, error)
	Trends(ctx context.Context, communityID string) (eventlog.Trends, error)
	RecentEvents(ctx context.Context, communityID string, maxAge time.Duration) ([]types.Event, error)
}

// HistoryRecorder stores ingested messages as conversation history.
// *conversation.Buffer implements it.
type HistoryRecorder interface {
	Add(msg types.Message)
}

// ProviderStatusGetter reports the configured analysis providers.
// *analysis.Orchestrator implements it.
type ProviderStatusGetter interface {
	Status() []analysis.ProviderStatus
}

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	CommunityID string    `json:"community_id"`
	UserID      string    `json:"user_id"`
	AuthorTag   string    `json:"author_tag"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`

	// HistoryOnly records the message as context without evaluating it,
	// e.g. for bot messages.
	HistoryOnly bool `json:"history_only,omitempty"`
}

// Message converts the request to the pipeline type.
func (r MessageRequest) Message() types.Message {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return types.Message{
		ID:        r.ID,
		ChannelID: r.ChannelID,
		Author:    types.Identity{UserID: r.UserID, CommunityID: r.CommunityID},
		AuthorTag: r.AuthorTag,
		Content:   r.Content,
		Timestamp: ts,
	}
}

// CheckRequest is the body of POST /api/check.
type CheckRequest struct {
	UserID      string `json:"user_id"`
	CommunityID string `json:"community_id"`
	Statement   string `json:"statement"`
}

// SettingsResponse is returned by GET and PUT /api/settings.
type SettingsResponse struct {
	Settings  config.Settings           `json:"settings"`
	Providers []analysis.ProviderStatus `json:"providers"`
}

// EventsResponse is returned by GET /api/communities/{id}/events.
type EventsResponse struct {
	CommunityID string        `json:"community_id"`
	Events      []types.Event `json:"events"`
	Total       int           `json:"total"`
}

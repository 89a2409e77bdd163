package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/analysis"
	"github.com/mangomango3x/Discord-fact-check/internal/detector"
	"github.com/mangomango3x/Discord-fact-check/internal/logging"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// APIHandlers serves the ingestion and community endpoints.
type APIHandlers struct {
	pipeline Pipeline
	history  HistoryRecorder
	logger   *zap.Logger
}

// NewAPIHandlers creates the handlers. history may be nil.
func NewAPIHandlers(pipeline Pipeline, history HistoryRecorder, logger *zap.Logger) *APIHandlers {
	return &APIHandlers{
		pipeline: pipeline,
		history:  history,
		logger:   logging.OrNop(logger),
	}
}

// PostMessage handles POST /api/messages - ingests a chat message and runs
// it through the pipeline.
func (h *APIHandlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	msg := req.Message()

	// Evaluate before recording so the message is not its own context.
	var out *types.Outcome
	if !req.HistoryOnly {
		var err error
		out, err = h.pipeline.Process(r.Context(), &msg)
		if err != nil {
			h.respondPipelineError(w, err)
			return
		}
	}
	if h.history != nil && msg.ChannelID != "" {
		h.history.Add(msg)
	}

	if out == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

// PostCheck handles POST /api/check - the on-demand truthiness rating.
func (h *APIHandlers) PostCheck(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	identity := types.Identity{UserID: req.UserID, CommunityID: req.CommunityID}
	result, err := h.pipeline.RateStatement(r.Context(), identity, req.Statement)
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetTrends handles GET /api/communities/{id}/trends.
func (h *APIHandlers) GetTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := h.pipeline.Trends(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, trends)
}

// GetEvents handles GET /api/communities/{id}/events?max_age=24h.
func (h *APIHandlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	var maxAge time.Duration
	if raw := r.URL.Query().Get("max_age"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			respondError(w, http.StatusBadRequest, "invalid max_age", err)
			return
		}
		maxAge = d
	}

	id := r.PathValue("id")
	events, err := h.pipeline.RecentEvents(r.Context(), id, maxAge)
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	if events == nil {
		events = []types.Event{}
	}
	respondJSON(w, http.StatusOK, EventsResponse{CommunityID: id, Events: events, Total: len(events)})
}

func (h *APIHandlers) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidIdentity), errors.Is(err, types.ErrInvalidMessage):
		respondError(w, http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, detector.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "rate limited", nil)
	case errors.Is(err, analysis.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "analysis unavailable", nil)
	default:
		h.logger.Error("api: request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// Headers are already sent; nothing useful to do on failure.
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}

	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}

	respondJSON(w, statusCode, errResp)
}

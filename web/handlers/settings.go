package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/logging"
)

// SettingsHandlers serves the operator settings.
type SettingsHandlers struct {
	runtime   *config.Runtime
	providers ProviderStatusGetter
	logger    *zap.Logger
}

// NewSettingsHandlers creates the handlers. providers may be nil.
func NewSettingsHandlers(rt *config.Runtime, providers ProviderStatusGetter, logger *zap.Logger) *SettingsHandlers {
	return &SettingsHandlers{runtime: rt, providers: providers, logger: logging.OrNop(logger)}
}

// GetSettings handles GET /api/settings.
func (h *SettingsHandlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.response())
}

// UpdateSettings handles PUT /api/settings. The body is a partial Settings
// object; omitted fields keep their current values.
func (h *SettingsHandlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	next, err := h.runtime.Update(func(s *config.Settings) error {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.DisallowUnknownFields()
		if err := dec.Decode(s); err != nil {
			return err
		}
		return h.checkProviders(*s)
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid settings", err)
		return
	}

	h.logger.Info("settings updated",
		zap.Bool("enabled", next.Enabled),
		zap.Float64("truthiness_threshold", next.TruthinessThreshold),
		zap.Float64("confidence_threshold", next.ConfidenceThreshold))
	respondJSON(w, http.StatusOK, h.response())
}

// checkProviders rejects provider names that are not configured.
func (h *SettingsHandlers) checkProviders(s config.Settings) error {
	if h.providers == nil {
		return nil
	}
	known := make(map[string]bool)
	for _, st := range h.providers.Status() {
		known[st.Name] = true
	}
	for _, name := range s.ProviderOrder {
		if !known[name] {
			return fmt.Errorf("unknown provider %q in provider_order", name)
		}
	}
	for name := range s.ProviderModels {
		if !known[name] {
			return fmt.Errorf("unknown provider %q in provider_models", name)
		}
	}
	return nil
}

func (h *SettingsHandlers) response() SettingsResponse {
	resp := SettingsResponse{Settings: h.runtime.Get()}
	if h.providers != nil {
		resp.Providers = h.providers.Status()
	}
	return resp
}

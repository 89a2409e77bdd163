package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/analysis"
	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/web/handlers"
)

type staticProviders []analysis.ProviderStatus

func (s staticProviders) Status() []analysis.ProviderStatus { return s }

func newSettingsMux(rt *config.Runtime) *http.ServeMux {
	h := handlers.NewSettingsHandlers(rt, staticProviders{
		{Name: "pawan", Model: "gpt-3.5-turbo"},
		{Name: "openai", Model: "gpt-4o"},
	}, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/settings", h.UpdateSettings)
	return mux
}

func TestGetSettings(t *testing.T) {
	mux := newSettingsMux(config.NewRuntime(config.DefaultSettings()))

	w := do(mux, "GET", "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.SettingsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Settings.Enabled)
	assert.Equal(t, 50.0, resp.Settings.TruthinessThreshold)
	assert.Equal(t, 5*time.Minute, resp.Settings.AutoCheckWindow.Duration())
	assert.Len(t, resp.Providers, 2)
}

func TestUpdateSettings_Partial(t *testing.T) {
	rt := config.NewRuntime(config.DefaultSettings())
	mux := newSettingsMux(rt)

	w := do(mux, "PUT", "/api/settings",
		`{"enabled":false,"confidence_threshold":0.7,"auto_check_window":"10m","provider_order":["openai"],"provider_models":{"openai":"gpt-4o-mini"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s := rt.Get()
	assert.False(t, s.Enabled)
	assert.Equal(t, 0.7, s.ConfidenceThreshold)
	assert.Equal(t, 10*time.Minute, s.AutoCheckWindow.Duration())
	assert.Equal(t, 50.0, s.TruthinessThreshold, "omitted fields are unchanged")
	assert.Equal(t, []string{"openai"}, s.ProviderOrder)
	assert.Equal(t, "gpt-4o-mini", s.ProviderModels["openai"])
}

func TestUpdateSettings_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"enabled":`},
		{"unknown field", `{"volume":11}`},
		{"out of range", `{"truthiness_threshold":120}`},
		{"bad duration", `{"command_window":"later"}`},
		{"unknown provider", `{"provider_order":["bard"]}`},
		{"unknown model target", `{"provider_models":{"bard":"x"}}`},
		{"empty model", `{"provider_models":{"openai":""}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := config.NewRuntime(config.DefaultSettings())
			w := do(newSettingsMux(rt), "PUT", "/api/settings", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, config.DefaultSettings(), rt.Get(), "settings unchanged")
		})
	}
}

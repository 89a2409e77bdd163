// Package server wires the HTTP routes and manages the listener lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/config"
	"github.com/mangomango3x/Discord-fact-check/internal/logging"
	"github.com/mangomango3x/Discord-fact-check/web/handlers"
)

// Version is reported by the health endpoint.
var Version = "dev"

// Deps are the components behind the routes. Hub and Providers may be nil.
type Deps struct {
	Config    *config.Config
	Runtime   *config.Runtime
	Pipeline  handlers.Pipeline
	History   handlers.HistoryRecorder
	Providers handlers.ProviderStatusGetter
	Hub       *handlers.AlertHub
	Limiter   *handlers.RateLimiter
	Logger    *zap.Logger
}

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// NewHandler builds the full route table.
func NewHandler(d Deps) http.Handler {
	logger := logging.OrNop(d.Logger)
	mux := http.NewServeMux()

	apiHandlers := handlers.NewAPIHandlers(d.Pipeline, d.History, logger)
	settingsHandlers := handlers.NewSettingsHandlers(d.Runtime, d.Providers, logger)

	// API routes (require auth when a token is configured)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /api/messages", apiHandlers.PostMessage)
	apiMux.HandleFunc("POST /api/check", apiHandlers.PostCheck)
	apiMux.HandleFunc("GET /api/settings", settingsHandlers.GetSettings)
	apiMux.HandleFunc("PUT /api/settings", settingsHandlers.UpdateSettings)
	apiMux.HandleFunc("GET /api/communities/{id}/trends", apiHandlers.GetTrends)
	apiMux.HandleFunc("GET /api/communities/{id}/events", apiHandlers.GetEvents)

	mux.Handle("/api/", handlers.RequireAuth(apiMux, d.Config.Server.APIToken))

	// Health endpoint, no auth required.
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"healthy","version":%q}`, Version)
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	if d.Hub != nil {
		mux.Handle("GET /ws/alerts", handlers.RequireAuth(d.Hub, d.Config.Server.APIToken))
	}

	limiter := d.Limiter
	if limiter == nil {
		limiter = handlers.NewRateLimiter(d.Config.Server.RequestsPerSecond, d.Config.Server.Burst)
	}

	// Wrap entire server with rate limiting, then request IDs and security headers
	handler := handlers.RateLimitMiddleware(mux, limiter)
	handler = handlers.RequestID(handler)
	return securityHeadersMiddleware(handler)
}

// Start listens on the configured address and serves until ctx is done.
// It returns the actual address being listened on (useful with port 0).
func Start(ctx context.Context, d Deps) (string, error) {
	logger := logging.OrNop(d.Logger)

	addr := net.JoinHostPort(d.Config.Server.Host, fmt.Sprint(d.Config.Server.Port))
	server := &http.Server{
		Addr:         addr,
		Handler:      NewHandler(d),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
		if d.Hub != nil {
			d.Hub.Stop()
		}
	}()

	logger.Info("server listening", zap.String("addr", actualAddr))
	return actualAddr, nil
}

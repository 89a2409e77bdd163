// Package analysis runs a statement through the configured providers in
// priority order and returns the first answer that parses.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/llm"
	"github.com/mangomango3x/Discord-fact-check/internal/metrics"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// ErrUnavailable is returned when every provider failed for a request.
var ErrUnavailable = errors.New("analysis unavailable: all providers failed")

// DefaultCallTimeout bounds a single provider attempt.
const DefaultCallTimeout = 15 * time.Second

// ProviderStatus describes one provider for operator reporting.
type ProviderStatus struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Breaker string `json:"breaker,omitempty"`
}

// Orchestrator tries providers in order until one returns a parseable
// analysis. The order and each provider's model can change at runtime; the
// change applies to the next call. Calls for different statements may run
// concurrently.
type Orchestrator struct {
	mu        sync.RWMutex
	providers []llm.Provider

	timeout time.Duration
	logger  *zap.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCallTimeout sets the per-provider timeout.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator over providers, highest priority first.
func NewOrchestrator(providers []llm.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers: append([]llm.Provider(nil), providers...),
		timeout:   DefaultCallTimeout,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze asks for the full community-aware analysis of statement.
func (o *Orchestrator) Analyze(ctx context.Context, statement string, window types.ContextWindow, communityID string) (*types.AnalysisResult, error) {
	req := llm.NewAnalysisRequest(llm.CommunityAnalysisPrompt(statement, window, communityID))
	return o.run(ctx, "analyze", req)
}

// Rate asks only for a truthiness rating. It is the degraded path used when
// Analyze is unavailable, and backs the on-demand check command.
func (o *Orchestrator) Rate(ctx context.Context, statement string) (*types.AnalysisResult, error) {
	result, err := o.run(ctx, "rate", llm.NewAnalysisRequest(llm.RatingPrompt(statement)))
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, op string, req llm.Request) (*types.AnalysisResult, error) {
	providers := o.snapshot()

	// A caller that gives up does not cancel in-flight attempts; their
	// result is simply dropped.
	base := context.WithoutCancel(ctx)

	var failures []string
	for _, p := range providers {
		result, err := o.attempt(base, p, req)
		if err == nil {
			result.ProviderUsed = p.Name()
			return result, nil
		}
		failures = append(failures, err.Error())
		o.logger.Warn("provider failed, falling back",
			zap.String("op", op),
			zap.String("provider", p.Name()),
			zap.String("model", p.Model()),
			zap.Error(err))
	}

	metrics.ProviderExhausted.Inc()
	o.logger.Error("all providers failed",
		zap.String("op", op),
		zap.Int("providers", len(providers)))
	if len(failures) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrUnavailable)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(failures, "; "))
}

// attempt makes exactly one call to p.
func (o *Orchestrator) attempt(ctx context.Context, p llm.Provider, req llm.Request) (*types.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	raw, err := p.Complete(ctx, req)
	metrics.ProviderLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("%w: %w", llm.ErrProviderTimeout, ctx.Err())
	}
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(p.Name(), resultLabel(err)).Inc()
		return nil, err
	}

	result, err := llm.ParseAnalysis(raw)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(p.Name(), "malformed").Inc()
		return nil, fmt.Errorf("%s: %w", p.Name(), err)
	}
	metrics.ProviderRequests.WithLabelValues(p.Name(), "success").Inc()
	return result, nil
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, llm.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, llm.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed"
	default:
		return "transport"
	}
}

func (o *Orchestrator) snapshot() []llm.Provider {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]llm.Provider(nil), o.providers...)
}

// Providers returns the providers in current priority order.
func (o *Orchestrator) Providers() []llm.Provider {
	return o.snapshot()
}

// Order returns provider names in current priority order.
func (o *Orchestrator) Order() []string {
	providers := o.snapshot()
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name()
	}
	return names
}

// SetOrder moves the named providers to the front in the given order.
// Providers not named keep their relative order behind them. Unknown or
// repeated names are rejected and leave the order unchanged.
func (o *Orchestrator) SetOrder(names []string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	byName := make(map[string]llm.Provider, len(o.providers))
	for _, p := range o.providers {
		byName[p.Name()] = p
	}

	seen := make(map[string]bool, len(names))
	ordered := make([]llm.Provider, 0, len(o.providers))
	for _, n := range names {
		p, ok := byName[n]
		if !ok {
			return fmt.Errorf("unknown provider %q", n)
		}
		if seen[n] {
			return fmt.Errorf("provider %q listed twice", n)
		}
		seen[n] = true
		ordered = append(ordered, p)
	}
	for _, p := range o.providers {
		if !seen[p.Name()] {
			ordered = append(ordered, p)
		}
	}

	o.providers = ordered
	o.logger.Info("provider order changed", zap.Strings("order", names))
	return nil
}

// SetModel changes the model of the named provider.
func (o *Orchestrator) SetModel(name, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model for %q must not be empty", name)
	}
	for _, p := range o.snapshot() {
		if p.Name() == name {
			if p.Model() != model {
				p.SetModel(model)
				o.logger.Info("provider model changed", zap.String("provider", name), zap.String("model", model))
			}
			return nil
		}
	}
	return fmt.Errorf("unknown provider %q", name)
}

// Status reports every provider with its model and breaker state.
func (o *Orchestrator) Status() []ProviderStatus {
	providers := o.snapshot()
	out := make([]ProviderStatus, len(providers))
	for i, p := range providers {
		out[i] = ProviderStatus{Name: p.Name(), Model: p.Model()}
		if br, ok := p.(llm.BreakerReporter); ok {
			out[i].Breaker = br.BreakerState()
		}
	}
	return out
}

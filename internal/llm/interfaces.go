package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

var (
	// ErrProviderTimeout is returned when a provider does not answer in time.
	ErrProviderTimeout = errors.New("provider timed out")

	// ErrTransport is returned when a provider cannot be reached or answers
	// with a non-success status.
	ErrTransport = errors.New("provider transport error")

	// ErrMalformedResponse is returned when a provider's answer cannot be
	// parsed into an analysis.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// Request is a single-turn chat completion.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Provider is an external analysis service. Each provider gets exactly one
// attempt per request; retries are the caller's business.
type Provider interface {
	// Name is the human-readable identifier reported as ProviderUsed.
	Name() string
	Model() string
	// SetModel changes the model used from the next request on.
	SetModel(model string)
	Complete(ctx context.Context, req Request) (string, error)
}

// BreakerReporter is implemented by providers guarded by a circuit breaker.
type BreakerReporter interface {
	BreakerState() string
}

// modelName is a model identifier that can be swapped while requests are in flight.
type modelName struct {
	mu    sync.RWMutex
	value string
}

func (m *modelName) get() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

func (m *modelName) set(v string) {
	m.mu.Lock()
	m.value = v
	m.mu.Unlock()
}

// classifyError maps a raw client error onto the provider error kinds.
func classifyError(provider string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrMalformedResponse),
		errors.Is(err, ErrProviderTimeout), errors.Is(err, ErrTransport):
		return fmt.Errorf("%s: %w", provider, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", provider, ErrProviderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %w", provider, ErrProviderTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", provider, ErrTransport, err)
}

package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mangomango3x/Discord-fact-check/internal/decision"
)

// Settings are the operator-facing knobs. They can change while the
// service runs and every change applies to the next message.
type Settings struct {
	Enabled             bool    `yaml:"enabled" json:"enabled"`
	TruthinessThreshold float64 `yaml:"truthiness_threshold" json:"truthiness_threshold"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	MinMessageLength    int     `yaml:"min_message_length" json:"min_message_length"`

	AutoCheckWindow Duration `yaml:"auto_check_window" json:"auto_check_window"`
	AutoCheckMax    int      `yaml:"auto_check_max" json:"auto_check_max"`
	CommandWindow   Duration `yaml:"command_window" json:"command_window"`
	CommandMax      int      `yaml:"command_max" json:"command_max"`

	RecurringThreshold int `yaml:"recurring_threshold" json:"recurring_threshold"`
	ContextLookback    int `yaml:"context_lookback" json:"context_lookback"`

	// ProviderOrder lists provider names to try first; unlisted providers
	// keep their configured order after them.
	ProviderOrder  []string          `yaml:"provider_order" json:"provider_order,omitempty"`
	ProviderModels map[string]string `yaml:"provider_models" json:"provider_models,omitempty"`
}

// DefaultSettings returns the built-in operator settings.
func DefaultSettings() Settings {
	return Settings{
		Enabled:             true,
		TruthinessThreshold: decision.DefaultTruthinessThreshold,
		ConfidenceThreshold: decision.DefaultConfidenceThreshold,
		MinMessageLength:    20,
		AutoCheckWindow:     Duration(5 * time.Minute),
		AutoCheckMax:        2,
		CommandWindow:       Duration(time.Minute),
		CommandMax:          5,
		RecurringThreshold:  2,
		ContextLookback:     10,
	}
}

// Validate checks ranges.
func (s Settings) Validate() error {
	var errs []error
	if s.TruthinessThreshold < 0 || s.TruthinessThreshold > 100 {
		errs = append(errs, fmt.Errorf("truthiness_threshold must be 0-100, got %v", s.TruthinessThreshold))
	}
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence_threshold must be 0-1, got %v", s.ConfidenceThreshold))
	}
	if s.MinMessageLength < 0 {
		errs = append(errs, fmt.Errorf("min_message_length must be >= 0, got %d", s.MinMessageLength))
	}
	if s.AutoCheckWindow <= 0 || s.CommandWindow <= 0 {
		errs = append(errs, errors.New("rate-limit windows must be positive"))
	}
	if s.AutoCheckMax <= 0 || s.CommandMax <= 0 {
		errs = append(errs, errors.New("rate-limit ceilings must be positive"))
	}
	if s.RecurringThreshold < 0 {
		errs = append(errs, fmt.Errorf("recurring_threshold must be >= 0, got %d", s.RecurringThreshold))
	}
	if s.ContextLookback < 0 {
		errs = append(errs, fmt.Errorf("context_lookback must be >= 0, got %d", s.ContextLookback))
	}
	for name, model := range s.ProviderModels {
		if model == "" {
			errs = append(errs, fmt.Errorf("provider_models[%s] is empty", name))
		}
	}
	return errors.Join(errs...)
}

// Thresholds returns the decision cutoffs.
func (s Settings) Thresholds() decision.Thresholds {
	return decision.Thresholds{
		Truthiness: s.TruthinessThreshold,
		Confidence: s.ConfidenceThreshold,
	}
}

func (s Settings) clone() Settings {
	s.ProviderOrder = slices.Clone(s.ProviderOrder)
	s.ProviderModels = maps.Clone(s.ProviderModels)
	return s
}

// Runtime holds the current Settings. Readers get a consistent snapshot
// without locking; writers are serialized and notify subscribers in order.
type Runtime struct {
	current atomic.Pointer[Settings]

	mu          sync.Mutex
	subscribers []func(Settings)
}

// NewRuntime creates a holder with initial settings.
func NewRuntime(initial Settings) *Runtime {
	r := &Runtime{}
	s := initial.clone()
	r.current.Store(&s)
	return r
}

// Get returns a copy of the current settings.
func (r *Runtime) Get() Settings {
	return r.current.Load().clone()
}

// Subscribe registers fn to run after every successful change.
func (r *Runtime) Subscribe(fn func(Settings)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Update applies fn to a copy of the current settings and installs the
// result if fn succeeds and the result validates. The previous settings
// stay in place on error.
func (r *Runtime) Update(fn func(*Settings) error) (Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.current.Load().clone()
	if err := fn(&next); err != nil {
		return r.current.Load().clone(), err
	}
	if err := next.Validate(); err != nil {
		return r.current.Load().clone(), fmt.Errorf("invalid settings: %w", err)
	}
	r.current.Store(&next)
	for _, sub := range r.subscribers {
		sub(next.clone())
	}
	return next.clone(), nil
}

// Replace installs s wholesale.
func (r *Runtime) Replace(s Settings) error {
	_, err := r.Update(func(cur *Settings) error {
		*cur = s.clone()
		return nil
	})
	return err
}

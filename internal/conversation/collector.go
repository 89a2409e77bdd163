// Package conversation gathers short-term channel context for analysis.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/metrics"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// ErrContextFetch wraps a failed history fetch. Collect logs it and returns
// an empty window; it never reaches the pipeline.
var ErrContextFetch = errors.New("conversation: context fetch failed")

// Collection defaults.
const (
	DefaultLookback     = 10
	DefaultMinLength    = 10 // trimmed content must be longer than this
	DefaultMaxChars     = 200
	DefaultMaxEntries   = 5
	DefaultFetchTimeout = 5 * time.Second
)

// HistoryMessage is a prior message as returned by a MessageSource.
type HistoryMessage struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageSource is the chat platform's history API.
type MessageSource interface {
	// FetchHistory returns up to limit messages posted in channelID before
	// the message beforeID, newest first.
	FetchHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]HistoryMessage, error)
}

// Collector builds a ContextWindow from a MessageSource.
type Collector struct {
	source     MessageSource
	minLength  int
	maxChars   int
	maxEntries int
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithFetchTimeout bounds the history fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCollector creates a Collector over source.
func NewCollector(source MessageSource, opts ...Option) *Collector {
	c := &Collector{
		source:     source,
		minLength:  DefaultMinLength,
		maxChars:   DefaultMaxChars,
		maxEntries: DefaultMaxEntries,
		timeout:    DefaultFetchTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect fetches up to lookback messages before beforeID, keeps those whose
// trimmed content is longer than the minimum length, truncates each, and
// returns the most recent few oldest first. Fetch failures yield an empty
// window.
func (c *Collector) Collect(ctx context.Context, channelID, beforeID string, lookback int) types.ContextWindow {
	if c.source == nil || lookback <= 0 {
		return nil
	}

	history, err := c.fetch(ctx, channelID, beforeID, lookback)
	if err != nil {
		metrics.ContextFetchErrors.Inc()
		c.logger.Warn("collecting context failed, continuing without it",
			zap.String("channel", channelID), zap.Error(err))
		return nil
	}

	window := make(types.ContextWindow, 0, c.maxEntries)
	for _, m := range history {
		if len(window) == c.maxEntries {
			break
		}
		if len([]rune(strings.TrimSpace(m.Content))) <= c.minLength {
			continue
		}
		window = append(window, types.ContextMessage{
			Author:    m.Author,
			Content:   types.Truncate(m.Content, c.maxChars),
			Timestamp: m.Timestamp,
		})
	}

	// history is newest first; the window is oldest first.
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	return window
}

func (c *Collector) fetch(ctx context.Context, channelID, beforeID string, lookback int) (history []HistoryMessage, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrContextFetch, r)
		}
	}()

	history, err = c.source.FetchHistory(ctx, channelID, lookback, beforeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextFetch, err)
	}
	if len(history) > lookback {
		history = history[:lookback]
	}
	return history, nil
}

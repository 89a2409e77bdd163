// Package ratelimit implements per-identity sliding-window rate limiting.
//
// Each Limiter keeps an ordered list of event timestamps per identity.
// Expired entries are dropped lazily when the identity is next checked.
// Identities are spread across lock shards, so checks for one identity are
// linearizable while checks for different identities rarely contend.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/metrics"
	"github.com/mangomango3x/Discord-fact-check/internal/storage"
)

const shardCount = 32

// keyPrefix is the storage key prefix for persisted windows.
const keyPrefix = "ratelimit/"

// writeTimeout bounds the store write made after each recorded event.
const writeTimeout = 2 * time.Second

type shard struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// Limiter is a sliding-window limiter. Two Limiters never share state.
type Limiter struct {
	name   string
	shards [shardCount]*shard
	now    func() time.Time

	store   storage.Store
	logger  *zap.Logger
	dirty   atomic.Bool
	flushMu sync.Mutex

	// lastWindow is the most recent window passed to Allow, used by Sweep.
	lastWindow atomic.Int64
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithStore persists windows to store under "ratelimit/<name>". Every
// recorded event is written through; Flush retries writes that failed.
func WithStore(store storage.Store) Option {
	return func(l *Limiter) { l.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a named limiter.
func New(name string, opts ...Option) *Limiter {
	l := &Limiter{
		name:   name,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string][]time.Time)}
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String("limiter", name))
	return l
}

// Name returns the limiter name.
func (l *Limiter) Name() string { return l.name }

func (l *Limiter) shardFor(identity string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identity))
	return l.shards[h.Sum32()%shardCount]
}

// Allow reports whether identity may perform another event inside window.
// On true the current time is recorded and, with a store, written through.
// Blank identities are treated as having no history and are never recorded.
func (l *Limiter) Allow(identity string, window time.Duration, maxEvents int) bool {
	if maxEvents <= 0 {
		metrics.RateLimited.WithLabelValues(l.name).Inc()
		return false
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return true
	}
	l.lastWindow.Store(int64(window))

	if !l.record(identity, window, maxEvents) {
		metrics.RateLimited.WithLabelValues(l.name).Inc()
		return false
	}
	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := l.Flush(ctx); err != nil {
			l.logger.Warn("rate window not persisted; will retry", zap.Error(err))
		}
	}
	return true
}

func (l *Limiter) record(identity string, window time.Duration, maxEvents int) bool {
	s := l.shardFor(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()
	kept := prune(s.windows[identity], now, window)
	if len(kept) >= maxEvents {
		s.windows[identity] = kept
		return false
	}
	s.windows[identity] = append(kept, now)
	l.dirty.Store(true)
	return true
}

// Count returns how many events identity has inside window, without recording.
func (l *Limiter) Count(identity string, window time.Duration) int {
	s := l.shardFor(strings.TrimSpace(identity))
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(prune(s.windows[strings.TrimSpace(identity)], l.now(), window))
}

// prune keeps timestamps t with now-window < t <= now. The slice is filtered in place.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) && !t.After(now) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Sweep drops identities whose windows have fully expired, using the most
// recent window passed to Allow. It returns the number of identities removed.
func (l *Limiter) Sweep() int {
	window := time.Duration(l.lastWindow.Load())
	if window <= 0 {
		return 0
	}
	removed := 0
	now := l.now()
	for _, s := range l.shards {
		s.mu.Lock()
		for id, ts := range s.windows {
			kept := prune(ts, now, window)
			if len(kept) == 0 {
				delete(s.windows, id)
				removed++
				continue
			}
			s.windows[id] = kept
		}
		s.mu.Unlock()
	}
	if removed > 0 {
		l.dirty.Store(true)
	}
	return removed
}

// Snapshot returns a copy of every identity's window.
func (l *Limiter) Snapshot() map[string][]time.Time {
	out := make(map[string][]time.Time)
	for _, s := range l.shards {
		s.mu.Lock()
		for id, ts := range s.windows {
			if len(ts) > 0 {
				out[id] = append([]time.Time(nil), ts...)
			}
		}
		s.mu.Unlock()
	}
	return out
}

func (l *Limiter) storageKey() string { return keyPrefix + l.name }

// Load restores windows from the store. A missing document is not an error.
func (l *Limiter) Load(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	data, err := l.store.Get(ctx, l.storageKey())
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("ratelimit: failed to load %s: %w", l.name, err)
	}

	var doc map[string][]time.Time
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("ratelimit: corrupt document %s: %w", l.name, err)
	}
	for id, ts := range doc {
		s := l.shardFor(id)
		s.mu.Lock()
		s.windows[id] = ts
		s.mu.Unlock()
	}
	l.logger.Info("restored rate windows", zap.Int("identities", len(doc)))
	return nil
}

// Flush writes the current windows to the store if anything changed since
// the last successful flush. On failure the in-memory state is kept and the
// next flush retries.
func (l *Limiter) Flush(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	l.flushMu.Lock()
	defer l.flushMu.Unlock()
	if !l.dirty.Swap(false) {
		return nil
	}
	data, err := json.Marshal(l.Snapshot())
	if err != nil {
		l.dirty.Store(true)
		return fmt.Errorf("ratelimit: failed to encode %s: %w", l.name, err)
	}
	if err := l.store.Put(ctx, l.storageKey(), data); err != nil {
		l.dirty.Store(true)
		metrics.PersistenceErrors.WithLabelValues("ratelimit").Inc()
		return fmt.Errorf("ratelimit: failed to persist %s: %w", l.name, err)
	}
	return nil
}

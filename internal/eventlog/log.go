// Package eventlog keeps a bounded, append-only log of alert decisions per
// community for trend reporting.
package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/community"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// DefaultCapacity is the number of events retained per community.
const DefaultCapacity = 100

// Log is a per-community ring of events. When full, the oldest events are
// dropped first.
type Log struct {
	docs     *community.Store
	capacity int
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Log.
type Option func(*Log)

// WithCapacity sets the ring size.
func WithCapacity(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Log) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates an event log over the community documents.
func New(docs *community.Store, opts ...Option) *Log {
	l := &Log{
		docs:     docs,
		capacity: DefaultCapacity,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Capacity returns the ring size.
func (l *Log) Capacity() int { return l.capacity }

// Append adds ev at the tail of the community's ring, evicting the oldest
// entries beyond capacity. A missing ID or timestamp is filled in. The
// stored event is returned; on a write-through failure it is returned
// together with an error wrapping community.ErrPersistence.
func (l *Log) Append(ctx context.Context, communityID string, ev types.Event) (types.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now().UTC()
	}
	ev.KeyPhrases = append([]types.KeyPhrase(nil), ev.KeyPhrases...)

	err := l.docs.Update(ctx, communityID, func(doc *community.Document) error {
		doc.Events = append(doc.Events, ev)
		if over := len(doc.Events) - l.capacity; over > 0 {
			doc.Events = append([]types.Event(nil), doc.Events[over:]...)
		}
		return nil
	})
	return ev, err
}

// QueryRecent returns the community's events newer than now-maxAge,
// oldest first. A non-positive maxAge returns every retained event.
func (l *Log) QueryRecent(ctx context.Context, communityID string, maxAge time.Duration) ([]types.Event, error) {
	cutoff := l.now().Add(-maxAge)
	var out []types.Event
	err := l.docs.View(ctx, communityID, func(doc *community.Document) {
		events := doc.Events
		if len(events) > l.capacity {
			events = events[len(events)-l.capacity:]
		}
		for _, ev := range events {
			if maxAge > 0 && !ev.Timestamp.After(cutoff) {
				continue
			}
			out = append(out, ev)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

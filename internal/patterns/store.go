// Package patterns tracks how often claim phrases recur within a community so
// repeated misinformation is flagged more aggressively.
package patterns

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/community"
	"github.com/mangomango3x/Discord-fact-check/internal/metrics"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

const (
	// DefaultRecurringThreshold: a message is recurring when the summed
	// count of its phrases exceeds this value.
	DefaultRecurringThreshold = 2

	// exampleChars is the length examples are truncated to.
	exampleChars = 100

	// examplesPerMatch is how many examples each matched phrase contributes
	// to PatternInfo.
	examplesPerMatch = 2

	defaultHalfLife = 14 * 24 * time.Hour
)

// Store is the per-community phrase frequency table.
type Store struct {
	docs     *community.Store
	now      func() time.Time
	halfLife time.Duration
	logger   *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithHalfLife sets the half-life used to rank phrases in Top.
func WithHalfLife(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.halfLife = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a pattern store over the community documents.
func NewStore(docs *community.Store, opts ...Option) *Store {
	s := &Store{
		docs:     docs,
		now:      time.Now,
		halfLife: defaultHalfLife,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordAndQuery reports how often phrases have been seen in the community
// and then records this occurrence, as one indivisible step per community.
// Frequency is the summed count of matched phrases before this message.
//
// If only the write-through fails the info is still returned together with
// an error wrapping community.ErrPersistence.
func (s *Store) RecordAndQuery(ctx context.Context, communityID string, phrases []types.KeyPhrase, example string, recurringThreshold int) (*types.PatternInfo, error) {
	phrases = dedupe(phrases)
	info := &types.PatternInfo{KeyPhrases: phrases}
	if len(phrases) == 0 {
		return info, nil
	}

	example = types.Truncate(example, exampleChars)
	now := s.now()

	err := s.docs.Update(ctx, communityID, func(doc *community.Document) error {
		for _, p := range phrases {
			e, ok := doc.Claims[string(p)]
			if !ok {
				continue
			}
			info.Frequency += e.Count
			n := len(e.Examples)
			if n > examplesPerMatch {
				n = examplesPerMatch
			}
			info.Examples = append(info.Examples, e.Examples[:n]...)
		}
		info.IsRecurring = info.Frequency > recurringThreshold

		for _, p := range phrases {
			e, ok := doc.Claims[string(p)]
			if !ok {
				e = &types.PatternEntry{FirstSeen: now}
				doc.Claims[string(p)] = e
			}
			e.Count++
			e.LastSeen = now
			if example != "" && len(e.Examples) < types.MaxPatternExamples {
				e.Examples = append(e.Examples, example)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, community.ErrPersistence) {
		return &types.PatternInfo{KeyPhrases: phrases}, err
	}
	return info, err
}

// Query reports recurrence for phrases without recording anything.
func (s *Store) Query(ctx context.Context, communityID string, phrases []types.KeyPhrase, recurringThreshold int) (*types.PatternInfo, error) {
	phrases = dedupe(phrases)
	info := &types.PatternInfo{KeyPhrases: phrases}
	err := s.docs.View(ctx, communityID, func(doc *community.Document) {
		for _, p := range phrases {
			if e, ok := doc.Claims[string(p)]; ok {
				info.Frequency += e.Count
			}
		}
	})
	info.IsRecurring = info.Frequency > recurringThreshold
	return info, err
}

func dedupe(phrases []types.KeyPhrase) []types.KeyPhrase {
	seen := make(map[types.KeyPhrase]struct{}, len(phrases))
	out := make([]types.KeyPhrase, 0, len(phrases))
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Prune removes entries not seen within maxAge from every community.
// Entries without a LastSeen timestamp count as expired.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := s.docs.Communities(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-maxAge)

	total := 0
	var errs []error
	for _, id := range ids {
		removed := 0
		err := s.docs.Update(ctx, id, func(doc *community.Document) error {
			for phrase, e := range doc.Claims {
				if e.LastSeen.Before(cutoff) {
					delete(doc.Claims, phrase)
					removed++
				}
			}
			return nil
		})
		total += removed
		if err != nil {
			errs = append(errs, err)
		}
	}
	if total > 0 {
		metrics.PatternsPruned.Add(float64(total))
		s.logger.Info("pruned expired patterns", zap.Int("removed", total), zap.Int("communities", len(ids)))
	}
	return total, errors.Join(errs...)
}

// PhraseStat is a phrase with its raw count and decayed weight.
type PhraseStat struct {
	Phrase   types.KeyPhrase `json:"phrase"`
	Count    int             `json:"count"`
	Weight   float64         `json:"weight"`
	LastSeen time.Time       `json:"last_seen"`
}

// Top returns the n phrases with the highest decayed weight in a community.
// Weight is count * 2^(-age/halfLife), age measured from LastSeen.
func (s *Store) Top(ctx context.Context, communityID string, n int) ([]PhraseStat, error) {
	now := s.now()
	var stats []PhraseStat
	err := s.docs.View(ctx, communityID, func(doc *community.Document) {
		for phrase, e := range doc.Claims {
			stats = append(stats, PhraseStat{
				Phrase:   types.KeyPhrase(phrase),
				Count:    e.Count,
				Weight:   decayedWeight(e.Count, now.Sub(e.LastSeen), s.halfLife),
				LastSeen: e.LastSeen,
			})
		}
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Weight != stats[j].Weight {
			return stats[i].Weight > stats[j].Weight
		}
		return stats[i].Phrase < stats[j].Phrase
	})
	if n >= 0 && len(stats) > n {
		stats = stats[:n]
	}
	return stats, nil
}

func decayedWeight(count int, age, halfLife time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	return float64(count) * math.Pow(2, -age.Hours()/halfLife.Hours())
}

package patterns

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/community"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/memory"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

func newTestStore(t *testing.T, now func() time.Time) *Store {
	t.Helper()
	docs := community.NewStore(memory.NewStore(), nil)
	return NewStore(docs, WithClock(now))
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func TestRecordAndQuery_FrequencyAndRecurring(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, fixedClock(base))
	phrase := []types.KeyPhrase{"moon landing"}

	wantRecurring := []bool{false, false, false, true}
	for n := 0; n < 4; n++ {
		info, err := s.RecordAndQuery(ctx, "guild", phrase, "the moon landing was staged", DefaultRecurringThreshold)
		require.NoError(t, err)
		assert.Equal(t, n, info.Frequency, "frequency before record #%d", n+1)
		assert.Equal(t, wantRecurring[n], info.IsRecurring, "recurring at frequency %d", n)
	}

	info, err := s.Query(ctx, "guild", phrase, DefaultRecurringThreshold)
	require.NoError(t, err)
	assert.Equal(t, 4, info.Frequency)
}

func TestRecordAndQuery_SumsMatchedPhrases(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, fixedClock(base))

	_, err := s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"five towers", "towers spread"}, "5G towers spread the virus", 2)
	require.NoError(t, err)

	info, err := s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"five towers", "towers spread", "spread virus"}, "again", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Frequency)
	assert.False(t, info.IsRecurring)
	assert.Equal(t, []string{"5G towers spread the virus", "5G towers spread the virus"}, info.Examples)

	info, err = s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"five towers", "towers spread", "spread virus"}, "third", 2)
	require.NoError(t, err)
	assert.Equal(t, 5, info.Frequency)
	assert.True(t, info.IsRecurring)
}

func TestRecordAndQuery_ExamplesKeepEarliest(t *testing.T) {
	ctx := context.Background()
	docs := community.NewStore(memory.NewStore(), nil)
	s := NewStore(docs, WithClock(fixedClock(base)))

	long := ""
	for i := 0; i < 30; i++ {
		long += "abcdefg "
	}
	for i := 0; i < 7; i++ {
		example := "example " + string(rune('A'+i))
		if i == 0 {
			example = long
		}
		_, err := s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"flat earth"}, example, 2)
		require.NoError(t, err)
	}

	require.NoError(t, docs.View(ctx, "guild", func(doc *community.Document) {
		e := doc.Claims["flat earth"]
		assert.Equal(t, 7, e.Count)
		require.Len(t, e.Examples, types.MaxPatternExamples)
		assert.Len(t, []rune(e.Examples[0]), 100)
		assert.Equal(t, "example B", e.Examples[1])
		assert.Equal(t, "example E", e.Examples[4])
	}))
}

func TestRecordAndQuery_CommunitiesIsolated(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, fixedClock(base))
	phrase := []types.KeyPhrase{"chemtrails control"}

	for i := 0; i < 3; i++ {
		_, err := s.RecordAndQuery(ctx, "guild-a", phrase, "x", 2)
		require.NoError(t, err)
	}
	info, err := s.RecordAndQuery(ctx, "guild-b", phrase, "x", 2)
	require.NoError(t, err)
	assert.Zero(t, info.Frequency)
}

func TestRecordAndQuery_DuplicatePhrasesCountOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, fixedClock(base))

	_, err := s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"very very", "very very"}, "x", 2)
	require.NoError(t, err)
	info, err := s.Query(ctx, "guild", []types.KeyPhrase{"very very"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Frequency)
}

func TestRecordAndQuery_ConcurrentNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, fixedClock(base))
	phrase := []types.KeyPhrase{"shared claim"}

	const writers = 40
	seen := make([]int, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info, err := s.RecordAndQuery(ctx, "guild", phrase, "x", 2)
			assert.NoError(t, err)
			seen[i] = info.Frequency
		}(i)
	}
	wg.Wait()

	// Every writer saw a distinct prior frequency: 0..writers-1.
	got := make(map[int]bool, writers)
	for _, f := range seen {
		got[f] = true
	}
	assert.Len(t, got, writers)

	info, err := s.Query(ctx, "guild", phrase, 2)
	require.NoError(t, err)
	assert.Equal(t, writers, info.Frequency)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	now := base
	clock := func() time.Time { return now }
	s := newTestStore(t, clock)

	_, err := s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"old claim"}, "x", 2)
	require.NoError(t, err)
	now = base.Add(20 * 24 * time.Hour)
	_, err = s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"new claim"}, "x", 2)
	require.NoError(t, err)
	now = base.Add(35 * 24 * time.Hour)

	removed, err := s.Prune(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	info, err := s.Query(ctx, "guild", []types.KeyPhrase{"old claim", "new claim"}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Frequency)
}

func TestTop_RanksByDecayedWeight(t *testing.T) {
	ctx := context.Background()
	now := base
	clock := func() time.Time { return now }
	docs := community.NewStore(memory.NewStore(), nil)
	s := NewStore(docs, WithClock(clock), WithHalfLife(24*time.Hour))

	for i := 0; i < 4; i++ {
		_, err := s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"stale claim"}, "x", 2)
		require.NoError(t, err)
	}
	now = base.Add(72 * time.Hour)
	for i := 0; i < 2; i++ {
		_, err := s.RecordAndQuery(ctx, "guild", []types.KeyPhrase{"fresh claim"}, "x", 2)
		require.NoError(t, err)
	}

	top, err := s.Top(ctx, "guild", 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, types.KeyPhrase("fresh claim"), top[0].Phrase)
	assert.InDelta(t, 2.0, top[0].Weight, 1e-9)
	assert.Equal(t, 4, top[1].Count)
	assert.InDelta(t, 0.5, top[1].Weight, 1e-9)

	top, err = s.Top(ctx, "guild", 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

package community

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/storage/memory"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// flakyStore fails writes while failing is set.
type flakyStore struct {
	*memory.Store
	failing atomic.Bool
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	if f.failing.Load() {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, key, value)
}

func TestUpdate_WritesThrough(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := NewStore(kv, nil)

	err := s.Update(ctx, "guild-1", func(doc *Document) error {
		doc.Claims["moon landing"] = &types.PatternEntry{Count: 1, Examples: []string{"the moon landing was faked"}}
		return nil
	})
	require.NoError(t, err)

	raw, err := kv.Get(ctx, "community/guild-1")
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 1, doc.Claims["moon landing"].Count)
}

func TestUpdate_LoadsExistingDocument(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.Put(ctx, Key("guild-1"), []byte(`{"claims":{"flat earth":{"count":4,"examples":["a"]}},"events":[]}`)))

	s := NewStore(kv, nil)
	var count int
	require.NoError(t, s.View(ctx, "guild-1", func(doc *Document) {
		count = doc.Claims["flat earth"].Count
	}))
	assert.Equal(t, 4, count)
}

func TestUpdate_CorruptDocumentStartsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.Put(ctx, Key("guild-1"), []byte(`{not json`)))

	s := NewStore(kv, nil)
	var claims int
	require.NoError(t, s.View(ctx, "guild-1", func(doc *Document) { claims = len(doc.Claims) }))
	assert.Zero(t, claims)
}

func TestUpdate_PersistenceFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	kv := &flakyStore{Store: memory.NewStore()}
	s := NewStore(kv, nil)

	kv.failing.Store(true)
	err := s.Update(ctx, "guild-1", func(doc *Document) error {
		doc.Events = append(doc.Events, types.Event{ID: "e1"})
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))

	var events int
	require.NoError(t, s.View(ctx, "guild-1", func(doc *Document) { events = len(doc.Events) }))
	assert.Equal(t, 1, events)

	kv.failing.Store(false)
	require.NoError(t, s.Update(ctx, "guild-1", func(doc *Document) error { return nil }))
	raw, err := kv.Get(ctx, Key("guild-1"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"e1"`)
}

func TestUpdate_FnErrorSkipsPersist(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	s := NewStore(kv, nil)

	boom := errors.New("boom")
	err := s.Update(ctx, "guild-1", func(doc *Document) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = kv.Get(ctx, Key("guild-1"))
	assert.Error(t, err)
}

func TestUpdate_ConcurrentWritersSerialize(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.NewStore(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, "guild-1", func(doc *Document) error {
				e, ok := doc.Claims["x"]
				if !ok {
					e = &types.PatternEntry{}
					doc.Claims["x"] = e
				}
				e.Count++
				return nil
			})
		}()
	}
	wg.Wait()

	var count int
	require.NoError(t, s.View(ctx, "guild-1", func(doc *Document) { count = doc.Claims["x"].Count }))
	assert.Equal(t, 50, count)
}

func TestCommunities(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	require.NoError(t, kv.Put(ctx, Key("stored"), []byte(`{}`)))
	require.NoError(t, kv.Put(ctx, "ratelimit/auto", []byte(`{}`)))

	s := NewStore(kv, nil)
	require.NoError(t, s.View(ctx, "loaded only", func(*Document) {}))

	ids, err := s.Communities(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loaded only", "stored"}, ids)
}

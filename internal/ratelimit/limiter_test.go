package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/storage"
	"github.com/mangomango3x/Discord-fact-check/internal/storage/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAllow_MaxEventsThenDenied(t *testing.T) {
	clock := newFakeClock()
	l := New("auto", WithClock(clock.Now))

	assert.True(t, l.Allow("1:10", 5*time.Minute, 2))
	clock.Advance(time.Second)
	assert.True(t, l.Allow("1:10", 5*time.Minute, 2))
	clock.Advance(time.Second)
	assert.False(t, l.Allow("1:10", 5*time.Minute, 2))
	assert.False(t, l.Allow("1:10", 5*time.Minute, 2))
	assert.Equal(t, 2, l.Count("1:10", 5*time.Minute))
}

func TestAllow_AfterWindowElapses(t *testing.T) {
	clock := newFakeClock()
	l := New("command", WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		require.True(t, l.Allow("u", time.Minute, 5))
	}
	require.False(t, l.Allow("u", time.Minute, 5))

	clock.Advance(time.Minute)
	assert.True(t, l.Allow("u", time.Minute, 5), "entries exactly one window old have expired")
}

func TestAllow_SlidingNotFixed(t *testing.T) {
	clock := newFakeClock()
	l := New("auto", WithClock(clock.Now))

	require.True(t, l.Allow("u", 5*time.Minute, 2))
	clock.Advance(3 * time.Minute)
	require.True(t, l.Allow("u", 5*time.Minute, 2))
	clock.Advance(3 * time.Minute)

	// The first event has expired, the second has not.
	assert.True(t, l.Allow("u", 5*time.Minute, 2))
	assert.False(t, l.Allow("u", 5*time.Minute, 2))
}

func TestAllow_IdentitiesAreIndependent(t *testing.T) {
	l := New("auto")
	require.True(t, l.Allow("a", time.Minute, 1))
	require.False(t, l.Allow("a", time.Minute, 1))
	assert.True(t, l.Allow("b", time.Minute, 1))
}

func TestAllow_InstancesAreIndependent(t *testing.T) {
	auto := New("auto")
	command := New("command")

	require.True(t, auto.Allow("u", time.Minute, 1))
	require.False(t, auto.Allow("u", time.Minute, 1))
	assert.True(t, command.Allow("u", time.Minute, 1))
}

func TestAllow_EdgeInputs(t *testing.T) {
	l := New("auto")
	assert.False(t, l.Allow("u", time.Minute, 0))
	assert.True(t, l.Allow("", time.Minute, 1))
	assert.True(t, l.Allow("   ", time.Minute, 1))
	assert.Empty(t, l.Snapshot())
}

func TestAllow_ConcurrentSameIdentity(t *testing.T) {
	l := New("auto")

	const callers = 64
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared", time.Hour, 3) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), allowed.Load())
}

func TestSweep(t *testing.T) {
	clock := newFakeClock()
	l := New("auto", WithClock(clock.Now))

	require.True(t, l.Allow("old", time.Minute, 5))
	clock.Advance(50 * time.Second)
	require.True(t, l.Allow("fresh", time.Minute, 5))
	clock.Advance(20 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	snap := l.Snapshot()
	assert.Contains(t, snap, "fresh")
	assert.NotContains(t, snap, "old")
}

func TestFlushAndLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clock := newFakeClock()

	l := New("auto", WithClock(clock.Now), WithStore(store))
	require.True(t, l.Allow("u", 5*time.Minute, 2))
	require.True(t, l.Allow("u", 5*time.Minute, 2))
	require.NoError(t, l.Flush(ctx))

	raw, err := store.Get(ctx, "ratelimit/auto")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "2024-03-01T12:00:00Z")

	restored := New("auto", WithClock(clock.Now), WithStore(store))
	require.NoError(t, restored.Load(ctx))
	assert.False(t, restored.Allow("u", 5*time.Minute, 2))
}

func TestAllow_WritesThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clock := newFakeClock()

	l := New("auto", WithClock(clock.Now), WithStore(store))
	require.True(t, l.Allow("u", 5*time.Minute, 1))

	// No Flush: a restart right after the event still sees it.
	restored := New("auto", WithClock(clock.Now), WithStore(store))
	require.NoError(t, restored.Load(ctx))
	assert.False(t, restored.Allow("u", 5*time.Minute, 1))
}

// flakyStore fails every Put while down is set.
type flakyStore struct {
	storage.Store
	down atomic.Bool
}

func (f *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	if f.down.Load() {
		return errors.New("store unavailable")
	}
	return f.Store.Put(ctx, key, value)
}

func TestAllow_FailedWriteRetriedByFlush(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: memory.NewStore()}
	store.down.Store(true)
	clock := newFakeClock()

	l := New("auto", WithClock(clock.Now), WithStore(store))
	assert.True(t, l.Allow("u", 5*time.Minute, 1), "a failed write does not deny the event")

	_, err := store.Get(ctx, "ratelimit/auto")
	require.ErrorIs(t, err, storage.ErrNotFound)

	store.down.Store(false)
	require.NoError(t, l.Flush(ctx))

	restored := New("auto", WithClock(clock.Now), WithStore(store))
	require.NoError(t, restored.Load(ctx))
	assert.False(t, restored.Allow("u", 5*time.Minute, 1))
}

func TestLoad_MissingDocument(t *testing.T) {
	l := New("auto", WithStore(memory.NewStore()))
	assert.NoError(t, l.Load(context.Background()))
}

func TestFlush_NoStore(t *testing.T) {
	l := New("auto")
	l.Allow("u", time.Minute, 1)
	assert.NoError(t, l.Flush(context.Background()))
}

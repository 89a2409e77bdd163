// Package storagetest holds a conformance suite shared by every
// storage.Store backend.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mangomango3x/Discord-fact-check/internal/storage"
)

// Run exercises the storage.Store contract. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get_missing_returns_not_found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "community/missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("put_then_get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "community/42", []byte(`{"claims":{}}`)))
		got, err := s.Get(ctx, "community/42")
		require.NoError(t, err)
		assert.JSONEq(t, `{"claims":{}}`, string(got))
	})

	t.Run("put_overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "ratelimit/auto", []byte(`{"a":1}`)))
		require.NoError(t, s.Put(ctx, "ratelimit/auto", []byte(`{"a":2}`)))
		got, err := s.Get(ctx, "ratelimit/auto")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":2}`, string(got))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, "community/1", []byte(`{}`)))
		require.NoError(t, s.Delete(ctx, "community/1"))
		_, err := s.Get(ctx, "community/1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, s.Delete(ctx, "community/1"), "deleting a missing key is not an error")
	})

	t.Run("list_by_prefix", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{"community/b", "community/a", "ratelimit/auto"} {
			require.NoError(t, s.Put(ctx, k, []byte(`{}`)))
		}
		keys, err := s.List(ctx, "community/")
		require.NoError(t, err)
		assert.Equal(t, []string{"community/a", "community/b"}, keys)
	})

	t.Run("rejects_malformed_keys", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Put(ctx, "", []byte(`{}`)), storage.ErrInvalidInput)
		assert.ErrorIs(t, s.Put(ctx, "community//x", []byte(`{}`)), storage.ErrInvalidInput)
	})

	t.Run("concurrent_writers_on_distinct_keys", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, s.Put(ctx, fmt.Sprintf("community/%d", i), []byte(`{}`)))
			}(i)
		}
		wg.Wait()
		keys, err := s.List(ctx, "community/")
		require.NoError(t, err)
		assert.Len(t, keys, 8)
	})
}

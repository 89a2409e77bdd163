// Package redis provides a Redis-backed storage.Store.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mangomango3x/Discord-fact-check/internal/storage"
)

const defaultNamespace = "factcheck:"

// Store implements storage.Store on top of a Redis client. Every key is
// prefixed with a namespace so several deployments can share one server.
type Store struct {
	client    *goredis.Client
	namespace string
}

// NewStore parses a redis:// URL, connects and pings the server.
func NewStore(ctx context.Context, redisURL, namespace string) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping: %w", err)
	}
	return NewStoreWithClient(client, namespace), nil
}

// NewStoreWithClient wraps an existing client.
func NewStoreWithClient(client *goredis.Client, namespace string) *Store {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &Store{client: client, namespace: namespace}
}

func (s *Store) key(k string) string { return s.namespace + k }

// Get returns the value for key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: failed to get %s: %w", key, err)
	}
	return val, nil
}

// Put sets the value for key without expiry.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to put %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: failed to delete %s: %w", key, err)
	}
	return nil
}

// List scans for keys with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.key(prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		k := strings.TrimPrefix(iter.Val(), s.namespace)
		// SCAN patterns treat glob characters specially; re-check the prefix.
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis: failed to scan keys: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ storage.Store = (*Store)(nil)

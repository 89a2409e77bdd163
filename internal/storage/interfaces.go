// Package storage defines the key-value contract used to persist pattern,
// event and rate-limit state. Backends live in subpackages: file, sqlite,
// postgres, redis and memory.
package storage

import "context"

// Store is a byte-oriented key-value store.
//
// Keys are slash-separated paths such as "community/1234" or
// "ratelimit/auto". Values are opaque; callers store JSON documents.
// Implementations must be safe for concurrent use. Ordering between writers
// to the same key is the caller's responsibility.
type Store interface {
	// Get returns the value stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put creates or replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys starting with prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

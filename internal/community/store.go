// Package community holds the per-community document shared by the pattern
// store and the event log: {claims: {phrase: entry}, events: [...]}.
//
// Each community is a partition with its own lock. Every update is a
// read-modify-write of the whole document followed by a write-through to the
// key-value store, so concurrent writers to one community serialize while
// different communities never block each other.
package community

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mangomango3x/Discord-fact-check/internal/metrics"
	"github.com/mangomango3x/Discord-fact-check/internal/storage"
	"github.com/mangomango3x/Discord-fact-check/pkg/types"
)

// ErrPersistence wraps a failed write-through. The in-memory document has
// already been updated when it is returned.
var ErrPersistence = errors.New("community: persistence failed")

const keyPrefix = "community/"

// Document is the persisted state of one community.
type Document struct {
	Claims map[string]*types.PatternEntry `json:"claims"`
	Events []types.Event                  `json:"events"`
}

func newDocument() *Document {
	return &Document{Claims: make(map[string]*types.PatternEntry)}
}

type partition struct {
	mu     sync.Mutex
	loaded bool
	doc    *Document
}

// Store caches community documents and writes them through to a storage.Store.
type Store struct {
	kv     storage.Store
	logger *zap.Logger

	mu         sync.Mutex
	partitions map[string]*partition
}

// NewStore creates a document store backed by kv.
func NewStore(kv storage.Store, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		kv:         kv,
		logger:     logger,
		partitions: make(map[string]*partition),
	}
}

// Key returns the storage key for a community document.
func Key(communityID string) string {
	return keyPrefix + url.PathEscape(communityID)
}

func (s *Store) partition(communityID string) *partition {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partitions[communityID]
	if !ok {
		p = &partition{}
		s.partitions[communityID] = p
	}
	return p
}

// load fills p from the key-value store. Caller holds p.mu.
func (s *Store) load(ctx context.Context, communityID string, p *partition) error {
	if p.loaded {
		return nil
	}
	key := Key(communityID)
	data, err := s.kv.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p.doc = newDocument()
	case err != nil:
		return fmt.Errorf("community: failed to load %s: %w", key, err)
	default:
		doc := newDocument()
		if err := json.Unmarshal(data, doc); err != nil {
			// A corrupt document is replaced on the next write.
			s.logger.Error("corrupt community document, starting empty",
				zap.String("key", key), zap.Error(err))
			doc = newDocument()
		}
		if doc.Claims == nil {
			doc.Claims = make(map[string]*types.PatternEntry)
		}
		p.doc = doc
	}
	p.loaded = true
	return nil
}

// Update runs fn on the community's document while holding the partition
// lock, then persists the result. If fn returns an error nothing is
// persisted and fn must not have modified the document. If persisting fails
// the returned error wraps ErrPersistence and the change stays in memory.
func (s *Store) Update(ctx context.Context, communityID string, fn func(doc *Document) error) error {
	p := s.partition(communityID)
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := s.load(ctx, communityID, p); err != nil {
		return err
	}
	if err := fn(p.doc); err != nil {
		return err
	}
	return s.persist(ctx, communityID, p.doc)
}

// View runs fn on the community's document under the partition lock.
// fn must not retain or modify the document.
func (s *Store) View(ctx context.Context, communityID string, fn func(doc *Document)) error {
	p := s.partition(communityID)
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := s.load(ctx, communityID, p); err != nil {
		return err
	}
	fn(p.doc)
	return nil
}

func (s *Store) persist(ctx context.Context, communityID string, doc *Document) error {
	key := Key(communityID)
	data, err := json.Marshal(doc)
	if err == nil {
		err = s.kv.Put(ctx, key, data)
	}
	if err != nil {
		metrics.PersistenceErrors.WithLabelValues("community").Inc()
		s.logger.Error("failed to persist community document",
			zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrPersistence, key, err)
	}
	return nil
}

// Communities lists every community known in memory or in the store.
func (s *Store) Communities(ctx context.Context) ([]string, error) {
	set := make(map[string]struct{})
	s.mu.Lock()
	for id := range s.partitions {
		set[id] = struct{}{}
	}
	s.mu.Unlock()

	keys, err := s.kv.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("community: failed to list documents: %w", err)
	}
	for _, k := range keys {
		id, err := url.PathUnescape(strings.TrimPrefix(k, keyPrefix))
		if err != nil {
			continue
		}
		set[id] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

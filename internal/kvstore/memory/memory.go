// Package memory provides an in-process kvstore backend with per-handle
// partition enforcement. It backs the test suite and local development;
// the access policy lives in the backend, below repository code, so a
// repository bug cannot reach another user's rows.
package memory

import (
	"context"
	"sync"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
)

// Store is an in-memory table: partition -> sort key -> item, plus a
// secondary index keyed by sort key alone.
type Store struct {
	mu         sync.RWMutex
	partitions map[string]map[string]kvstore.Item
	index      map[string]kvstore.Item
}

// New creates an empty store.
func New() *Store {
	return &Store{
		partitions: make(map[string]map[string]kvstore.Item),
		index:      make(map[string]kvstore.Item),
	}
}

// Scoped returns a handle authorized for exactly one partition.
func (s *Store) Scoped(ctx context.Context, userID string) (kvstore.Handle, error) {
	return &handle{store: s, partition: userID}, nil
}

type handle struct {
	store     *Store
	partition string
	closed    bool
}

// authorize evaluates the handle's partition policy for a primary-key access.
func (h *handle) authorize(pk string) error {
	if pk != h.partition {
		return kvstore.ErrAccessDenied
	}
	return nil
}

func (h *handle) Put(ctx context.Context, item kvstore.Item) error {
	if err := h.authorize(item.PK); err != nil {
		return err
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	partition, ok := h.store.partitions[item.PK]
	if !ok {
		partition = make(map[string]kvstore.Item)
		h.store.partitions[item.PK] = partition
	}
	partition[item.SK] = item
	h.store.index[item.SK] = item
	return nil
}

func (h *handle) Get(ctx context.Context, pk, sk string) (kvstore.Item, error) {
	if err := h.authorize(pk); err != nil {
		return kvstore.Item{}, err
	}

	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	item, ok := h.store.partitions[pk][sk]
	if !ok {
		return kvstore.Item{}, kvstore.ErrNotFound
	}
	return item, nil
}

func (h *handle) Query(ctx context.Context, pk string) ([]kvstore.Item, error) {
	if err := h.authorize(pk); err != nil {
		return nil, err
	}

	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	items := make([]kvstore.Item, 0, len(h.store.partitions[pk]))
	for _, item := range h.store.partitions[pk] {
		items = append(items, item)
	}
	return items, nil
}

func (h *handle) QueryIndex(ctx context.Context, sk string) ([]kvstore.Item, error) {
	// The index spans partitions, but the policy is evaluated against the
	// partition encoded in the sort key before any row is read. A foreign
	// key is denied, not "not found".
	if err := h.authorize(kvstore.PartitionOf(sk)); err != nil {
		return nil, err
	}

	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	item, ok := h.store.index[sk]
	if !ok {
		return nil, nil
	}
	return []kvstore.Item{item}, nil
}

func (h *handle) Delete(ctx context.Context, pk, sk string) error {
	if err := h.authorize(pk); err != nil {
		return err
	}

	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	delete(h.store.partitions[pk], sk)
	delete(h.store.index, sk)
	return nil
}

func (h *handle) Close() error {
	h.closed = true
	return nil
}

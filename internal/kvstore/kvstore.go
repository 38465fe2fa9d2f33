// Package kvstore defines the logical table contract the repositories are
// built on: a key-value store with composite primary keys, a partition scan,
// a cross-partition secondary index, and per-handle access scoping.
package kvstore

import (
	"context"
	"errors"
	"strings"
)

// Sentinel errors. Backends wrap these so callers can classify with errors.Is.
var (
	// ErrNotFound indicates a point lookup addressed a key with no row.
	ErrNotFound = errors.New("kvstore: item not found")

	// ErrAccessDenied indicates a query's key falls outside the scoped
	// handle's authorized partition. Never retried, never swallowed.
	ErrAccessDenied = errors.New("kvstore: access denied")

	// ErrUnavailable indicates a transient backend failure. Retryable by
	// the caller's policy; must not be masked as ErrNotFound.
	ErrUnavailable = errors.New("kvstore: backend unavailable")
)

// Item is the persisted row shape: the composite primary key (PK + SK),
// the entity-kind discriminator, and an opaque payload.
type Item struct {
	PK    string
	SK    string
	Kind  string
	Value []byte
}

// Handle is a storage handle whose authorization is bound to one user's
// partition at acquisition time. Every operation through it is restricted
// to that partition by the backend, not by repository filtering.
type Handle interface {
	// Put upserts one item. Last writer wins per (PK, SK).
	Put(ctx context.Context, item Item) error

	// Get is a point lookup by composite primary key.
	Get(ctx context.Context, pk, sk string) (Item, error)

	// Query scans every item in one partition.
	Query(ctx context.Context, pk string) ([]Item, error)

	// QueryIndex looks up items by sort key alone, across partitions.
	// A sort key owned by another partition fails with ErrAccessDenied,
	// never an empty result.
	QueryIndex(ctx context.Context, sk string) ([]Item, error)

	// Delete removes one item. Deleting a missing key is a no-op.
	Delete(ctx context.Context, pk, sk string) error

	// Close releases the handle. Must be called on every exit path.
	Close() error
}

// Provider issues partition-scoped handles. Handles are cheap, short-lived,
// and never shared across users.
type Provider interface {
	Scoped(ctx context.Context, userID string) (Handle, error)
}

// PartitionOf parses the owning partition out of a sort key. Sort keys are
// composed as "<user>#<kind marker>#<id>", so the owner is the leading
// segment; backends use this to reject cross-partition index queries before
// touching any row.
func PartitionOf(sk string) string {
	if i := strings.Index(sk, "#"); i >= 0 {
		return sk[:i]
	}
	return sk
}

package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
	"github.com/capitalize-ai/conversation-store/internal/kvstore/memory"
)

func item(pk, sk, kind, value string) kvstore.Item {
	return kvstore.Item{PK: pk, SK: sk, Kind: kind, Value: []byte(value)}
}

func TestPutGetDelete(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	handle, err := store.Scoped(ctx, "user1")
	require.NoError(t, err)
	defer handle.Close()

	want := item("user1", "user1#CONV#1", "conversation", `{"id":"1"}`)
	require.NoError(t, handle.Put(ctx, want))

	got, err := handle.Get(ctx, "user1", "user1#CONV#1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, handle.Delete(ctx, "user1", "user1#CONV#1"))

	_, err = handle.Get(ctx, "user1", "user1#CONV#1")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	// Deleting again is a no-op.
	assert.NoError(t, handle.Delete(ctx, "user1", "user1#CONV#1"))
}

func TestPutIsFullReplace(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	handle, err := store.Scoped(ctx, "user1")
	require.NoError(t, err)
	defer handle.Close()

	require.NoError(t, handle.Put(ctx, item("user1", "k", "conversation", "v1")))
	require.NoError(t, handle.Put(ctx, item("user1", "k", "conversation", "v2")))

	got, err := handle.Get(ctx, "user1", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Value)
}

func TestQueryReturnsWholePartition(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	handle, err := store.Scoped(ctx, "user1")
	require.NoError(t, err)
	defer handle.Close()

	require.NoError(t, handle.Put(ctx, item("user1", "user1#CONV#1", "conversation", "a")))
	require.NoError(t, handle.Put(ctx, item("user1", "user1#BOT#1", "bot", "b")))

	items, err := handle.Query(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestScopedHandleEnforcesPartition(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	owner, err := store.Scoped(ctx, "user2")
	require.NoError(t, err)
	defer owner.Close()
	require.NoError(t, owner.Put(ctx, item("user2", "user2#CONV#2", "conversation", "x")))

	intruder, err := store.Scoped(ctx, "user1")
	require.NoError(t, err)
	defer intruder.Close()

	_, err = intruder.Get(ctx, "user2", "user2#CONV#2")
	assert.ErrorIs(t, err, kvstore.ErrAccessDenied)

	_, err = intruder.Query(ctx, "user2")
	assert.ErrorIs(t, err, kvstore.ErrAccessDenied)

	_, err = intruder.QueryIndex(ctx, "user2#CONV#2")
	assert.ErrorIs(t, err, kvstore.ErrAccessDenied)

	err = intruder.Put(ctx, item("user2", "user2#CONV#3", "conversation", "y"))
	assert.ErrorIs(t, err, kvstore.ErrAccessDenied)

	err = intruder.Delete(ctx, "user2", "user2#CONV#2")
	assert.ErrorIs(t, err, kvstore.ErrAccessDenied)

	// A denied index query for a key that does not even exist is still a
	// denial, so tenants cannot probe for existence.
	_, err = intruder.QueryIndex(ctx, "user2#CONV#nope")
	assert.ErrorIs(t, err, kvstore.ErrAccessDenied)
}

func TestMissingRowInOwnPartitionIsNotFound(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	handle, err := store.Scoped(ctx, "user1")
	require.NoError(t, err)
	defer handle.Close()

	_, err = handle.Get(ctx, "user1", "user1#CONV#missing")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	assert.NotErrorIs(t, err, kvstore.ErrAccessDenied)

	items, err := handle.QueryIndex(ctx, "user1#CONV#missing")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIndexFollowsWrites(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	handle, err := store.Scoped(ctx, "user1")
	require.NoError(t, err)
	defer handle.Close()

	require.NoError(t, handle.Put(ctx, item("user1", "user1#CONV#1", "conversation", "v")))

	items, err := handle.QueryIndex(ctx, "user1#CONV#1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []byte("v"), items[0].Value)

	require.NoError(t, handle.Delete(ctx, "user1", "user1#CONV#1"))

	items, err = handle.QueryIndex(ctx, "user1#CONV#1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

package natskv

import (
	"context"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
)

func TestItemKeyMapping(t *testing.T) {
	// Keys must be deterministic and keep the partition as the leading
	// token so subject permissions can be granted per user.
	k1 := itemKey("user1", "user1#CONV#1")
	k2 := itemKey("user1", "user1#CONV#1")
	assert.Equal(t, k1, k2)
	assert.Equal(t, encodeSegment("user1")+".", k1[:len(encodeSegment("user1"))+1])

	// Distinct composite keys map to distinct bucket keys.
	assert.NotEqual(t, itemKey("user1", "user1#CONV#1"), itemKey("user1", "user1#BOT#1"))
	assert.NotEqual(t, itemKey("user1", "user1#CONV#1"), itemKey("user2", "user2#CONV#1"))
}

func TestEncodeSegmentAlphabet(t *testing.T) {
	// Raw ids may carry characters NATS KV keys reject; the encoded form
	// must not.
	for _, s := range []string{"user#with#hashes", "user with spaces", "日本語", "a.b.c", "*>"} {
		enc := encodeSegment(s)
		for _, r := range enc {
			valid := (r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7')
			assert.True(t, valid, "segment %q encoded to invalid rune %q", s, r)
		}
	}
}

func TestTranslateErr(t *testing.T) {
	assert.NoError(t, translateErr(nil))
	assert.ErrorIs(t, translateErr(jetstream.ErrKeyNotFound), kvstore.ErrNotFound)
	assert.ErrorIs(t, translateErr(nats.ErrPermissionViolation), kvstore.ErrAccessDenied)
	assert.ErrorIs(t, translateErr(nats.ErrAuthorization), kvstore.ErrAccessDenied)
	assert.ErrorIs(t, translateErr(nats.ErrTimeout), kvstore.ErrUnavailable)
	assert.ErrorIs(t, translateErr(nats.ErrConnectionClosed), kvstore.ErrUnavailable)
	assert.ErrorIs(t, translateErr(context.DeadlineExceeded), kvstore.ErrUnavailable)

	// Unknown errors pass through unchanged; in particular they are never
	// collapsed into not-found.
	opaque := fmt.Errorf("something else")
	assert.Equal(t, opaque, translateErr(opaque))
}

func TestHandleAuthorize(t *testing.T) {
	h := &handle{partition: "user1"}
	assert.NoError(t, h.authorize("user1"))
	assert.ErrorIs(t, h.authorize("user2"), kvstore.ErrAccessDenied)
}

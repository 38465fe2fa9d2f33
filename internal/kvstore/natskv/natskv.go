package natskv

import (
	"context"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
	"github.com/capitalize-ai/conversation-store/pkg/logger"
)

// Provider issues partition-scoped handles over one KV bucket.
type Provider struct {
	cfg    Config
	bucket jetstream.KeyValue
	logger *logger.Logger
}

// NewProvider creates a provider over an established bucket
// (see Client.EnsureBucket).
func NewProvider(bucket jetstream.KeyValue, cfg Config, log *logger.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		bucket: bucket,
		logger: log,
	}
}

// Scoped returns a handle bound to one user's partition. With a
// credentials directory configured, the handle rides a dedicated
// connection whose server-side permissions cover only that partition.
// Without one, the same policy is evaluated in the handle, which keeps
// development setups honest but is not a substitute for server
// enforcement in production.
func (p *Provider) Scoped(ctx context.Context, userID string) (kvstore.Handle, error) {
	if p.cfg.CredsDir == "" {
		return &handle{kv: p.bucket, partition: userID}, nil
	}

	credsFile := filepath.Join(p.cfg.CredsDir, userID+".creds")
	opts := append(baseOptions(p.cfg, p.logger), nats.UserCredentials(credsFile))

	nc, err := nats.Connect(p.cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial scoped connection: %w", translateErr(err))
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(ctx, p.cfg.Bucket)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to open KV bucket: %w", translateErr(err))
	}

	return &handle{kv: kv, partition: userID, conn: nc}, nil
}

type handle struct {
	kv        jetstream.KeyValue
	partition string

	// conn is set when the handle owns a dedicated scoped connection.
	conn *nats.Conn
}

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

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	if _, err := h.kv.Put(ctx, itemKey(item.PK, item.SK), data); err != nil {
		return translateErr(err)
	}
	return nil
}

func (h *handle) Get(ctx context.Context, pk, sk string) (kvstore.Item, error) {
	if err := h.authorize(pk); err != nil {
		return kvstore.Item{}, err
	}

	entry, err := h.kv.Get(ctx, itemKey(pk, sk))
	if err != nil {
		return kvstore.Item{}, translateErr(err)
	}

	var item kvstore.Item
	if err := json.Unmarshal(entry.Value(), &item); err != nil {
		return kvstore.Item{}, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item, nil
}

func (h *handle) Query(ctx context.Context, pk string) ([]kvstore.Item, error) {
	if err := h.authorize(pk); err != nil {
		return nil, err
	}
	return h.collect(ctx, encodeSegment(pk)+".>")
}

func (h *handle) QueryIndex(ctx context.Context, sk string) ([]kvstore.Item, error) {
	// The index path spans partitions; the policy is evaluated against
	// the owner encoded in the sort key before any key is read, so a
	// foreign sort key is denied rather than returned empty.
	if err := h.authorize(kvstore.PartitionOf(sk)); err != nil {
		return nil, err
	}
	return h.collect(ctx, "*."+encodeSegment(sk))
}

func (h *handle) Delete(ctx context.Context, pk, sk string) error {
	if err := h.authorize(pk); err != nil {
		return err
	}

	if err := h.kv.Delete(ctx, itemKey(pk, sk)); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return translateErr(err)
	}
	return nil
}

func (h *handle) Close() error {
	if h.conn != nil {
		h.conn.Close()
	}
	return nil
}

// collect drains the initial replay of a key watcher into a slice.
func (h *handle) collect(ctx context.Context, pattern string) ([]kvstore.Item, error) {
	watcher, err := h.kv.Watch(ctx, pattern, jetstream.IgnoreDeletes())
	if err != nil {
		return nil, translateErr(err)
	}
	defer watcher.Stop()

	var items []kvstore.Item
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", kvstore.ErrUnavailable, ctx.Err())
		case entry := <-watcher.Updates():
			// A nil entry marks the end of the initial replay.
			if entry == nil {
				return items, nil
			}
			var item kvstore.Item
			if err := json.Unmarshal(entry.Value(), &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal item: %w", err)
			}
			items = append(items, item)
		}
	}
}

var segmentEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// encodeSegment maps an arbitrary key segment onto the KV key alphabet.
// The mapping need not be reversible: stored values carry the full item,
// keys only have to be deterministic and collision-free.
func encodeSegment(s string) string {
	return segmentEncoding.EncodeToString([]byte(s))
}

// itemKey maps a composite primary key onto a bucket key. The partition
// stays the leading token so partition scans are wildcard watches and
// per-user subject permissions can be granted on "<partition>.>".
func itemKey(pk, sk string) string {
	return encodeSegment(pk) + "." + encodeSegment(sk)
}

func translateErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jetstream.ErrKeyNotFound):
		return kvstore.ErrNotFound
	case errors.Is(err, nats.ErrPermissionViolation), errors.Is(err, nats.ErrAuthorization):
		return fmt.Errorf("%w: %w", kvstore.ErrAccessDenied, err)
	case errors.Is(err, nats.ErrTimeout), errors.Is(err, nats.ErrNoResponders),
		errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", kvstore.ErrUnavailable, err)
	default:
		return err
	}
}

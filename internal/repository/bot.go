package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
	"github.com/capitalize-ai/conversation-store/internal/model"
	"github.com/capitalize-ai/conversation-store/pkg/logger"
)

// Bots is the repository for bot rows. Bot definitions are owned by the
// bot-management service; this layer stores them in the same partition as
// conversations and advances last_used_time as conversations are written.
type Bots struct {
	provider kvstore.Provider
	logger   *logger.Logger
	tracer   trace.Tracer
}

// NewBots creates a bot repository.
func NewBots(provider kvstore.Provider, log *logger.Logger) *Bots {
	return &Bots{
		provider: provider,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
}

// Store upserts a bot row.
func (r *Bots) Store(ctx context.Context, userID string, bot *model.Bot) (err error) {
	ctx, span := r.tracer.Start(ctx, "Bots.Store")
	defer span.End()
	start := time.Now()
	defer func() { observe("store_bot", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	item, err := encodeBot(userID, bot)
	if err != nil {
		return err
	}
	if err = handle.Put(ctx, item); err != nil {
		return fmt.Errorf("writing bot: %w", err)
	}
	return nil
}

// FindByID returns one bot by primary key.
func (r *Bots) FindByID(ctx context.Context, userID, botID string) (_ *model.Bot, err error) {
	ctx, span := r.tracer.Start(ctx, "Bots.FindByID")
	defer span.End()
	start := time.Now()
	defer func() { observe("find_bot_by_id", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	item, err := handle.Get(ctx, userID, botSK(userID, botID))
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return decodeBot(item)
}

// FindByUserID returns every bot in the user's partition, most recently
// used first. Conversation rows are filtered out by kind marker.
func (r *Bots) FindByUserID(ctx context.Context, userID string) (_ []*model.Bot, err error) {
	ctx, span := r.tracer.Start(ctx, "Bots.FindByUserID")
	defer span.End()
	start := time.Now()
	defer func() { observe("find_bot_by_user_id", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	items, err := handle.Query(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("scanning partition: %w", err)
	}

	bots := make([]*model.Bot, 0, len(items))
	for _, item := range items {
		if item.Kind != KindBot {
			continue
		}
		bot, derr := decodeBot(item)
		if derr != nil {
			return nil, derr
		}
		bots = append(bots, bot)
	}

	sort.Slice(bots, func(i, j int) bool {
		return bots[i].LastUsedTime > bots[j].LastUsedTime
	})
	return bots, nil
}

// DeleteByID removes one bot row. Deleting a missing id is a no-op.
func (r *Bots) DeleteByID(ctx context.Context, userID, botID string) (err error) {
	ctx, span := r.tracer.Start(ctx, "Bots.DeleteByID")
	defer span.End()
	start := time.Now()
	defer func() { observe("delete_bot_by_id", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	if err = handle.Delete(ctx, userID, botSK(userID, botID)); err != nil {
		return fmt.Errorf("deleting bot: %w", err)
	}
	return nil
}

// TouchLastUsed sets the bot's last_used_time to now, strictly greater
// than its previous value. Returns ErrRecordNotFound when the bot does
// not exist; the caller decides whether that is fatal.
func (r *Bots) TouchLastUsed(ctx context.Context, userID, botID string) (err error) {
	ctx, span := r.tracer.Start(ctx, "Bots.TouchLastUsed")
	defer span.End()
	start := time.Now()
	defer func() { observe("touch_bot_last_used", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	item, err := handle.Get(ctx, userID, botSK(userID, botID))
	if err != nil {
		return mapLookupErr(err)
	}
	bot, err := decodeBot(item)
	if err != nil {
		return err
	}

	now := nowSeconds()
	// Clock skew or a same-tick double write must still advance the value.
	if now <= bot.LastUsedTime {
		now = bot.LastUsedTime + 1e-6
	}
	bot.LastUsedTime = now

	updated, err := encodeBot(userID, bot)
	if err != nil {
		return err
	}
	if err = handle.Put(ctx, updated); err != nil {
		return fmt.Errorf("writing bot: %w", err)
	}
	return nil
}

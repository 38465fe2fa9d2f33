package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
	"github.com/capitalize-ai/conversation-store/internal/model"
	"github.com/capitalize-ai/conversation-store/pkg/logger"
	"github.com/capitalize-ai/conversation-store/pkg/metrics"
)

// Conversations is the repository for conversation rows.
type Conversations struct {
	provider kvstore.Provider
	bots     *Bots
	logger   *logger.Logger
	tracer   trace.Tracer
}

// NewConversations creates a conversation repository. The bot repository is
// used only for the best-effort last-used side effect.
func NewConversations(provider kvstore.Provider, bots *Bots, log *logger.Logger) *Conversations {
	return &Conversations{
		provider: provider,
		bots:     bots,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}
}

// Store upserts a conversation row: insert if the id is absent, full replace
// if present (last writer wins; no merge of message maps is attempted).
// A missing id is generated. When the conversation references a bot, the
// bot's last-used time is updated as part of the same logical operation;
// the conversation write is authoritative and the bot-usage update is
// best-effort, so callers must not assume atomicity across the two.
func (r *Conversations) Store(ctx context.Context, userID string, conv *model.Conversation) (err error) {
	ctx, span := r.tracer.Start(ctx, "Conversations.Store")
	defer span.End()
	start := time.Now()
	defer func() { observe("store_conversation", start, err) }()

	if conv.ID == "" {
		conv.ID = model.NewConversationID()
	}
	if err = validateTree(conv); err != nil {
		return err
	}

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	item, err := encodeConversation(userID, conv)
	if err != nil {
		return err
	}
	if err = handle.Put(ctx, item); err != nil {
		return fmt.Errorf("writing conversation: %w", err)
	}
	metrics.ConversationsStored.Inc()

	if conv.BotID != "" {
		r.touchBotUsage(ctx, userID, conv.BotID)
	}
	return nil
}

// touchBotUsage runs the bot last-used side effect. Failures are contained
// here: the enclosing conversation write has already succeeded.
func (r *Conversations) touchBotUsage(ctx context.Context, userID, botID string) {
	err := r.bots.TouchLastUsed(ctx, userID, botID)
	switch {
	case err == nil:
		metrics.RecordBotUsage("ok")
	case errors.Is(err, ErrRecordNotFound):
		// Expected when the bot was deleted out from under the conversation.
		metrics.RecordBotUsage("missing")
		r.logger.Debug("bot missing for last-used update",
			zap.String("user_id", userID),
			zap.String("bot_id", botID),
		)
	default:
		metrics.RecordBotUsage("error")
		r.logger.Warn("bot last-used update failed",
			zap.String("user_id", userID),
			zap.String("bot_id", botID),
			zap.Error(err),
		)
	}
}

// FindByID returns one conversation by primary key.
func (r *Conversations) FindByID(ctx context.Context, userID, conversationID string) (_ *model.Conversation, err error) {
	ctx, span := r.tracer.Start(ctx, "Conversations.FindByID")
	defer span.End()
	start := time.Now()
	defer func() { observe("find_conversation_by_id", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	item, err := handle.Get(ctx, userID, conversationSK(userID, conversationID))
	if err != nil {
		return nil, mapLookupErr(err)
	}
	return decodeConversation(item)
}

// FindByUserID returns every conversation in the user's partition, newest
// first. Bot rows co-located in the partition are filtered out by their
// kind marker here, not by the store.
func (r *Conversations) FindByUserID(ctx context.Context, userID string) (_ []*model.Conversation, err error) {
	ctx, span := r.tracer.Start(ctx, "Conversations.FindByUserID")
	defer span.End()
	start := time.Now()
	defer func() { observe("find_conversation_by_user_id", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	items, err := handle.Query(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("scanning partition: %w", err)
	}

	conversations := make([]*model.Conversation, 0, len(items))
	for _, item := range items {
		if item.Kind != KindConversation {
			continue
		}
		conv, derr := decodeConversation(item)
		if derr != nil {
			return nil, derr
		}
		conversations = append(conversations, conv)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].CreateTime > conversations[j].CreateTime
	})
	return conversations, nil
}

// ChangeTitle updates only the title of an existing conversation. The
// message map, last message pointer, bot reference, and timestamps are
// left untouched.
func (r *Conversations) ChangeTitle(ctx context.Context, userID, conversationID, newTitle string) (err error) {
	ctx, span := r.tracer.Start(ctx, "Conversations.ChangeTitle")
	defer span.End()
	start := time.Now()
	defer func() { observe("change_conversation_title", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	item, err := handle.Get(ctx, userID, conversationSK(userID, conversationID))
	if err != nil {
		return mapLookupErr(err)
	}
	conv, err := decodeConversation(item)
	if err != nil {
		return err
	}

	conv.Title = newTitle
	updated, err := encodeConversation(userID, conv)
	if err != nil {
		return err
	}
	if err = handle.Put(ctx, updated); err != nil {
		return fmt.Errorf("writing conversation: %w", err)
	}
	return nil
}

// DeleteByID removes one conversation row. Deleting a missing id is a
// no-op; subsequent lookups fail with ErrRecordNotFound either way.
func (r *Conversations) DeleteByID(ctx context.Context, userID, conversationID string) (err error) {
	ctx, span := r.tracer.Start(ctx, "Conversations.DeleteByID")
	defer span.End()
	start := time.Now()
	defer func() { observe("delete_conversation_by_id", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	if err = handle.Delete(ctx, userID, conversationSK(userID, conversationID)); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// DeleteByUserID removes every conversation row in the user's partition.
// Bot rows in the same partition are untouched.
func (r *Conversations) DeleteByUserID(ctx context.Context, userID string) (err error) {
	ctx, span := r.tracer.Start(ctx, "Conversations.DeleteByUserID")
	defer span.End()
	start := time.Now()
	defer func() { observe("delete_conversation_by_user_id", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	items, err := handle.Query(ctx, userID)
	if err != nil {
		return fmt.Errorf("scanning partition: %w", err)
	}
	for _, item := range items {
		if item.Kind != KindConversation {
			continue
		}
		if err = handle.Delete(ctx, item.PK, item.SK); err != nil {
			return fmt.Errorf("deleting conversation: %w", err)
		}
	}
	return nil
}

// FindByIDViaIndex looks a conversation up through the secondary index,
// by id alone. Reserved for internal/administrative use; the index is
// still access-scoped, so a conversation owned by a different user fails
// with kvstore.ErrAccessDenied rather than appearing absent.
func (r *Conversations) FindByIDViaIndex(ctx context.Context, userID, conversationID string) (_ *model.Conversation, err error) {
	ctx, span := r.tracer.Start(ctx, "Conversations.FindByIDViaIndex")
	defer span.End()
	start := time.Now()
	defer func() { observe("find_conversation_via_index", start, err) }()

	handle, err := r.provider.Scoped(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acquiring scoped handle: %w", err)
	}
	defer handle.Close()

	items, err := handle.QueryIndex(ctx, conversationSK(userID, conversationID))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrRecordNotFound
	}
	return decodeConversation(items[0])
}

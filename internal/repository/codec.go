package repository

import (
	"encoding/json"
	"fmt"

	"github.com/capitalize-ai/conversation-store/internal/kvstore"
	"github.com/capitalize-ai/conversation-store/internal/model"
)

// The codec converts between the in-memory tree representation and the flat
// item the table stores: the whole message map rides in one serialized value
// per row, with parent/children held as id references. It performs no tree
// validation; that happens at write time in the repository.

// encodeConversation serializes a conversation into its persisted row.
func encodeConversation(userID string, conv *model.Conversation) (kvstore.Item, error) {
	payload, err := json.Marshal(conv)
	if err != nil {
		return kvstore.Item{}, fmt.Errorf("marshaling conversation: %w", err)
	}
	return kvstore.Item{
		PK:    userID,
		SK:    conversationSK(userID, conv.ID),
		Kind:  KindConversation,
		Value: payload,
	}, nil
}

// decodeConversation reconstructs a conversation from its persisted row.
func decodeConversation(item kvstore.Item) (*model.Conversation, error) {
	var conv model.Conversation
	if err := json.Unmarshal(item.Value, &conv); err != nil {
		return nil, fmt.Errorf("unmarshaling conversation: %w", err)
	}
	return &conv, nil
}

// encodeBot serializes a bot into its persisted row.
func encodeBot(userID string, bot *model.Bot) (kvstore.Item, error) {
	payload, err := json.Marshal(bot)
	if err != nil {
		return kvstore.Item{}, fmt.Errorf("marshaling bot: %w", err)
	}
	return kvstore.Item{
		PK:    userID,
		SK:    botSK(userID, bot.ID),
		Kind:  KindBot,
		Value: payload,
	}, nil
}

// decodeBot reconstructs a bot from its persisted row.
func decodeBot(item kvstore.Item) (*model.Bot, error) {
	var bot model.Bot
	if err := json.Unmarshal(item.Value, &bot); err != nil {
		return nil, fmt.Errorf("unmarshaling bot: %w", err)
	}
	return &bot, nil
}

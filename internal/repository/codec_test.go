package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/conversation-store/internal/model"
)

func TestConversationRoundTrip(t *testing.T) {
	conv := &model.Conversation{
		ID:         "conv-1",
		Title:      "Branching chat",
		CreateTime: 1627984879.9,
		MessageMap: map[string]model.MessageNode{
			"root": {
				Role:       model.RoleSystem,
				Content:    []model.Content{{ContentType: "text", Body: "You are helpful"}},
				Children:   []string{"q1"},
				CreateTime: 1627984879.9,
			},
			"q1": {
				Role:       model.RoleUser,
				Content:    []model.Content{{ContentType: "text", Body: "Hello"}},
				Parent:     "root",
				Children:   []string{"a1", "a2"},
				CreateTime: 1627984880.0,
			},
			// Two siblings: a regenerated answer branches the tree.
			"a1": {
				Role:       model.RoleAssistant,
				Content:    []model.Content{{ContentType: "text", Body: "Hi"}},
				Model:      "claude-3",
				Parent:     "q1",
				CreateTime: 1627984881.0,
			},
			"a2": {
				Role: model.RoleAssistant,
				Content: []model.Content{
					{ContentType: "text", Body: "Hello there"},
					{ContentType: "attachment", Body: "ZmlsZQ=="},
				},
				Model:      "claude-3",
				Parent:     "q1",
				CreateTime: 1627984882.5,
			},
		},
		LastMessageID: "a2",
		BotID:         "bot-7",
	}

	item, err := encodeConversation("user", conv)
	require.NoError(t, err)
	assert.Equal(t, "user", item.PK)
	assert.Equal(t, "user#CONV#conv-1", item.SK)
	assert.Equal(t, KindConversation, item.Kind)

	decoded, err := decodeConversation(item)
	require.NoError(t, err)
	assert.Equal(t, conv, decoded)
}

func TestConversationRoundTripWithoutBot(t *testing.T) {
	conv := &model.Conversation{
		ID:         "conv-2",
		Title:      "Plain",
		CreateTime: 1.5,
		MessageMap: map[string]model.MessageNode{
			"m": {
				Role:       model.RoleUser,
				Content:    []model.Content{{ContentType: "text", Body: "hi"}},
				CreateTime: 1.5,
			},
		},
		LastMessageID: "m",
	}

	item, err := encodeConversation("user", conv)
	require.NoError(t, err)

	decoded, err := decodeConversation(item)
	require.NoError(t, err)
	assert.Equal(t, conv, decoded)
	assert.Empty(t, decoded.BotID)
}

func TestBotRoundTrip(t *testing.T) {
	bot := &model.Bot{
		ID:           "bot-1",
		Title:        "Helper",
		Instruction:  "Be terse",
		Description:  "A terse helper",
		CreateTime:   1627984879.9,
		LastUsedTime: 1627984999.1,
	}

	item, err := encodeBot("user", bot)
	require.NoError(t, err)
	assert.Equal(t, "user", item.PK)
	assert.Equal(t, "user#BOT#bot-1", item.SK)
	assert.Equal(t, KindBot, item.Kind)

	decoded, err := decodeBot(item)
	require.NoError(t, err)
	assert.Equal(t, bot, decoded)
}

func TestDecodeCorruptPayload(t *testing.T) {
	item, err := encodeConversation("user", &model.Conversation{ID: "c"})
	require.NoError(t, err)
	item.Value = []byte("{not json")

	_, err = decodeConversation(item)
	assert.Error(t, err)
}

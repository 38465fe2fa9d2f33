// Package model defines data structures for the conversation store.
package model

import (
	"github.com/google/uuid"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Content is one part of a message body. Messages hold an ordered
// sequence of parts so attachments can ride alongside text.
type Content struct {
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// MessageNode is one node of a branching conversation tree. Children are
// ordered; regenerating a response appends a sibling to the parent's
// children rather than replacing anything.
type MessageNode struct {
	Role       Role      `json:"role"`
	Content    []Content `json:"content"`
	Model      string    `json:"model"`
	Children   []string  `json:"children"`
	Parent     string    `json:"parent"`
	CreateTime float64   `json:"create_time"`
}

// IsRoot reports whether the node is the root of the tree. The empty
// parent id is the root sentinel.
func (n MessageNode) IsRoot() bool {
	return n.Parent == ""
}

// Conversation is a branching message tree plus the pointer to the tip of
// the currently displayed branch. MessageMap key order carries no meaning;
// the tree is reconstructed from parent/children links.
type Conversation struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	CreateTime    float64                `json:"create_time"`
	MessageMap    map[string]MessageNode `json:"message_map"`
	LastMessageID string                 `json:"last_message_id"`
	BotID         string                 `json:"bot_id,omitempty"`
}

// NewConversationID generates a fresh conversation id.
func NewConversationID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewMessageID generates a fresh message id.
func NewMessageID() string {
	return uuid.Must(uuid.NewV7()).String()
}

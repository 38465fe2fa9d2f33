package repository

import (
	"fmt"

	"github.com/capitalize-ai/conversation-store/internal/model"
)

// validateTree checks the tree invariants before a conversation row is
// written: every children entry and every non-root parent must exist in the
// message map, parent links must be acyclic, and last_message_id must
// reference an existing node whenever the map is non-empty.
func validateTree(conv *model.Conversation) error {
	mm := conv.MessageMap
	if len(mm) == 0 {
		if conv.LastMessageID != "" {
			return fmt.Errorf("%w: last_message_id %q references an empty message map", ErrInvalidTree, conv.LastMessageID)
		}
		return nil
	}

	if _, ok := mm[conv.LastMessageID]; !ok {
		return fmt.Errorf("%w: last_message_id %q not in message map", ErrInvalidTree, conv.LastMessageID)
	}

	for id, node := range mm {
		for _, child := range node.Children {
			if _, ok := mm[child]; !ok {
				return fmt.Errorf("%w: node %q references missing child %q", ErrInvalidTree, id, child)
			}
		}
		if !node.IsRoot() {
			if _, ok := mm[node.Parent]; !ok {
				return fmt.Errorf("%w: node %q references missing parent %q", ErrInvalidTree, id, node.Parent)
			}
		}
	}

	// Walk parent links from every node; a walk longer than the map has a cycle.
	for id := range mm {
		cur := id
		for steps := 0; !mm[cur].IsRoot(); steps++ {
			if steps > len(mm) {
				return fmt.Errorf("%w: cycle through node %q", ErrInvalidTree, id)
			}
			cur = mm[cur].Parent
		}
	}

	return nil
}

package repository

// Entity-kind discriminators carried on every persisted row.
const (
	KindConversation = "conversation"
	KindBot          = "bot"
)

// Sort keys embed the owning partition, a kind marker, and the entity id.
// The composition is deterministic and collision-free across distinct
// (user, id) pairs: the markers differ per kind and the user segment keeps
// equal ids under different users apart. The same value serves as the
// secondary index key, so an id-only lookup still names its partition.
const (
	convMarker = "#CONV#"
	botMarker  = "#BOT#"
)

// conversationSK composes the sort key for a conversation row.
func conversationSK(userID, conversationID string) string {
	return userID + convMarker + conversationID
}

// botSK composes the sort key for a bot row.
func botSK(userID, botID string) string {
	return userID + botMarker + botID
}

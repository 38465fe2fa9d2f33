package model

// Bot is the slice of a bot definition this layer touches. Bot CRUD is
// owned elsewhere; the conversation store only reads bots and advances
// LastUsedTime when a conversation referencing the bot is written.
type Bot struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Instruction  string  `json:"instruction"`
	Description  string  `json:"description"`
	CreateTime   float64 `json:"create_time"`
	LastUsedTime float64 `json:"last_used_time"`
}

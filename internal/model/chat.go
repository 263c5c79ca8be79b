package model

import "time"

// ChatMessage mirrors the `chat_messages` table. Messages are immutable once
// stored and are listed in insertion order, which is also timestamp order.
type ChatMessage struct {
	ID        uint64    `json:"id,omitempty"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

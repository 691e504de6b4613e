package models

import (
	"time"
)

// Message author tags relative to the requesting user. The rendering layer
// keys off these instead of comparing raw sender ids.
const (
	AuthorMe    = "me"
	AuthorOther = "other"
)

// Message is an append-only chat message. IDs are assigned by a sequence and
// strictly increase within a conversation, which lets read watermarks and
// unread counts work off a simple id comparison.
type Message struct {
	ID             int64     `json:"id" db:"id"`
	ConversationID int64     `json:"conversationId" db:"conversation_id"`
	SenderID       int64     `json:"senderId" db:"sender_id"`
	Content        string    `json:"content" db:"content"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// MessageView is a message decorated for the thread view.
type MessageView struct {
	Message
	Author string       `json:"author"`
	Sender *Participant `json:"sender,omitempty"`
}

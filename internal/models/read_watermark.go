package models

import (
	"time"
)

// ReadWatermark records the highest message a user has acknowledged in a
// conversation. One row per (user, conversation), created lazily on the first
// read-mark. A nil MessageID means the row exists but nothing has been read.
//
// Invariant: once non-nil, MessageID never moves backward.
type ReadWatermark struct {
	UserID         int64      `json:"userId" db:"user_id"`
	ConversationID int64      `json:"conversationId" db:"conversation_id"`
	MessageID      *int64     `json:"messageId" db:"message_id"`
	ReadAt         *time.Time `json:"readAt" db:"read_at"`
}

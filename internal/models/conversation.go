package models

import (
	"time"
)

// Conversation is the stored metadata for a chat thread. Name and AvatarURL
// are nullable on purpose: for a two-party thread both are derived from the
// counterpart user at read time and the column values are never exposed.
type Conversation struct {
	ID        int64      `json:"id" db:"id"`
	Name      *string    `json:"name" db:"name"`
	AvatarURL *string    `json:"avatarUrl" db:"avatar_url"`
	CreatedAt time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// IsDeleted reports whether the conversation has been soft-deleted. Deleted
// conversations disappear from listings but stay readable by participants.
func (c *Conversation) IsDeleted() bool {
	return c.DeletedAt != nil
}

// ConversationSummary is the list-view shape: stored metadata (with the
// two-party identity override already applied) plus the participant list,
// the most recent message and the caller's unread count.
type ConversationSummary struct {
	Conversation
	Users       []*Participant `json:"users"`
	LastMessage *Message       `json:"lastMessage"`
	UnreadCount int            `json:"unreadCount"`
}

// ConversationDetail is the thread view: participants plus every message,
// newest first, each tagged relative to the requesting user.
type ConversationDetail struct {
	Conversation
	Users    []*Participant `json:"users"`
	Messages []*MessageView `json:"messages"`
}

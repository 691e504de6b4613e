package models

import (
	"time"
)

// User is a row in the user directory. The conversation core treats the
// directory as read-only; profile mutation lives in another service.
type User struct {
	ID             int64      `json:"id" db:"id"`
	Username       string     `json:"username" db:"username"`
	Email          string     `json:"-" db:"email"`
	HashedPassword string     `json:"-" db:"password_hash"`
	FullName       string     `json:"fullName" db:"full_name"`
	AvatarURL      *string    `json:"avatarUrl" db:"avatar_url"`
	Title          *string    `json:"title,omitempty" db:"title"`
	Bio            *string    `json:"bio,omitempty" db:"bio"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty" db:"updated_at"`
}

// Participant is the restricted projection of a user that conversation
// responses expose. Nothing sensitive (email, password hash) leaves the core.
type Participant struct {
	ID        int64   `json:"id" db:"id"`
	FullName  string  `json:"fullName" db:"full_name"`
	AvatarURL *string `json:"avatarUrl" db:"avatar_url"`
	Username  string  `json:"username" db:"username"`
}

// AsParticipant narrows a directory user down to the exposed field set.
func (u *User) AsParticipant() *Participant {
	return &Participant{
		ID:        u.ID,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		Username:  u.Username,
	}
}

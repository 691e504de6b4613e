// internal/database/postgres.go
package database

import (
	"context"
	"errors"
	"log"
	"time"

	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// UserStore exposes the read-only slice of the user directory the
// conversation core needs: participant identity resolution.
type UserStore interface {
	// GetUsersByIDs returns the users matching ids, ordered by id ascending.
	// Unknown ids are silently skipped.
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
	// GetUserByKey looks a user up by numeric id or username.
	GetUserByKey(ctx context.Context, key string) (*models.User, error)
}

// ConversationStore persists conversation metadata.
type ConversationStore interface {
	// CreateConversation inserts the conversation and its participant rows in
	// one transaction. Duplicate participant rows are ignored.
	CreateConversation(ctx context.Context, conv *models.Conversation, participantIDs []int64) error
	GetConversation(ctx context.Context, id int64) (*models.Conversation, error)
	// GetConversationsByParticipant lists non-deleted conversations the user
	// belongs to, most recently active first.
	GetConversationsByParticipant(ctx context.Context, userID int64) ([]*models.Conversation, error)
	// FindConversationsWithAny returns ids of conversations having at least
	// one participant among userIDs.
	FindConversationsWithAny(ctx context.Context, userIDs []int64) ([]int64, error)
	UpdateConversation(ctx context.Context, id int64, upd ConversationUpdate) error
	// SoftDeleteConversation stamps deleted_at. Calling it again re-stamps;
	// it never fails on an already-deleted conversation.
	SoftDeleteConversation(ctx context.Context, id int64) error
}

// ConversationUpdate is a partial metadata update. Nil fields are left as-is.
type ConversationUpdate struct {
	Name      *string
	AvatarURL *string
}

// ParticipantStore persists conversation membership edges.
type ParticipantStore interface {
	// AddParticipants bulk-inserts membership rows, ignoring duplicates.
	AddParticipants(ctx context.Context, conversationID int64, userIDs []int64) error
	IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error)
	GetParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error)
	// GetParticipants joins membership against the user directory and returns
	// the restricted participant projection, ordered by user id.
	GetParticipants(ctx context.Context, conversationID int64) ([]*models.Participant, error)
}

// MessageStore persists the append-only message log.
type MessageStore interface {
	// SaveMessage appends the message and bumps the conversation's updated_at
	// so recent-activity ordering stays correct.
	SaveMessage(ctx context.Context, msg *models.Message) error
	// GetConversationMessages returns every message, newest first.
	GetConversationMessages(ctx context.Context, conversationID int64) ([]*models.Message, error)
	// GetLatestMessage returns the newest message, or nil when there is none.
	GetLatestMessage(ctx context.Context, conversationID int64) (*models.Message, error)
	// CountMessagesAfter counts messages with id strictly greater than
	// afterID. Passing 0 counts every message.
	CountMessagesAfter(ctx context.Context, conversationID, afterID int64) (int, error)
}

// ReadWatermarkStore persists per-user read progress.
type ReadWatermarkStore interface {
	// GetWatermark returns nil (no error) when the user has no row yet.
	GetWatermark(ctx context.Context, userID, conversationID int64) (*models.ReadWatermark, error)
	// AdvanceWatermark upserts the watermark in a single conditional
	// statement: the stored message id only ever moves forward. A call with a
	// smaller or equal message id is a silent no-op.
	AdvanceWatermark(ctx context.Context, userID, conversationID, messageID int64, readAt time.Time) error
}

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sqlx.Connect("postgres", connectionString)
	if err != nil {
		return nil, utils.NewUnavailableError("failed to connect to PostgreSQL", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, utils.NewUnavailableError("failed to ping PostgreSQL", err)
	}

	return &PostgresDB{DB: db}, nil
}

// Close closes the database connection
func (p *PostgresDB) Close(ctx context.Context) error {
	log.Println("Closing PostgreSQL connection...")
	return p.DB.Close()
}

// InitializeTables creates all necessary tables if they don't exist
func (p *PostgresDB) InitializeTables(ctx context.Context) error {
	// Users table (directory; this core only reads it, the seeder writes it)
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(100) NOT NULL,
			full_name VARCHAR(100) NOT NULL,
			avatar_url VARCHAR(255),
			title VARCHAR(100),
			bio TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return utils.NewDatabaseError("failed to create users table", err)
	}

	// Conversations table
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255),
			avatar_url VARCHAR(255),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			deleted_at TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return utils.NewDatabaseError("failed to create conversations table", err)
	}

	// Membership edges
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversation_participants (
			conversation_id BIGINT REFERENCES conversations(id),
			user_id BIGINT REFERENCES users(id),
			joined_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (conversation_id, user_id)
		)
	`)
	if err != nil {
		return utils.NewDatabaseError("failed to create conversation_participants table", err)
	}

	// Messages table. The BIGSERIAL id doubles as the ordering/watermark
	// surrogate, so it must stay monotonic.
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			conversation_id BIGINT NOT NULL REFERENCES conversations(id),
			sender_id BIGINT REFERENCES users(id),
			content TEXT NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return utils.NewDatabaseError("failed to create messages table", err)
	}

	// Read watermarks: one row per (user, conversation)
	_, err = p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS message_reads (
			user_id BIGINT REFERENCES users(id),
			conversation_id BIGINT REFERENCES conversations(id),
			message_id BIGINT,
			read_at TIMESTAMP WITH TIME ZONE,
			PRIMARY KEY (user_id, conversation_id)
		)
	`)
	if err != nil {
		return utils.NewDatabaseError("failed to create message_reads table", err)
	}

	return nil
}

// storeError wraps a driver error into the app taxonomy. Deadline and
// cancellation failures surface as retryable UNAVAILABLE, everything else as
// a generic database error.
func storeError(message string, err error) *utils.AppError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return utils.NewUnavailableError(message, err)
	}
	return utils.NewDatabaseError(message, err)
}

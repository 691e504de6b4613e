package database

import (
	"context"
	"database/sql"
	"time"

	"lilypad/internal/models"
)

// SaveMessage appends a message and bumps the conversation's updated_at in
// the same transaction, so recent-activity ordering tracks message traffic.
func (p *PostgresDB) SaveMessage(ctx context.Context, msg *models.Message) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return storeError("failed to begin transaction for save message", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	insertQuery := `
		INSERT INTO messages (conversation_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if err = tx.QueryRowxContext(ctx, insertQuery, msg.ConversationID, msg.SenderID, msg.Content, msg.CreatedAt).Scan(&msg.ID); err != nil {
		return storeError("failed to insert message", err)
	}

	touchQuery := `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
	if _, err = tx.ExecContext(ctx, touchQuery, msg.ConversationID); err != nil {
		return storeError("failed to touch conversation activity", err)
	}

	if err = tx.Commit(); err != nil {
		return storeError("failed to commit save message", err)
	}
	return nil
}

// GetConversationMessages returns every message in the conversation, newest
// first. The id tiebreak keeps ordering stable for same-timestamp messages.
func (p *PostgresDB) GetConversationMessages(ctx context.Context, conversationID int64) ([]*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
	`
	messages := []*models.Message{}
	if err := p.DB.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, storeError("failed to query conversation messages", err)
	}
	return messages, nil
}

// GetLatestMessage returns the newest message, or nil when the conversation
// has none yet.
func (p *PostgresDB) GetLatestMessage(ctx context.Context, conversationID int64) (*models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var msg models.Message
	err := p.DB.GetContext(ctx, &msg, query, conversationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeError("failed to query latest message", err)
	}
	return &msg, nil
}

// CountMessagesAfter counts messages with id strictly greater than afterID.
// Message ids start at 1, so afterID = 0 counts the whole conversation.
func (p *PostgresDB) CountMessagesAfter(ctx context.Context, conversationID, afterID int64) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE conversation_id = $1 AND id > $2`
	var count int
	if err := p.DB.GetContext(ctx, &count, query, conversationID, afterID); err != nil {
		return 0, storeError("failed to count unread messages", err)
	}
	return count, nil
}

package database

import (
	"context"
	"database/sql"
	"time"

	"lilypad/internal/models"
)

// GetWatermark fetches the caller's read watermark for a conversation.
// Returns nil with no error when no row exists yet.
func (p *PostgresDB) GetWatermark(ctx context.Context, userID, conversationID int64) (*models.ReadWatermark, error) {
	query := `
		SELECT user_id, conversation_id, message_id, read_at
		FROM message_reads
		WHERE user_id = $1 AND conversation_id = $2
	`
	var wm models.ReadWatermark
	err := p.DB.GetContext(ctx, &wm, query, userID, conversationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeError("failed to query read watermark", err)
	}
	return &wm, nil
}

// AdvanceWatermark upserts the watermark in one conditional statement. The
// WHERE guard on the conflict branch makes the advance monotonic and safe
// under concurrency: a stale or duplicate call simply updates zero rows.
func (p *PostgresDB) AdvanceWatermark(ctx context.Context, userID, conversationID, messageID int64, readAt time.Time) error {
	query := `
		INSERT INTO message_reads (user_id, conversation_id, message_id, read_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, conversation_id) DO UPDATE
		SET message_id = EXCLUDED.message_id, read_at = EXCLUDED.read_at
		WHERE message_reads.message_id IS NULL OR message_reads.message_id < EXCLUDED.message_id
	`
	if _, err := p.DB.ExecContext(ctx, query, userID, conversationID, messageID, readAt); err != nil {
		return storeError("failed to advance read watermark", err)
	}
	return nil
}

package database

import (
	"context"

	"lilypad/internal/models"
)

// AddParticipants bulk-inserts membership rows for the conversation,
// silently ignoring pairs that already exist.
func (p *PostgresDB) AddParticipants(ctx context.Context, conversationID int64, userIDs []int64) error {
	query := `
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`
	for _, userID := range userIDs {
		if _, err := p.DB.ExecContext(ctx, query, conversationID, userID); err != nil {
			return storeError("failed to add conversation participant", err)
		}
	}
	return nil
}

// IsParticipant reports whether a membership row exists for the pair.
func (p *PostgresDB) IsParticipant(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)`
	var exists bool
	if err := p.DB.GetContext(ctx, &exists, query, conversationID, userID); err != nil {
		return false, storeError("failed to check conversation membership", err)
	}
	return exists, nil
}

// GetParticipantIDs returns the full participant-id set for a conversation.
func (p *PostgresDB) GetParticipantIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	query := `SELECT user_id FROM conversation_participants WHERE conversation_id = $1 ORDER BY user_id ASC`
	ids := []int64{}
	if err := p.DB.SelectContext(ctx, &ids, query, conversationID); err != nil {
		return nil, storeError("failed to query participant ids", err)
	}
	return ids, nil
}

// GetParticipants joins membership against the user directory, returning only
// the restricted field set conversation responses expose.
func (p *PostgresDB) GetParticipants(ctx context.Context, conversationID int64) ([]*models.Participant, error) {
	query := `
		SELECT u.id, u.full_name, u.avatar_url, u.username
		FROM users u
		JOIN conversation_participants cp ON cp.user_id = u.id
		WHERE cp.conversation_id = $1
		ORDER BY u.id ASC
	`
	participants := []*models.Participant{}
	if err := p.DB.SelectContext(ctx, &participants, query, conversationID); err != nil {
		return nil, storeError("failed to query conversation participants", err)
	}
	return participants, nil
}

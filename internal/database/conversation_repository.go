package database

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/jmoiron/sqlx"
)

// CreateConversation inserts the conversation and its participant rows in a
// single transaction, so a conversation never exists without its members.
func (p *PostgresDB) CreateConversation(ctx context.Context, conv *models.Conversation, participantIDs []int64) error {
	tx, err := p.DB.BeginTxx(ctx, nil)
	if err != nil {
		return storeError("failed to begin transaction for create conversation", err)
	}
	defer tx.Rollback() // Rollback is ignored if tx is committed.

	now := time.Now()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = conv.CreatedAt

	convQuery := `
		INSERT INTO conversations (name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`
	if err = tx.QueryRowxContext(ctx, convQuery, conv.Name, conv.AvatarURL, conv.CreatedAt).Scan(&conv.ID); err != nil {
		return storeError("failed to insert conversation", err)
	}

	memberQuery := `
		INSERT INTO conversation_participants (conversation_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id, user_id) DO NOTHING
	`
	for _, userID := range participantIDs {
		if _, err = tx.ExecContext(ctx, memberQuery, conv.ID, userID, now); err != nil {
			return storeError("failed to insert conversation participant", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return storeError("failed to commit create conversation", err)
	}
	return nil
}

// GetConversation fetches a conversation by id. Soft-deleted conversations
// are returned too: delete only hides a thread from listings.
func (p *PostgresDB) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	query := `SELECT id, name, avatar_url, created_at, updated_at, deleted_at FROM conversations WHERE id = $1`
	var conv models.Conversation
	err := p.DB.GetContext(ctx, &conv, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewNotFoundError("conversation not found")
		}
		return nil, storeError("failed to query conversation by id", err)
	}
	return &conv, nil
}

// GetConversationsByParticipant lists the caller's non-deleted conversations,
// most recently active first.
func (p *PostgresDB) GetConversationsByParticipant(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	query := `
		SELECT c.id, c.name, c.avatar_url, c.created_at, c.updated_at, c.deleted_at
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = $1 AND c.deleted_at IS NULL
		ORDER BY c.updated_at DESC
	`
	convs := []*models.Conversation{}
	if err := p.DB.SelectContext(ctx, &convs, query, userID); err != nil {
		return nil, storeError("failed to query conversations by participant", err)
	}
	return convs, nil
}

// FindConversationsWithAny returns ids of conversations having at least one
// participant among userIDs. Callers narrow the candidates down themselves.
func (p *PostgresDB) FindConversationsWithAny(ctx context.Context, userIDs []int64) ([]int64, error) {
	if len(userIDs) == 0 {
		return []int64{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT DISTINCT conversation_id
		FROM conversation_participants
		WHERE user_id IN (?)
	`, userIDs)
	if err != nil {
		return nil, utils.NewDatabaseError("failed to build candidate conversation query", err)
	}
	query = p.DB.Rebind(query)

	ids := []int64{}
	if err := p.DB.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, storeError("failed to query candidate conversations", err)
	}
	return ids, nil
}

// UpdateConversation applies a partial metadata update. With nothing to
// change it is a no-op.
func (p *PostgresDB) UpdateConversation(ctx context.Context, id int64, upd ConversationUpdate) error {
	set := []string{}
	args := []interface{}{}

	if upd.Name != nil {
		args = append(args, *upd.Name)
		set = append(set, "name = $"+strconv.Itoa(len(args)))
	}
	if upd.AvatarURL != nil {
		args = append(args, *upd.AvatarURL)
		set = append(set, "avatar_url = $"+strconv.Itoa(len(args)))
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at = NOW()")

	args = append(args, id)
	query := "UPDATE conversations SET " + strings.Join(set, ", ") + " WHERE id = $" + strconv.Itoa(len(args))

	result, err := p.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return storeError("failed to update conversation", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return utils.NewNotFoundError("conversation not found for update")
	}
	return nil
}

// SoftDeleteConversation stamps deleted_at. Intentionally unconditional: a
// second delete just re-stamps, matching the idempotent contract. Messages,
// participants and watermarks are left untouched.
func (p *PostgresDB) SoftDeleteConversation(ctx context.Context, id int64) error {
	query := `UPDATE conversations SET deleted_at = NOW() WHERE id = $1`
	if _, err := p.DB.ExecContext(ctx, query, id); err != nil {
		return storeError("failed to soft-delete conversation", err)
	}
	return nil
}

package database

import (
	"context"
	"database/sql"
	"regexp"
	"time"

	"lilypad/internal/models"
	"lilypad/internal/utils"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var numericKey = regexp.MustCompile(`^\d+$`)

// GetUsersByIDs fetches the users matching ids, ordered by id ascending.
// The fixed ordering matters: group-name derivation uses the first resolved
// user, so lookups must be deterministic.
func (p *PostgresDB) GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, username, email, password_hash, full_name, avatar_url, created_at
		FROM users
		WHERE id IN (?)
		ORDER BY id ASC
	`, ids)
	if err != nil {
		return nil, utils.NewDatabaseError("failed to build user lookup query", err)
	}
	query = p.DB.Rebind(query)

	users := []*models.User{}
	if err := p.DB.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, storeError("failed to query users by ids", err)
	}
	return users, nil
}

// GetUserByKey fetches a user by numeric id or username.
func (p *PostgresDB) GetUserByKey(ctx context.Context, key string) (*models.User, error) {
	var query string
	if numericKey.MatchString(key) {
		query = `SELECT id, username, email, password_hash, full_name, avatar_url, title, bio, created_at, updated_at FROM users WHERE id = $1`
	} else {
		query = `SELECT id, username, email, password_hash, full_name, avatar_url, title, bio, created_at, updated_at FROM users WHERE username = $1`
	}

	var user models.User
	err := p.DB.GetContext(ctx, &user, query, key)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, utils.NewNotFoundError("user not found: " + key)
		}
		return nil, storeError("failed to query user by key", err)
	}
	return &user, nil
}

// SaveUser inserts a new directory user. The conversation core never calls
// this; it exists for the seeder and for tests.
func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	query := `
		INSERT INTO users (username, email, password_hash, full_name, avatar_url, title, bio, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`
	err := p.DB.QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.HashedPassword,
		user.FullName,
		user.AvatarURL,
		user.Title,
		user.Bio,
		user.CreatedAt,
	).Scan(&user.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return utils.NewAppError(utils.ErrDuplicate, "user already exists: "+pqErr.Constraint, err)
		}
		return storeError("failed to save user", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-api/internal/models"
)

// SessionRegistryRepository records the single active session per user.
type SessionRegistryRepository struct {
	db *sqlx.DB
}

// NewSessionRegistryRepository constructs the repository.
func NewSessionRegistryRepository(db *sqlx.DB) *SessionRegistryRepository {
	return &SessionRegistryRepository{db: db}
}

// Get returns the registered session of userID.
func (r *SessionRegistryRepository) Get(ctx context.Context, userID int64) (*models.UserSession, error) {
	var s models.UserSession
	if err := r.db.GetContext(ctx, &s, `SELECT user_id, session_id, updated_at FROM user_sessions WHERE user_id = $1`, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user session: %w", err)
	}
	return &s, nil
}

// Upsert makes sessionID the only valid session of userID.
func (r *SessionRegistryRepository) Upsert(ctx context.Context, userID int64, sessionID string) error {
	const query = `INSERT INTO user_sessions (user_id, session_id, updated_at) VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET session_id = EXCLUDED.session_id, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, sessionID); err != nil {
		return fmt.Errorf("register user session: %w", err)
	}
	return nil
}

// Delete clears the registration when it still names sessionID.
func (r *SessionRegistryRepository) Delete(ctx context.Context, userID int64, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = $1 AND session_id = $2`, userID, sessionID); err != nil {
		return fmt.Errorf("delete user session: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-api/internal/models"
)

// PasswordResetRepository stores pending password reset tokens.
type PasswordResetRepository struct {
	db *sqlx.DB
}

// NewPasswordResetRepository constructs the repository.
func NewPasswordResetRepository(db *sqlx.DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Upsert replaces any earlier token issued for the same email.
func (r *PasswordResetRepository) Upsert(ctx context.Context, reset *models.PasswordReset) error {
	const query = `INSERT INTO password_resets (email, token, expires_at) VALUES ($1, $2, $3)
ON CONFLICT (email) DO UPDATE SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, created_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, reset.Email, reset.Token, reset.ExpiresAt); err != nil {
		return fmt.Errorf("store password reset: %w", err)
	}
	return nil
}

// FindByToken returns the reset bound to token.
func (r *PasswordResetRepository) FindByToken(ctx context.Context, token string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	if err := r.db.GetContext(ctx, &reset, `SELECT email, token, expires_at, created_at FROM password_resets WHERE token = $1`, token); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find password reset: %w", err)
	}
	return &reset, nil
}

// DeleteByEmail removes the pending reset of email.
func (r *PasswordResetRepository) DeleteByEmail(ctx context.Context, email string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE email = $1`, email); err != nil {
		return fmt.Errorf("delete password reset: %w", err)
	}
	return nil
}

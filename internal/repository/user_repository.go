package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-api/internal/models"
)

const userColumns = "id, fullname, email, password_hash, role, google_id, profile_picture, created_at"

// UserRepository provides database access for user accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) findOne(ctx context.Context, op, where string, arg interface{}) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return r.findOne(ctx, "find user by id", "id = $1", id)
}

// FindByEmail returns a user by email address, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "find user by email", "LOWER(email) = LOWER($1)", strings.TrimSpace(email))
}

// FindByGoogleID returns the user linked to a Google account.
func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	return r.findOne(ctx, "find user by google id", "google_id = $1", googleID)
}

// RoleByID reads only the role column.
func (r *UserRepository) RoleByID(ctx context.Context, id int64) (models.UserRole, error) {
	var role models.UserRole
	if err := r.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find user role: %w", err)
	}
	return role, nil
}

// Create inserts user and fills its id and created_at.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	const query = `INSERT INTO users (fullname, email, password_hash, role, google_id, profile_picture)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, user.FullName, user.Email, user.PasswordHash, user.Role, user.GoogleID, user.ProfilePicture)
	if err := row.Scan(&user.ID, &user.CreatedAt); err != nil {
		return classify("create user", err)
	}
	return nil
}

// UserPatch lists profile fields to overwrite.
type UserPatch struct {
	FullName       *string
	Email          *string
	PasswordHash   *string
	ProfilePicture *string
}

// Update applies patch to the user.
func (r *UserRepository) Update(ctx context.Context, id int64, patch UserPatch) error {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	argPos := 1
	if patch.FullName != nil {
		set = append(set, fmt.Sprintf("fullname = $%d", argPos))
		args = append(args, *patch.FullName)
		argPos++
	}
	if patch.Email != nil {
		set = append(set, fmt.Sprintf("email = $%d", argPos))
		args = append(args, *patch.Email)
		argPos++
	}
	if patch.PasswordHash != nil {
		set = append(set, fmt.Sprintf("password_hash = $%d", argPos))
		args = append(args, *patch.PasswordHash)
		argPos++
	}
	if patch.ProfilePicture != nil {
		set = append(set, fmt.Sprintf("profile_picture = $%d", argPos))
		args = append(args, *patch.ProfilePicture)
		argPos++
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return classify("update user", err)
	}
	return nil
}

// UpdatePasswordByEmail replaces the password hash of the account.
func (r *UserRepository) UpdatePasswordByEmail(ctx context.Context, email, hash string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE LOWER(email) = LOWER($2)`, hash, email)
	if err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}
	return res.RowsAffected()
}

// LinkGoogle attaches a Google identity to an existing account.
func (r *UserRepository) LinkGoogle(ctx context.Context, id int64, googleID string, picture *string) error {
	const query = `UPDATE users SET google_id = $1, profile_picture = COALESCE($2, profile_picture) WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, googleID, picture, id); err != nil {
		return classify("link google account", err)
	}
	return nil
}

// SetRole changes the role of the user.
func (r *UserRepository) SetRole(ctx context.Context, id int64, role models.UserRole) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET role = $1 WHERE id = $2`, role, id); err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return nil
}

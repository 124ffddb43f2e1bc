package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-api/internal/models"
)

// ActivityRepository persists admin activity log entries.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs the repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts entry.
func (r *ActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	const query = `INSERT INTO activity_logs (user_id, role, action, details) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, query, entry.UserID, entry.Role, entry.Action, entry.Details).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

// List returns a page of entries newest first and the total count.
func (r *ActivityRepository) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLogEntry, int, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	const query = `SELECT l.id, l.user_id, l.role, l.action, l.details, l.created_at, u.fullname, u.email
FROM activity_logs l LEFT JOIN users u ON u.id = l.user_id
ORDER BY l.created_at DESC, l.id DESC LIMIT $1 OFFSET $2`
	entries := make([]models.ActivityLogEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query, size, offset); err != nil {
		return nil, 0, fmt.Errorf("list activity logs: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM activity_logs`); err != nil {
		return nil, 0, fmt.Errorf("count activity logs: %w", err)
	}
	return entries, total, nil
}

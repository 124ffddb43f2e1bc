package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-api/internal/models"
)

var trashColumns = "id, original_id, " + recordColumns + ", status, created_at, data, deleted_at"

// TrashRepository manages the applications_trash table.
type TrashRepository struct {
	db *sqlx.DB
}

// NewTrashRepository constructs the repository.
func NewTrashRepository(db *sqlx.DB) *TrashRepository {
	return &TrashRepository{db: db}
}

// Create copies item into the trash and fills its id and deleted_at.
func (r *TrashRepository) Create(ctx context.Context, exec sqlx.ExtContext, item *models.TrashedApplication) error {
	args := []interface{}{item.OriginalID}
	args = append(args, recordArgs(item.UserID, item.ApplicantDetails, item.Documents)...)
	data := item.Data
	if len(data) == 0 {
		data = []byte("{}")
	}
	args = append(args, item.Status, item.CreatedAt, data)

	query := fmt.Sprintf(`INSERT INTO applications_trash (original_id, %s, status, created_at, data) VALUES (%s) RETURNING id, deleted_at`,
		recordColumns, placeholders(1, len(args)))
	if err := execOrDB(r.db, exec).QueryRowxContext(ctx, query, args...).Scan(&item.ID, &item.DeletedAt); err != nil {
		return fmt.Errorf("create trash entry: %w", err)
	}
	return nil
}

// FindByID returns a trash entry by its trash id.
func (r *TrashRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.TrashedApplication, error) {
	query := `SELECT ` + trashColumns + ` FROM applications_trash WHERE id = $1`
	var item models.TrashedApplication
	if err := sqlx.GetContext(ctx, execOrDB(r.db, exec), &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find trash entry: %w", err)
	}
	return &item, nil
}

// List returns every trash entry, most recently deleted first.
func (r *TrashRepository) List(ctx context.Context) ([]models.TrashedApplication, error) {
	query := `SELECT ` + trashColumns + ` FROM applications_trash ORDER BY deleted_at DESC, id DESC`
	items := make([]models.TrashedApplication, 0)
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return items, nil
}

// Delete removes a trash entry and returns the number of rows removed.
func (r *TrashRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id int64) (int64, error) {
	res, err := execOrDB(r.db, exec).ExecContext(ctx, `DELETE FROM applications_trash WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("delete trash entry: %w", err)
	}
	return res.RowsAffected()
}

// PurgeOlderThan removes entries deleted before cutoff.
func (r *TrashRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications_trash WHERE deleted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge trash: %w", err)
	}
	return res.RowsAffected()
}

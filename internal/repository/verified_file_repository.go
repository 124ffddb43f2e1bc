package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/admissions-api/internal/models"
)

// VerifiedFileRepository tracks which documents an admin has verified.
type VerifiedFileRepository struct {
	db *sqlx.DB
}

// NewVerifiedFileRepository constructs the repository.
func NewVerifiedFileRepository(db *sqlx.DB) *VerifiedFileRepository {
	return &VerifiedFileRepository{db: db}
}

// ListKeys returns the verified document keys of an application.
func (r *VerifiedFileRepository) ListKeys(ctx context.Context, exec sqlx.ExtContext, applicationID int64) ([]models.DocumentKey, error) {
	const query = `SELECT file_key FROM verified_files WHERE application_id = $1 ORDER BY file_key`
	keys := make([]models.DocumentKey, 0)
	if err := sqlx.SelectContext(ctx, execOrDB(r.db, exec), &keys, query, applicationID); err != nil {
		return nil, fmt.Errorf("list verified files: %w", err)
	}
	return keys, nil
}

// ListKeysForApplications groups verified keys by application id.
func (r *VerifiedFileRepository) ListKeysForApplications(ctx context.Context, ids []int64) (map[int64][]models.DocumentKey, error) {
	out := make(map[int64][]models.DocumentKey, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const query = `SELECT application_id, file_key FROM verified_files WHERE application_id = ANY($1) ORDER BY application_id, file_key`
	var rows []struct {
		ApplicationID int64              `db:"application_id"`
		FileKey       models.DocumentKey `db:"file_key"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list verified files for applications: %w", err)
	}
	for _, row := range rows {
		out[row.ApplicationID] = append(out[row.ApplicationID], row.FileKey)
	}
	return out, nil
}

// Verify marks key verified. It reports false when it already was.
func (r *VerifiedFileRepository) Verify(ctx context.Context, exec sqlx.ExtContext, applicationID int64, key models.DocumentKey, verifiedBy *int64) (bool, error) {
	const query = `INSERT INTO verified_files (application_id, file_key, verified_by) VALUES ($1, $2, $3)
ON CONFLICT (application_id, file_key) DO NOTHING`
	res, err := execOrDB(r.db, exec).ExecContext(ctx, query, applicationID, string(key), verifiedBy)
	if err != nil {
		return false, fmt.Errorf("verify file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("verify file rows: %w", err)
	}
	return affected > 0, nil
}

// VerifyMany marks every key verified, skipping ones already recorded.
func (r *VerifiedFileRepository) VerifyMany(ctx context.Context, exec sqlx.ExtContext, applicationID int64, keys []models.DocumentKey, verifiedBy *int64) error {
	if len(keys) == 0 {
		return nil
	}
	const query = `INSERT INTO verified_files (application_id, file_key, verified_by)
SELECT $1, k, $3 FROM unnest($2::text[]) AS k
ON CONFLICT (application_id, file_key) DO NOTHING`
	if _, err := execOrDB(r.db, exec).ExecContext(ctx, query, applicationID, pq.Array(keysToStrings(keys)), verifiedBy); err != nil {
		return fmt.Errorf("verify files: %w", err)
	}
	return nil
}

// Unverify removes the verification of one key.
func (r *VerifiedFileRepository) Unverify(ctx context.Context, exec sqlx.ExtContext, applicationID int64, key models.DocumentKey) (bool, error) {
	const query = `DELETE FROM verified_files WHERE application_id = $1 AND file_key = $2`
	res, err := execOrDB(r.db, exec).ExecContext(ctx, query, applicationID, string(key))
	if err != nil {
		return false, fmt.Errorf("unverify file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unverify file rows: %w", err)
	}
	return affected > 0, nil
}

// DeleteAll clears every verification of an application.
func (r *VerifiedFileRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext, applicationID int64) error {
	if _, err := execOrDB(r.db, exec).ExecContext(ctx, `DELETE FROM verified_files WHERE application_id = $1`, applicationID); err != nil {
		return fmt.Errorf("clear verified files: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/admissions-api/internal/models"
)

const remarkColumns = "id, application_id, document_name, remark, created_by, created_at"

// RemarkRepository stores the remark history of documents.
type RemarkRepository struct {
	db *sqlx.DB
}

// NewRemarkRepository constructs the repository.
func NewRemarkRepository(db *sqlx.DB) *RemarkRepository {
	return &RemarkRepository{db: db}
}

// Create appends a remark.
func (r *RemarkRepository) Create(ctx context.Context, remark *models.DocumentRemark) error {
	const query = `INSERT INTO document_remarks (application_id, document_name, remark, created_by) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, remark.ApplicationID, string(remark.DocumentName), remark.Remark, remark.CreatedBy)
	if err := row.Scan(&remark.ID, &remark.CreatedAt); err != nil {
		return fmt.Errorf("create document remark: %w", err)
	}
	return nil
}

// Latest returns the newest remark for a document.
func (r *RemarkRepository) Latest(ctx context.Context, applicationID int64, key models.DocumentKey) (*models.DocumentRemark, error) {
	const query = `SELECT ` + remarkColumns + ` FROM document_remarks WHERE application_id = $1 AND document_name = $2 ORDER BY created_at DESC, id DESC LIMIT 1`
	var remark models.DocumentRemark
	if err := r.db.GetContext(ctx, &remark, query, applicationID, string(key)); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest remark: %w", err)
	}
	return &remark, nil
}

// List returns the full remark history of a document, newest first.
func (r *RemarkRepository) List(ctx context.Context, applicationID int64, key models.DocumentKey) ([]models.DocumentRemark, error) {
	const query = `SELECT ` + remarkColumns + ` FROM document_remarks WHERE application_id = $1 AND document_name = $2 ORDER BY created_at DESC, id DESC`
	remarks := make([]models.DocumentRemark, 0)
	if err := r.db.SelectContext(ctx, &remarks, query, applicationID, string(key)); err != nil {
		return nil, fmt.Errorf("list document remarks: %w", err)
	}
	return remarks, nil
}

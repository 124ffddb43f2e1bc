package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TrashedApplication is a deleted application kept for recovery.
type TrashedApplication struct {
	ID         int64  `db:"id" json:"id"`
	OriginalID int64  `db:"original_id" json:"original_id"`
	UserID     *int64 `db:"user_id" json:"user_id"`
	ApplicantDetails
	Documents
	Status    ApplicationStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	Data      types.JSONText    `db:"data" json:"data"`
	DeletedAt time.Time         `db:"deleted_at" json:"deleted_at"`
}

// ExpiresAt is when the purge sweep will remove the row.
func (t *TrashedApplication) ExpiresAt(retention time.Duration) time.Time {
	return t.DeletedAt.Add(retention)
}

// Restore rebuilds the original application row. The id is filled by the
// store on reinsertion.
func (t *TrashedApplication) Restore() Application {
	return Application{
		UserID:           t.UserID,
		ApplicantDetails: t.ApplicantDetails,
		Documents:        t.Documents,
		Status:           t.Status,
		CreatedAt:        t.CreatedAt,
	}
}

// TrashSnapshot is the JSON blob stored alongside a trashed row.
type TrashSnapshot struct {
	Application     Application                    `json:"application"`
	VerifiedFiles   []DocumentKey                  `json:"verified_files"`
	DocumentReviews map[DocumentKey]DocumentReview `json:"document_reviews,omitempty"`
}

// TrashView adds the computed expiry to a trash listing entry.
type TrashView struct {
	TrashedApplication
	ExpiresAt time.Time `json:"expires_at"`
}

package dto

import "github.com/noah-isme/admissions-api/internal/models"

// UpdateApplicationStatusRequest changes an application's review status.
type UpdateApplicationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateDocumentStatusRequest sets a per-document review status.
type UpdateDocumentStatusRequest struct {
	DocumentName string  `json:"documentName" validate:"required"`
	Status       string  `json:"status" validate:"required"`
	Remark       *string `json:"remark" validate:"omitempty,max=2000"`
}

// VerifyFileRequest toggles a ledger entry. Verified is optional.
type VerifyFileRequest struct {
	Verified OptionalFlag `json:"verified"`
}

// DocumentRemarkRequest appends a remark.
type DocumentRemarkRequest struct {
	Remark string `json:"remark" validate:"required,max=2000"`
}

// ActivityLogRequest records a client-side admin action.
type ActivityLogRequest struct {
	Action  string `json:"action" validate:"required,max=255"`
	Details string `json:"details" validate:"max=4000"`
}

// ApplicationListQuery captures admin list filters.
type ApplicationListQuery struct {
	Status        string `form:"status"`
	Program       string `form:"program"`
	IncludeDrafts bool   `form:"include_drafts"`
}

// StatusUpdateResult reports the side effects of a status change.
type StatusUpdateResult struct {
	Application   models.ApplicationView `json:"application"`
	VerifiedKeys  []models.DocumentKey   `json:"verifiedKeys"`
	ResetFailures int                    `json:"resetFailures"`
}

// DocumentStatusResult is returned after a per-document status change.
type DocumentStatusResult struct {
	Application  models.ApplicationView `json:"application"`
	DocumentName models.DocumentKey     `json:"documentName"`
	Supported    bool                   `json:"supported"`
}

// SupportedDocumentStatuses lists keys with a review status column.
type SupportedDocumentStatuses struct {
	Supported []models.DocumentKey `json:"supported"`
}

// UpdateProfileRequest is the multipart admin profile form.
type UpdateProfileRequest struct {
	FullName string `form:"fullname" validate:"omitempty,max=255"`
	Email    string `form:"email" validate:"omitempty,email,max=255"`
	Password string `form:"password" validate:"omitempty,min=6,max=72"`
}

package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ApplicationStatus is the lifecycle state of an application.
type ApplicationStatus string

const (
	StatusDraft    ApplicationStatus = "Draft"
	StatusPending  ApplicationStatus = "Pending"
	StatusAccepted ApplicationStatus = "Accepted"
	StatusRejected ApplicationStatus = "Rejected"
)

// ParseReviewStatus accepts the admin-settable statuses, case-insensitively.
func ParseReviewStatus(raw string) (ApplicationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending, true
	case "accepted":
		return StatusAccepted, true
	case "rejected":
		return StatusRejected, true
	default:
		return "", false
	}
}

// ApplicantDetails are the personal fields captured by the form.
type ApplicantDetails struct {
	ProgramName     *string `db:"program_name" json:"program_name"`
	FullName        *string `db:"full_name" json:"full_name"`
	Email           *string `db:"email" json:"email"`
	Phone           *string `db:"phone" json:"phone"`
	MaritalStatus   *string `db:"marital_status" json:"marital_status"`
	IsBusinessOwner *bool   `db:"is_business_owner" json:"is_business_owner"`
	BusinessName    *string `db:"business_name" json:"business_name"`
}

// Application is a row of the applications table.
type Application struct {
	ID     int64  `db:"id" json:"id"`
	UserID *int64 `db:"user_id" json:"user_id"`
	ApplicantDetails
	Documents
	Status    ApplicationStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// IsDraft reports whether the application has not been submitted yet.
func (a *Application) IsDraft() bool {
	return a.Status == StatusDraft
}

// OwnedBy reports whether userID owns the application.
func (a *Application) OwnedBy(userID int64) bool {
	return a.UserID != nil && *a.UserID == userID
}

// RequiredDocuments returns the document slots that must be filled before
// submission given the applicant's answers.
func (a *Application) RequiredDocuments() []DocumentKey {
	required := append([]DocumentKey(nil), alwaysRequired...)
	if a.MaritalStatus != nil && strings.EqualFold(*a.MaritalStatus, "married") {
		required = append(required, DocMarriageCertificate)
	}
	if a.IsBusinessOwner != nil && *a.IsBusinessOwner {
		required = append(required, DocBusinessRegistration)
	}
	return required
}

// MissingRequirements lists required fields and documents that are empty.
func (a *Application) MissingRequirements() []string {
	missing := make([]string, 0)
	fields := []struct {
		name  string
		value *string
	}{
		{"program_name", a.ProgramName},
		{"full_name", a.FullName},
		{"email", a.Email},
		{"phone", a.Phone},
	}
	for _, f := range fields {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	for _, key := range a.MissingDocuments() {
		missing = append(missing, string(key))
	}
	return missing
}

// MissingDocuments lists required document slots with no upload.
func (a *Application) MissingDocuments() []DocumentKey {
	missing := make([]DocumentKey, 0)
	for _, key := range a.RequiredDocuments() {
		if a.Get(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// ApplicationView is an application merged with its per-document verified
// flags. It serialises flat, with one <key>_verified field per slot.
type ApplicationView struct {
	Application
	Verified        map[DocumentKey]bool
	DocumentReviews map[DocumentKey]DocumentReview
}

// NewApplicationView builds the view with every flag defaulted to false.
func NewApplicationView(app Application, verified []DocumentKey) ApplicationView {
	flags := make(map[DocumentKey]bool, len(DocumentKeys))
	for _, key := range DocumentKeys {
		flags[key] = false
	}
	for _, key := range verified {
		if key.Valid() {
			flags[key] = true
		}
	}
	return ApplicationView{Application: app, Verified: flags}
}

// MarshalJSON flattens the verified flags into the application object.
func (v ApplicationView) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(v.Application)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for _, key := range DocumentKeys {
		out[key.VerifiedField()] = v.Verified[key]
	}
	if len(v.DocumentReviews) > 0 {
		out["document_reviews"] = v.DocumentReviews
	}
	return json.Marshal(out)
}

// ApplicationFilter narrows admin listings.
type ApplicationFilter struct {
	Status        *ApplicationStatus
	ProgramName   string
	IncludeDrafts bool
}

package dto

import (
	"strconv"
	"strings"

	"github.com/noah-isme/admissions-api/internal/models"
)

// ApplicationForm carries the text fields of the multipart application form.
// Empty values mean "not provided" and never overwrite stored data.
type ApplicationForm struct {
	DraftID         string `form:"draft_id"`
	ProgramName     string `form:"program_name" validate:"omitempty,max=255"`
	FullName        string `form:"full_name" validate:"omitempty,max=255"`
	Email           string `form:"email" validate:"omitempty,email,max=255"`
	Phone           string `form:"phone" validate:"omitempty,max=64"`
	MaritalStatus   string `form:"marital_status" validate:"omitempty,max=32"`
	IsBusinessOwner string `form:"is_business_owner" validate:"omitempty,businessflag"`
	BusinessName    string `form:"business_name" validate:"omitempty,max=255"`
}

// Details converts the provided fields into a patch; absent fields stay nil.
func (f ApplicationForm) Details() models.ApplicantDetails {
	return models.ApplicantDetails{
		ProgramName:     optional(f.ProgramName),
		FullName:        optional(f.FullName),
		Email:           optional(f.Email),
		Phone:           optional(f.Phone),
		MaritalStatus:   optional(f.MaritalStatus),
		IsBusinessOwner: ParseFlag(f.IsBusinessOwner),
		BusinessName:    optional(f.BusinessName),
	}
}

// ParseFlag reads the yes/no style booleans the form sends.
func ParseFlag(raw string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "1", "on":
		v = true
	case "no", "false", "0", "off":
		v = false
	default:
		return nil
	}
	return &v
}

// ParseID parses a positive numeric identifier.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func optional(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SubmitDraftRequest converts a stored draft without new data.
type SubmitDraftRequest struct {
	DraftID      FlexibleID `json:"draft_id"`
	DraftIDCamel FlexibleID `json:"draftId"`
}

// ID returns whichever spelling of the draft id was sent.
func (r SubmitDraftRequest) ID() int64 {
	if r.DraftID > 0 {
		return int64(r.DraftID)
	}
	return int64(r.DraftIDCamel)
}

// ApplicationIDResponse is returned after a submission.
type ApplicationIDResponse struct {
	Message       string `json:"message"`
	ApplicationID int64  `json:"applicationId"`
}

// DraftIDResponse is returned after saving a draft.
type DraftIDResponse struct {
	Message string `json:"message"`
	DraftID int64  `json:"draftId"`
}

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

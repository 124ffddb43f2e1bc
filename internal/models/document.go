package models

import "strings"

// DocumentKey names one of the fixed document upload slots.
type DocumentKey string

const (
	DocLetterOfIntent        DocumentKey = "letter_of_intent"
	DocResume                DocumentKey = "resume"
	DocPicture               DocumentKey = "picture"
	DocApplicationForm       DocumentKey = "application_form"
	DocRecommendationLetter  DocumentKey = "recommendation_letter"
	DocSchoolCredentials     DocumentKey = "school_credentials"
	DocHighSchoolDiploma     DocumentKey = "high_school_diploma"
	DocTranscript            DocumentKey = "transcript"
	DocBirthCertificate      DocumentKey = "birth_certificate"
	DocEmploymentCertificate DocumentKey = "employment_certificate"
	DocNBIClearance          DocumentKey = "nbi_clearance"
	DocMarriageCertificate   DocumentKey = "marriage_certificate"
	DocBusinessRegistration  DocumentKey = "business_registration"
	DocCertificates          DocumentKey = "certificates"
)

// DocumentKeys lists every document slot in display order.
var DocumentKeys = []DocumentKey{
	DocLetterOfIntent,
	DocResume,
	DocPicture,
	DocApplicationForm,
	DocRecommendationLetter,
	DocSchoolCredentials,
	DocHighSchoolDiploma,
	DocTranscript,
	DocBirthCertificate,
	DocEmploymentCertificate,
	DocNBIClearance,
	DocMarriageCertificate,
	DocBusinessRegistration,
	DocCertificates,
}

// alwaysRequired are the slots every submitted application must fill.
var alwaysRequired = DocumentKeys[:11]

// ParseDocumentKey validates raw against the whitelist.
func ParseDocumentKey(raw string) (DocumentKey, bool) {
	key := DocumentKey(strings.TrimSpace(raw))
	return key, key.Valid()
}

// Valid reports whether k is a known document slot.
func (k DocumentKey) Valid() bool {
	for _, known := range DocumentKeys {
		if k == known {
			return true
		}
	}
	return false
}

// StatusColumn is the optional per-document review status column.
func (k DocumentKey) StatusColumn() string { return string(k) + "_status" }

// RemarkColumn is the optional per-document review remark column.
func (k DocumentKey) RemarkColumn() string { return string(k) + "_remark" }

// VerifiedField is the flag name exposed on application payloads.
func (k DocumentKey) VerifiedField() string { return string(k) + "_verified" }

// DocumentStatus is the review outcome for a single document.
type DocumentStatus string

const (
	DocumentPending  DocumentStatus = "pending"
	DocumentApproved DocumentStatus = "approved"
	DocumentRejected DocumentStatus = "rejected"
)

// ParseDocumentStatus normalises raw, case-insensitively.
func ParseDocumentStatus(raw string) (DocumentStatus, bool) {
	switch s := DocumentStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case DocumentPending, DocumentApproved, DocumentRejected:
		return s, true
	default:
		return "", false
	}
}

// DocumentReview is the stored status and remark for one document.
type DocumentReview struct {
	Status *string `json:"status"`
	Remark *string `json:"remark"`
}

// Documents holds the uploaded path of each document slot.
type Documents struct {
	LetterOfIntent        *string `db:"letter_of_intent" json:"letter_of_intent"`
	Resume                *string `db:"resume" json:"resume"`
	Picture               *string `db:"picture" json:"picture"`
	ApplicationForm       *string `db:"application_form" json:"application_form"`
	RecommendationLetter  *string `db:"recommendation_letter" json:"recommendation_letter"`
	SchoolCredentials     *string `db:"school_credentials" json:"school_credentials"`
	HighSchoolDiploma     *string `db:"high_school_diploma" json:"high_school_diploma"`
	Transcript            *string `db:"transcript" json:"transcript"`
	BirthCertificate      *string `db:"birth_certificate" json:"birth_certificate"`
	EmploymentCertificate *string `db:"employment_certificate" json:"employment_certificate"`
	NBIClearance          *string `db:"nbi_clearance" json:"nbi_clearance"`
	MarriageCertificate   *string `db:"marriage_certificate" json:"marriage_certificate"`
	BusinessRegistration  *string `db:"business_registration" json:"business_registration"`
	Certificates          *string `db:"certificates" json:"certificates"`
}

func (d *Documents) slot(key DocumentKey) **string {
	switch key {
	case DocLetterOfIntent:
		return &d.LetterOfIntent
	case DocResume:
		return &d.Resume
	case DocPicture:
		return &d.Picture
	case DocApplicationForm:
		return &d.ApplicationForm
	case DocRecommendationLetter:
		return &d.RecommendationLetter
	case DocSchoolCredentials:
		return &d.SchoolCredentials
	case DocHighSchoolDiploma:
		return &d.HighSchoolDiploma
	case DocTranscript:
		return &d.Transcript
	case DocBirthCertificate:
		return &d.BirthCertificate
	case DocEmploymentCertificate:
		return &d.EmploymentCertificate
	case DocNBIClearance:
		return &d.NBIClearance
	case DocMarriageCertificate:
		return &d.MarriageCertificate
	case DocBusinessRegistration:
		return &d.BusinessRegistration
	case DocCertificates:
		return &d.Certificates
	default:
		return nil
	}
}

// Get returns the stored path for key, or "" when empty.
func (d *Documents) Get(key DocumentKey) string {
	if p := d.slot(key); p != nil && *p != nil {
		return **p
	}
	return ""
}

// Set stores path for key. Unknown keys are ignored.
func (d *Documents) Set(key DocumentKey, path string) {
	if p := d.slot(key); p != nil {
		v := path
		*p = &v
	}
}

// Uploaded lists the keys holding a non-empty path.
func (d *Documents) Uploaded() []DocumentKey {
	keys := make([]DocumentKey, 0, len(DocumentKeys))
	for _, key := range DocumentKeys {
		if d.Get(key) != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Paths returns every non-empty stored path.
func (d *Documents) Paths() []string {
	uploaded := d.Uploaded()
	paths := make([]string, 0, len(uploaded))
	for _, key := range uploaded {
		paths = append(paths, d.Get(key))
	}
	return paths
}

// ReviewColumns records which optional review columns exist for a document.
type ReviewColumns struct {
	Status bool
	Remark bool
}

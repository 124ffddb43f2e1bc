package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseReviewStatus(t *testing.T) {
	for raw, want := range map[string]ApplicationStatus{"ACCEPTED": StatusAccepted, " pending ": StatusPending, "Rejected": StatusRejected} {
		got, ok := ParseReviewStatus(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got)
	}
	_, ok := ParseReviewStatus("draft")
	assert.False(t, ok)
}

func TestDocumentsGetSetUploaded(t *testing.T) {
	var docs Documents
	docs.Set(DocResume, "uploads/resume.pdf")
	docs.Set(DocCertificates, "uploads/cert.pdf")
	docs.Set(DocumentKey("passport"), "ignored")

	assert.Equal(t, "uploads/resume.pdf", docs.Get(DocResume))
	assert.Equal(t, "", docs.Get(DocPicture))
	assert.Equal(t, []DocumentKey{DocResume, DocCertificates}, docs.Uploaded())
	assert.Equal(t, []string{"uploads/resume.pdf", "uploads/cert.pdf"}, docs.Paths())
}

func TestParseDocumentKey(t *testing.T) {
	key, ok := ParseDocumentKey("nbi_clearance")
	assert.True(t, ok)
	assert.Equal(t, "nbi_clearance_status", key.StatusColumn())
	assert.Equal(t, "nbi_clearance_verified", key.VerifiedField())

	_, ok = ParseDocumentKey("resume; DROP TABLE users")
	assert.False(t, ok)
	assert.Len(t, DocumentKeys, 14)
}

func TestRequiredDocumentsDependOnAnswers(t *testing.T) {
	app := Application{}
	assert.Len(t, app.RequiredDocuments(), 11)

	yes := true
	app.MaritalStatus = strPtr("Married")
	app.IsBusinessOwner = &yes
	required := app.RequiredDocuments()
	assert.Len(t, required, 13)
	assert.Contains(t, required, DocMarriageCertificate)
	assert.Contains(t, required, DocBusinessRegistration)
	assert.NotContains(t, required, DocCertificates)
}

func TestMissingRequirements(t *testing.T) {
	app := Application{ApplicantDetails: ApplicantDetails{
		ProgramName: strPtr("BSIT"),
		FullName:    strPtr("Ana Cruz"),
		Email:       strPtr("ana@example.com"),
		Phone:       strPtr("  "),
	}}
	for _, key := range DocumentKeys[:10] {
		app.Set(key, "uploads/"+string(key))
	}
	assert.Equal(t, []string{"phone", "nbi_clearance"}, app.MissingRequirements())
	assert.Equal(t, []DocumentKey{"nbi_clearance"}, app.MissingDocuments())

	app.ProgramName = nil
	assert.Equal(t, []DocumentKey{"nbi_clearance"}, app.MissingDocuments())
}

func TestApplicationViewMarshalsFlatFlags(t *testing.T) {
	app := Application{ID: 7, Status: StatusPending}
	app.Set(DocResume, "uploads/r.pdf")
	view := NewApplicationView(app, []DocumentKey{DocResume, "bogus"})

	raw, err := json.Marshal(view)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, float64(7), out["id"])
	assert.Equal(t, "uploads/r.pdf", out["resume"])
	assert.Equal(t, true, out["resume_verified"])
	assert.Equal(t, false, out["picture_verified"])
	assert.NotContains(t, out, "bogus_verified")
	assert.NotContains(t, out, "document_reviews")
}

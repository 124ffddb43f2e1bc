package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admissions-api/internal/models"
)

func reviewRouter(svc *fakeReview) *gin.Engine {
	h := NewReviewHandler(svc)
	r := gin.New()
	r.Use(asUser(9))
	r.GET("/admin/applications", h.List)
	r.PUT("/admin/applications/:id/status", h.SetStatus)
	r.PUT("/admin/applications/:id/documents/:documentName/verify", h.ToggleVerification)
	r.POST("/admin/applications/:id/documents/:documentName/remarks", h.AddRemark)
	r.GET("/admin/applications/:id/documents/:documentName/remark", h.LatestRemark)
	return r
}

func sendJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestReviewHandlerToggleVerificationFlag(t *testing.T) {
	svc := &fakeReview{}
	r := reviewRouter(svc)

	rec := sendJSON(r, http.MethodPut, "/admin/applications/5/documents/resume/verify", `{"verified":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.verified)
	assert.False(t, *svc.verified)
	assert.Equal(t, "resume", svc.key)
	assert.Equal(t, int64(5), svc.id)
	assert.Equal(t, int64(9), svc.adminID)

	rec = sendJSON(r, http.MethodPut, "/admin/applications/5/documents/resume/verify", `{"verified":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, *svc.verified)

	rec = sendJSON(r, http.MethodPut, "/admin/applications/5/documents/resume/verify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.verified)

	rec = sendJSON(r, http.MethodPut, "/admin/applications/5/documents/resume/verify", `{"verified":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewHandlerSetStatus(t *testing.T) {
	svc := &fakeReview{}
	rec := sendJSON(reviewRouter(svc), http.MethodPut, "/admin/applications/12/status", `{"status":"accepted"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", svc.status.Status)
	assert.Equal(t, int64(12), svc.id)

	rec = sendJSON(reviewRouter(svc), http.MethodPut, "/admin/applications/0/status", `{"status":"accepted"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewHandlerListBindsFilters(t *testing.T) {
	svc := &fakeReview{}
	rec := sendJSON(reviewRouter(svc), http.MethodGet, "/admin/applications?status=Pending&program=BSIT&include_drafts=true", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pending", svc.query.Status)
	assert.Equal(t, "BSIT", svc.query.Program)
	assert.True(t, svc.query.IncludeDrafts)
}

func TestReviewHandlerRemarks(t *testing.T) {
	svc := &fakeReview{}
	r := reviewRouter(svc)

	rec := sendJSON(r, http.MethodPost, "/admin/applications/3/documents/transcript/remarks", `{"remark":"  blurry scan  "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "blurry scan", svc.remark.Remark)
	assert.Equal(t, string(models.DocTranscript), svc.key)

	rec = sendJSON(r, http.MethodGet, "/admin/applications/3/documents/transcript/remark", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"remark":"","created_at":null}`, string(decodeEnvelope(rec).Data))
}

package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/middleware"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(rec *httptest.ResponseRecorder) responseEnvelope {
	var env responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return env
}

func asUser(id int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetSession(c, &models.Session{ID: "sess", Data: models.SessionData{UserID: id, Role: models.RoleAdmin}})
	}
}

type fakeApplications struct {
	userID  int64
	form    dto.ApplicationForm
	uploads []service.DocumentUpload
	draftID int64
	err     error
}

func (f *fakeApplications) SaveDraft(_ context.Context, userID int64, form dto.ApplicationForm, uploads []service.DocumentUpload) (int64, error) {
	f.userID, f.form, f.uploads = userID, form, uploads
	return 11, f.err
}

func (f *fakeApplications) SubmitApplication(_ context.Context, userID int64, form dto.ApplicationForm, uploads []service.DocumentUpload) (int64, error) {
	f.userID, f.form, f.uploads = userID, form, uploads
	return 21, f.err
}

func (f *fakeApplications) SubmitDraft(_ context.Context, userID, draftID int64) (int64, error) {
	f.userID, f.draftID = userID, draftID
	return draftID, f.err
}

func (f *fakeApplications) ListDrafts(context.Context, int64) ([]models.Application, error) {
	return []models.Application{}, f.err
}

func (f *fakeApplications) GetDraft(_ context.Context, _ int64, id int64) (*models.Application, error) {
	f.draftID = id
	return &models.Application{ID: id, Status: models.StatusDraft}, f.err
}

func (f *fakeApplications) DeleteDraft(_ context.Context, _ int64, id int64) error {
	f.draftID = id
	return f.err
}

func (f *fakeApplications) ListUserApplications(context.Context, int64) ([]models.ApplicationView, error) {
	return []models.ApplicationView{}, f.err
}

type fakeReview struct {
	adminID  int64
	id       int64
	key      string
	verified *bool
	status   dto.UpdateApplicationStatusRequest
	remark   dto.DocumentRemarkRequest
	query    dto.ApplicationListQuery
	err      error
}

func (f *fakeReview) ListApplications(_ context.Context, query dto.ApplicationListQuery) ([]models.ApplicationView, error) {
	f.query = query
	return []models.ApplicationView{}, f.err
}

func (f *fakeReview) GetApplication(_ context.Context, id int64) (*models.ApplicationView, error) {
	f.id = id
	return &models.ApplicationView{}, f.err
}

func (f *fakeReview) SetApplicationStatus(_ context.Context, adminID, id int64, req dto.UpdateApplicationStatusRequest) (*dto.StatusUpdateResult, error) {
	f.adminID, f.id, f.status = adminID, id, req
	return &dto.StatusUpdateResult{}, f.err
}

func (f *fakeReview) SetDocumentStatus(_ context.Context, adminID, id int64, _ dto.UpdateDocumentStatusRequest) (*dto.DocumentStatusResult, error) {
	f.adminID, f.id = adminID, id
	return &dto.DocumentStatusResult{}, f.err
}

func (f *fakeReview) SupportedDocumentStatuses(context.Context) (*dto.SupportedDocumentStatuses, error) {
	return &dto.SupportedDocumentStatuses{Supported: []models.DocumentKey{models.DocResume}}, f.err
}

func (f *fakeReview) ToggleFileVerification(_ context.Context, adminID, id int64, key string, verified *bool) (*models.ApplicationView, error) {
	f.adminID, f.id, f.key, f.verified = adminID, id, key, verified
	return &models.ApplicationView{}, f.err
}

func (f *fakeReview) AddDocumentRemark(_ context.Context, adminID, id int64, key string, req dto.DocumentRemarkRequest) (*models.LatestRemark, error) {
	f.adminID, f.id, f.key, f.remark = adminID, id, key, req
	return &models.LatestRemark{Remark: req.Remark}, f.err
}

func (f *fakeReview) GetDocumentRemark(_ context.Context, id int64, key string) (*models.LatestRemark, error) {
	f.id, f.key = id, key
	return &models.LatestRemark{}, f.err
}

func (f *fakeReview) ListDocumentRemarks(_ context.Context, id int64, key string) ([]models.DocumentRemark, error) {
	f.id, f.key = id, key
	return []models.DocumentRemark{}, f.err
}

type fakeTrash struct {
	calls []string
	err   error
}

func (f *fakeTrash) Trash(_ context.Context, _, id int64) (*models.TrashedApplication, error) {
	f.calls = append(f.calls, "trash")
	return &models.TrashedApplication{ID: 1, OriginalID: id}, f.err
}

func (f *fakeTrash) Restore(_ context.Context, _, id int64) (*models.Application, error) {
	f.calls = append(f.calls, "restore")
	return &models.Application{ID: id}, f.err
}

func (f *fakeTrash) List(context.Context) ([]models.TrashView, error) {
	f.calls = append(f.calls, "list")
	return []models.TrashView{}, f.err
}

func (f *fakeTrash) Delete(context.Context, int64, int64) error {
	f.calls = append(f.calls, "delete")
	return f.err
}

type fakeActivity struct {
	filter models.ActivityFilter
	req    dto.ActivityLogRequest
}

func (f *fakeActivity) Record(_ context.Context, _ int64, req dto.ActivityLogRequest) error {
	f.req = req
	return nil
}

func (f *fakeActivity) List(_ context.Context, filter models.ActivityFilter) ([]models.ActivityLogEntry, *models.Pagination, error) {
	f.filter = filter
	return []models.ActivityLogEntry{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize}, nil
}

type fakeDashboard struct {
	stats *models.DashboardStats
	hit   bool
	err   error
}

func (f *fakeDashboard) Stats(context.Context) (*models.DashboardStats, bool, error) {
	return f.stats, f.hit, f.err
}

type fakeExport struct {
	format string
	err    error
}

func (f *fakeExport) Export(_ context.Context, _ int64, format string, _ dto.ApplicationListQuery) (*service.ExportFile, error) {
	f.format = format
	return &service.ExportFile{Filename: "applications.csv", ContentType: "text/csv", Body: []byte("ID\n1\n")}, f.err
}

type fakeProfile struct {
	req     dto.UpdateProfileRequest
	picture *service.DocumentUpload
}

func (f *fakeProfile) Get(_ context.Context, userID int64) (*dto.AuthUser, error) {
	return &dto.AuthUser{ID: userID}, nil
}

func (f *fakeProfile) Update(_ context.Context, userID int64, req dto.UpdateProfileRequest, picture *service.DocumentUpload) (*dto.AuthUser, error) {
	f.req, f.picture = req, picture
	return &dto.AuthUser{ID: userID, FullName: req.FullName}, nil
}

type fakeAuth struct {
	user      *dto.AuthUser
	session   *models.Session
	err       error
	loggedOut *models.Session
	signup    bool
}

func (f *fakeAuth) Signup(context.Context, dto.SignupRequest) (*dto.AuthUser, *models.Session, error) {
	return f.user, f.session, f.err
}

func (f *fakeAuth) Login(context.Context, dto.LoginRequest) (*dto.AuthUser, *models.Session, error) {
	return f.user, f.session, f.err
}

func (f *fakeAuth) Logout(_ context.Context, session *models.Session) error {
	f.loggedOut = session
	return f.err
}

func (f *fakeAuth) CheckEmail(context.Context, dto.EmailRequest) (bool, error) {
	return true, f.err
}

func (f *fakeAuth) Me(_ context.Context, userID int64) (*dto.AuthUser, error) {
	return &dto.AuthUser{ID: userID}, f.err
}

func (f *fakeAuth) ForgotPassword(context.Context, dto.EmailRequest) error { return f.err }

func (f *fakeAuth) ResetPassword(context.Context, dto.ResetPasswordRequest) error { return f.err }

func (f *fakeAuth) GoogleAuthURL(signup bool) (string, error) {
	f.signup = signup
	return "https://accounts.example.com/auth?state=abc", f.err
}

func (f *fakeAuth) GoogleCallback(context.Context, string, string) (*dto.AuthUser, *models.Session, error) {
	return f.user, f.session, f.err
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type reviewApplicationStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id int64) (*models.Application, error)
	LockByID(ctx context.Context, tx sqlx.ExtContext, id int64) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error)
	Update(ctx context.Context, exec sqlx.ExtContext, id int64, patch repository.ApplicationPatch) (int64, error)
	ReviewColumns(ctx context.Context) (map[models.DocumentKey]models.ReviewColumns, error)
	UpdateDocumentReview(ctx context.Context, exec sqlx.ExtContext, id int64, key models.DocumentKey, cols models.ReviewColumns, review models.DocumentReview) (int64, error)
	DocumentReviews(ctx context.Context, exec sqlx.ExtContext, id int64, cols map[models.DocumentKey]models.ReviewColumns) (map[models.DocumentKey]models.DocumentReview, error)
}

type verificationLedger interface {
	ListKeys(ctx context.Context, exec sqlx.ExtContext, applicationID int64) ([]models.DocumentKey, error)
	ListKeysForApplications(ctx context.Context, ids []int64) (map[int64][]models.DocumentKey, error)
	Verify(ctx context.Context, exec sqlx.ExtContext, applicationID int64, key models.DocumentKey, verifiedBy *int64) (bool, error)
	VerifyMany(ctx context.Context, exec sqlx.ExtContext, applicationID int64, keys []models.DocumentKey, verifiedBy *int64) error
	Unverify(ctx context.Context, exec sqlx.ExtContext, applicationID int64, key models.DocumentKey) (bool, error)
	DeleteAll(ctx context.Context, exec sqlx.ExtContext, applicationID int64) error
}

type remarkStore interface {
	Create(ctx context.Context, remark *models.DocumentRemark) error
	Latest(ctx context.Context, applicationID int64, key models.DocumentKey) (*models.DocumentRemark, error)
	List(ctx context.Context, applicationID int64, key models.DocumentKey) ([]models.DocumentRemark, error)
}

// ReviewService implements the admin review workflow.
type ReviewService struct {
	tx       txProvider
	apps     reviewApplicationStore
	ledger   verificationLedger
	remarks  remarkStore
	activity activityRecorder
	cache    cacheInvalidator
	logger   *zap.Logger
}

// NewReviewService constructs the service.
func NewReviewService(tx txProvider, apps reviewApplicationStore, ledger verificationLedger, remarks remarkStore, activity activityRecorder, cache cacheInvalidator, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{tx: tx, apps: apps, ledger: ledger, remarks: remarks, activity: activity, cache: cache, logger: logger}
}

// ListApplications returns applications with their verified flags.
func (s *ReviewService) ListApplications(ctx context.Context, query dto.ApplicationListQuery) ([]models.ApplicationView, error) {
	filter := models.ApplicationFilter{ProgramName: query.Program, IncludeDrafts: query.IncludeDrafts}
	if query.Status != "" {
		status, ok := models.ParseReviewStatus(query.Status)
		if !ok {
			if query.Status != string(models.StatusDraft) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status filter")
			}
			status = models.StatusDraft
		}
		filter.Status = &status
	}
	apps, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return withFlags(ctx, s.ledger, apps)
}

// GetApplication returns one application with flags and document reviews.
func (s *ReviewService) GetApplication(ctx context.Context, id int64) (*models.ApplicationView, error) {
	return s.view(ctx, nil, id, true)
}

// SetApplicationStatus changes the review status and applies its ledger
// side effects.
func (s *ReviewService) SetApplicationStatus(ctx context.Context, adminID, id int64, req dto.UpdateApplicationStatusRequest) (*dto.StatusUpdateResult, error) {
	if req.Status == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status is required")
	}
	status, ok := models.ParseReviewStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status value")
	}

	result := &dto.StatusUpdateResult{VerifiedKeys: []models.DocumentKey{}}
	switch status {
	case models.StatusAccepted, models.StatusRejected:
		keys, err := s.decide(ctx, adminID, id, status)
		if err != nil {
			return nil, err
		}
		result.VerifiedKeys = keys
	default:
		failures, err := s.reopen(ctx, id)
		if err != nil {
			return nil, err
		}
		result.ResetFailures = failures
	}

	s.activity.Log(ctx, adminID, "update_application_status", fmt.Sprintf("Set application %d status to %s", id, status))
	s.invalidate(ctx)

	view, err := s.view(ctx, nil, id, false)
	if err != nil {
		return nil, err
	}
	result.Application = *view
	return result, nil
}

// decide accepts or rejects inside one transaction.
func (s *ReviewService) decide(ctx context.Context, adminID, id int64, status models.ApplicationStatus) (keys []models.DocumentKey, err error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	app, err := s.apps.LockByID(ctx, tx, id)
	if err != nil {
		err = notFoundOrInternal(err, "application not found", "failed to load application")
		return nil, err
	}
	if app.IsDraft() {
		err = errDraftNotReviewable()
		return nil, err
	}
	if _, err = s.apps.Update(ctx, tx, id, repository.ApplicationPatch{Status: &status}); err != nil {
		err = statusUpdateError(err)
		return nil, err
	}

	keys = []models.DocumentKey{}
	if status == models.StatusAccepted {
		keys = app.Uploaded()
		if err = s.ledger.VerifyMany(ctx, tx, id, keys, adminRef(adminID)); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify documents")
			return nil, err
		}
	} else if err = s.ledger.DeleteAll(ctx, tx, id); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear verified documents")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit status change")
		return nil, err
	}
	return keys, nil
}

// reopen sets Pending and resets every supported document status. Reset
// failures are counted, not returned.
func (s *ReviewService) reopen(ctx context.Context, id int64) (int, error) {
	app, err := s.apps.FindByID(ctx, nil, id)
	if err != nil {
		return 0, notFoundOrInternal(err, "application not found", "failed to load application")
	}
	if app.IsDraft() {
		return 0, errDraftNotReviewable()
	}
	pending := models.StatusPending
	affected, err := s.apps.Update(ctx, nil, id, repository.ApplicationPatch{Status: &pending})
	if err != nil {
		return 0, statusUpdateError(err)
	}
	if affected == 0 {
		return 0, appErrors.Clone(appErrors.ErrNotFound, "application not found")
	}

	cols, err := s.apps.ReviewColumns(ctx)
	if err != nil {
		s.logger.Warn("failed to inspect document status columns", zap.Int64("application_id", id), zap.Error(err))
		return 1, nil
	}
	failures := 0
	reset := string(models.DocumentPending)
	for _, key := range models.DocumentKeys {
		rc, ok := cols[key]
		if !ok || !rc.Status {
			continue
		}
		if _, err := s.apps.UpdateDocumentReview(ctx, nil, id, key, models.ReviewColumns{Status: true}, models.DocumentReview{Status: &reset}); err != nil {
			failures++
			s.logger.Warn("failed to reset document status", zap.Int64("application_id", id), zap.String("document", string(key)), zap.Error(err))
		}
	}
	return failures, nil
}

// SetDocumentStatus writes a per-document review when the columns exist.
func (s *ReviewService) SetDocumentStatus(ctx context.Context, adminID, id int64, req dto.UpdateDocumentStatusRequest) (*dto.DocumentStatusResult, error) {
	if req.DocumentName == "" || req.Status == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "document name and status are required")
	}
	key, ok := models.ParseDocumentKey(req.DocumentName)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid document name")
	}
	status, ok := models.ParseDocumentStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid status value")
	}

	cols, err := s.apps.ReviewColumns(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect document status columns")
	}
	rc, supported := cols[key]
	supported = supported && rc.Status

	if supported {
		value := string(status)
		affected, err := s.apps.UpdateDocumentReview(ctx, nil, id, key, rc, models.DocumentReview{Status: &value, Remark: req.Remark})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document status")
		}
		if affected == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		s.activity.Log(ctx, adminID, "update_document_status", fmt.Sprintf("Updated document '%s' status to '%s' on application %d", key, status, id))
	}

	view, err := s.view(ctx, nil, id, true)
	if err != nil {
		return nil, err
	}
	return &dto.DocumentStatusResult{Application: *view, DocumentName: key, Supported: supported}, nil
}

// SupportedDocumentStatuses lists documents that have a status column.
func (s *ReviewService) SupportedDocumentStatuses(ctx context.Context) (*dto.SupportedDocumentStatuses, error) {
	cols, err := s.apps.ReviewColumns(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to inspect document status columns")
	}
	supported := make([]models.DocumentKey, 0, len(cols))
	for _, key := range models.DocumentKeys {
		if cols[key].Status {
			supported = append(supported, key)
		}
	}
	return &dto.SupportedDocumentStatuses{Supported: supported}, nil
}

// ToggleFileVerification sets or clears a ledger entry. A nil verified
// inserts only when missing.
func (s *ReviewService) ToggleFileVerification(ctx context.Context, adminID, id int64, fileKey string, verified *bool) (view *models.ApplicationView, err error) {
	key, ok := models.ParseDocumentKey(fileKey)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid file key")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	app, err := s.apps.LockByID(ctx, tx, id)
	if err != nil {
		err = notFoundOrInternal(err, "application not found", "failed to load application")
		return nil, err
	}

	var action string
	if verified == nil || *verified {
		inserted, verifyErr := s.ledger.Verify(ctx, tx, id, key, adminRef(adminID))
		if verifyErr != nil {
			err = appErrors.Wrap(verifyErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify file")
			return nil, err
		}
		if inserted {
			action = "verify_file"
			if app.Status == models.StatusRejected {
				if err = s.setPending(ctx, tx, id); err != nil {
					return nil, err
				}
			}
		}
	} else {
		removed, unverifyErr := s.ledger.Unverify(ctx, tx, id, key)
		if unverifyErr != nil {
			err = appErrors.Wrap(unverifyErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unverify file")
			return nil, err
		}
		action = "unverify_file"
		if removed && app.Status == models.StatusAccepted {
			if err = s.setPending(ctx, tx, id); err != nil {
				return nil, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit verification")
		return nil, err
	}

	switch action {
	case "verify_file":
		s.activity.Log(ctx, adminID, action, fmt.Sprintf("Verified file '%s' for application %d", key, id))
	case "unverify_file":
		s.activity.Log(ctx, adminID, action, fmt.Sprintf("Un-verified file '%s' for application %d", key, id))
	}
	if action != "" {
		s.invalidate(ctx)
	}
	return s.view(ctx, nil, id, false)
}

// AddDocumentRemark appends to a document's remark history.
func (s *ReviewService) AddDocumentRemark(ctx context.Context, adminID, id int64, documentName string, req dto.DocumentRemarkRequest) (*models.LatestRemark, error) {
	key, ok := models.ParseDocumentKey(documentName)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid document name")
	}
	if req.Remark == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "remark is required")
	}
	if _, err := s.apps.FindByID(ctx, nil, id); err != nil {
		return nil, notFoundOrInternal(err, "application not found", "failed to load application")
	}

	remark := &models.DocumentRemark{ApplicationID: id, DocumentName: key, Remark: req.Remark, CreatedBy: adminRef(adminID)}
	if err := s.remarks.Create(ctx, remark); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add remark")
	}
	s.activity.Log(ctx, adminID, "add_document_remark", fmt.Sprintf("Added remark for document '%s' on application %d: %s", key, id, req.Remark))

	created := remark.CreatedAt
	return &models.LatestRemark{Remark: remark.Remark, CreatedAt: &created}, nil
}

// GetDocumentRemark returns the newest remark or an empty one.
func (s *ReviewService) GetDocumentRemark(ctx context.Context, id int64, documentName string) (*models.LatestRemark, error) {
	key, ok := models.ParseDocumentKey(documentName)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid document name")
	}
	remark, err := s.remarks.Latest(ctx, id, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.LatestRemark{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load remark")
	}
	created := remark.CreatedAt
	return &models.LatestRemark{Remark: remark.Remark, CreatedAt: &created}, nil
}

// ListDocumentRemarks returns the full remark history of a document.
func (s *ReviewService) ListDocumentRemarks(ctx context.Context, id int64, documentName string) ([]models.DocumentRemark, error) {
	key, ok := models.ParseDocumentKey(documentName)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid document name")
	}
	remarks, err := s.remarks.List(ctx, id, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list remarks")
	}
	return remarks, nil
}

func (s *ReviewService) view(ctx context.Context, exec sqlx.ExtContext, id int64, withReviews bool) (*models.ApplicationView, error) {
	app, err := s.apps.FindByID(ctx, exec, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "application not found", "failed to load application")
	}
	keys, err := s.ledger.ListKeys(ctx, exec, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verified files")
	}
	view := models.NewApplicationView(*app, keys)
	if withReviews {
		cols, err := s.apps.ReviewColumns(ctx)
		if err != nil {
			s.logger.Warn("failed to inspect document status columns", zap.Error(err))
			return &view, nil
		}
		reviews, err := s.apps.DocumentReviews(ctx, exec, id, cols)
		if err != nil {
			s.logger.Warn("failed to load document reviews", zap.Int64("application_id", id), zap.Error(err))
			return &view, nil
		}
		view.DocumentReviews = reviews
	}
	return &view, nil
}

func (s *ReviewService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// setPending reopens a decided application whose ledger no longer matches
// the decision.
func (s *ReviewService) setPending(ctx context.Context, tx sqlx.ExtContext, id int64) error {
	pending := models.StatusPending
	if _, err := s.apps.Update(ctx, tx, id, repository.ApplicationPatch{Status: &pending}); err != nil {
		return statusUpdateError(err)
	}
	return nil
}

func errDraftNotReviewable() error {
	return appErrors.Clone(appErrors.ErrValidation, "draft applications must be submitted before review")
}

// statusUpdateError maps the one-application index onto Conflict.
func statusUpdateError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "applicant already has another application")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func adminRef(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

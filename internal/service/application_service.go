package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type applicationStore interface {
	FindOwnedDraft(ctx context.Context, id, userID int64) (*models.Application, error)
	FindDraftByProgram(ctx context.Context, userID int64, program string) (*models.Application, error)
	HasSubmitted(ctx context.Context, exec sqlx.ExtContext, userID, excludeID int64) (bool, error)
	ListDrafts(ctx context.Context, userID int64) ([]models.Application, error)
	ListSubmittedByUser(ctx context.Context, userID int64) ([]models.Application, error)
	Create(ctx context.Context, exec sqlx.ExtContext, app *models.Application) error
	Update(ctx context.Context, exec sqlx.ExtContext, id int64, patch repository.ApplicationPatch) (int64, error)
	DeleteOwnedDraft(ctx context.Context, id, userID int64) (int64, error)
}

type verifiedKeyLister interface {
	ListKeysForApplications(ctx context.Context, ids []int64) (map[int64][]models.DocumentKey, error)
}

type userRoleReader interface {
	RoleByID(ctx context.Context, id int64) (models.UserRole, error)
}

type fileStorage interface {
	SaveStream(name string, r io.Reader) (string, error)
	Delete(publicPath string) error
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// DocumentUpload is one file received for a document slot.
type DocumentUpload struct {
	Key      models.DocumentKey
	Filename string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// ApplicationServiceConfig tunes upload handling.
type ApplicationServiceConfig struct {
	MaxFileSizeBytes int64
}

// ApplicationService implements the applicant side of the admissions flow.
type ApplicationService struct {
	apps      applicationStore
	verified  verifiedKeyLister
	users     userRoleReader
	storage   fileStorage
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ApplicationServiceConfig
}

// NewApplicationService constructs the service.
func NewApplicationService(apps applicationStore, verified verifiedKeyLister, users userRoleReader, storage fileStorage, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, cfg ApplicationServiceConfig) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ApplicationService{apps: apps, verified: verified, users: users, storage: storage, cache: cache, validator: validate, logger: logger, cfg: cfg}
}

// SaveDraft creates or updates a draft and returns its id.
func (s *ApplicationService) SaveDraft(ctx context.Context, userID int64, form dto.ApplicationForm, uploads []DocumentUpload) (int64, error) {
	if err := s.ensureApplicant(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(form); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}

	var draftID int64
	if strings.TrimSpace(form.DraftID) != "" {
		id, ok := dto.ParseID(form.DraftID)
		if !ok {
			return 0, appErrors.Clone(appErrors.ErrValidation, "invalid draft_id")
		}
		draftID = id
	}

	details := form.Details()
	if draftID == 0 && details.ProgramName == nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "program_name is required")
	}

	var existing *models.Application
	if draftID > 0 {
		draft, err := s.apps.FindOwnedDraft(ctx, draftID, userID)
		if err != nil {
			return 0, notFoundOrInternal(err, "draft not found or not owned by user", "failed to load draft")
		}
		existing = draft
	} else {
		draft, err := s.apps.FindDraftByProgram(ctx, userID, *details.ProgramName)
		switch {
		case err == nil:
			existing = draft
		case errors.Is(err, sql.ErrNoRows):
			// Only a new draft is blocked by an existing submission.
			submitted, checkErr := s.apps.HasSubmitted(ctx, nil, userID, 0)
			if checkErr != nil {
				return 0, appErrors.Wrap(checkErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing application")
			}
			if submitted {
				return 0, appErrors.Clone(appErrors.ErrConflict, "only one application allowed per account")
			}
		default:
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
		}
	}

	saved, err := s.saveUploads(uploads)
	if err != nil {
		return 0, err
	}

	patch := repository.ApplicationPatch{Details: details, Documents: saved}
	if existing != nil {
		if patch.Empty() {
			return 0, appErrors.Clone(appErrors.ErrValidation, "no draft data provided")
		}
		if _, err := s.apps.Update(ctx, nil, existing.ID, patch); err != nil {
			s.discard(saved)
			return 0, s.writeError(err, "failed to update draft")
		}
		s.releaseReplaced(existing, saved)
		s.invalidate(ctx)
		return existing.ID, nil
	}

	app := &models.Application{UserID: &userID, ApplicantDetails: details, Status: models.StatusDraft}
	for key, path := range saved {
		app.Set(key, path)
	}
	if err := s.apps.Create(ctx, nil, app); err != nil {
		s.discard(saved)
		return 0, s.writeError(err, "failed to save draft")
	}
	s.invalidate(ctx)
	return app.ID, nil
}

// SubmitApplication submits a new application or converts a draft.
func (s *ApplicationService) SubmitApplication(ctx context.Context, userID int64, form dto.ApplicationForm, uploads []DocumentUpload) (int64, error) {
	if err := s.ensureApplicant(ctx, userID); err != nil {
		return 0, err
	}
	if err := s.validator.Struct(form); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid application payload")
	}

	details := form.Details()
	var draft *models.Application
	if strings.TrimSpace(form.DraftID) != "" {
		id, ok := dto.ParseID(form.DraftID)
		if !ok {
			return 0, appErrors.Clone(appErrors.ErrValidation, "invalid draft_id")
		}
		found, err := s.apps.FindOwnedDraft(ctx, id, userID)
		if err != nil {
			return 0, notFoundOrInternal(err, "draft not found or not owned by user", "failed to load draft")
		}
		draft = found
	} else if details.ProgramName != nil {
		found, err := s.apps.FindDraftByProgram(ctx, userID, *details.ProgramName)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load draft")
		}
		draft = found
	}

	var excludeID int64
	if draft != nil {
		excludeID = draft.ID
	}
	submitted, err := s.apps.HasSubmitted(ctx, nil, userID, excludeID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing application")
	}
	if submitted {
		return 0, appErrors.Clone(appErrors.ErrConflict, "only one submitted application allowed per account")
	}

	merged := models.Application{UserID: &userID}
	if draft != nil {
		merged = *draft
	}
	mergeDetails(&merged.ApplicantDetails, details)
	for _, up := range uploads {
		merged.Set(up.Key, up.Filename)
	}
	if missing := merged.MissingRequirements(); len(missing) > 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "missing required fields: "+strings.Join(missing, ", "))
	}

	saved, err := s.saveUploads(uploads)
	if err != nil {
		return 0, err
	}

	if draft != nil {
		pending := models.StatusPending
		patch := repository.ApplicationPatch{Details: details, Documents: saved, Status: &pending}
		affected, err := s.apps.Update(ctx, nil, draft.ID, patch)
		if err != nil {
			s.discard(saved)
			return 0, s.writeError(err, "failed to submit draft")
		}
		if affected == 0 {
			s.discard(saved)
			return 0, appErrors.Clone(appErrors.ErrNotFound, "draft not found or not owned by user")
		}
		s.releaseReplaced(draft, saved)
		s.invalidate(ctx)
		return draft.ID, nil
	}

	app := &models.Application{UserID: &userID, ApplicantDetails: details, Status: models.StatusPending}
	for key, path := range saved {
		app.Set(key, path)
	}
	if err := s.apps.Create(ctx, nil, app); err != nil {
		s.discard(saved)
		return 0, s.writeError(err, "failed to submit application")
	}
	s.invalidate(ctx)
	return app.ID, nil
}

// SubmitDraft converts an owned draft without new data.
func (s *ApplicationService) SubmitDraft(ctx context.Context, userID, draftID int64) (int64, error) {
	if draftID <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "draft_id required")
	}
	return s.SubmitApplication(ctx, userID, dto.ApplicationForm{DraftID: fmt.Sprintf("%d", draftID)}, nil)
}

// ListDrafts returns the caller's drafts.
func (s *ApplicationService) ListDrafts(ctx context.Context, userID int64) ([]models.Application, error) {
	drafts, err := s.apps.ListDrafts(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drafts")
	}
	return drafts, nil
}

// GetDraft returns one owned draft.
func (s *ApplicationService) GetDraft(ctx context.Context, userID, draftID int64) (*models.Application, error) {
	draft, err := s.apps.FindOwnedDraft(ctx, draftID, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "draft not found", "failed to load draft")
	}
	return draft, nil
}

// DeleteDraft removes an owned draft and its uploaded files.
func (s *ApplicationService) DeleteDraft(ctx context.Context, userID, draftID int64) error {
	draft, err := s.apps.FindOwnedDraft(ctx, draftID, userID)
	if err != nil {
		return notFoundOrInternal(err, "draft not found or not owned by user", "failed to load draft")
	}
	affected, err := s.apps.DeleteOwnedDraft(ctx, draftID, userID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete draft")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "draft not found or not owned by user")
	}
	for _, path := range draft.Paths() {
		if err := s.storage.Delete(path); err != nil {
			s.logger.Warn("failed to remove draft upload", zap.Int64("draft_id", draftID), zap.String("path", path), zap.Error(err))
		}
	}
	s.invalidate(ctx)
	return nil
}

// ListUserApplications returns the caller's submitted applications with flags.
func (s *ApplicationService) ListUserApplications(ctx context.Context, userID int64) ([]models.ApplicationView, error) {
	apps, err := s.apps.ListSubmittedByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return withFlags(ctx, s.verified, apps)
}

func withFlags(ctx context.Context, verified verifiedKeyLister, apps []models.Application) ([]models.ApplicationView, error) {
	ids := make([]int64, len(apps))
	for i, app := range apps {
		ids[i] = app.ID
	}
	keys, err := verified.ListKeysForApplications(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verified files")
	}
	views := make([]models.ApplicationView, len(apps))
	for i, app := range apps {
		views[i] = models.NewApplicationView(app, keys[app.ID])
	}
	return views, nil
}

func (s *ApplicationService) ensureApplicant(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing user id")
	}
	role, err := s.users.RoleByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "unknown user")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user role")
	}
	if role == models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "admins cannot submit applications")
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *ApplicationService) saveUploads(uploads []DocumentUpload) (map[models.DocumentKey]string, error) {
	saved := make(map[models.DocumentKey]string, len(uploads))
	for _, up := range uploads {
		if !up.Key.Valid() {
			s.discard(saved)
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown document %q", up.Key))
		}
		if s.cfg.MaxFileSizeBytes > 0 && up.Size > s.cfg.MaxFileSizeBytes {
			s.discard(saved)
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds the maximum file size", up.Key))
		}
		path, err := s.store(up)
		if err != nil {
			s.discard(saved)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store upload")
		}
		if previous, ok := saved[up.Key]; ok {
			_ = s.storage.Delete(previous)
		}
		saved[up.Key] = path
	}
	return saved, nil
}

func (s *ApplicationService) store(up DocumentUpload) (string, error) {
	r, err := up.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	base := unsafeFilename.ReplaceAllString(filepath.Base(up.Filename), "_")
	if base == "" || base == "." {
		base = "file"
	}
	return s.storage.SaveStream(uuid.NewString()+"-"+base, r)
}

func (s *ApplicationService) discard(saved map[models.DocumentKey]string) {
	for _, path := range saved {
		if err := s.storage.Delete(path); err != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(err))
		}
	}
}

// releaseReplaced removes files that a newer upload superseded.
func (s *ApplicationService) releaseReplaced(previous *models.Application, saved map[models.DocumentKey]string) {
	for key := range saved {
		if old := previous.Get(key); old != "" && old != saved[key] {
			if err := s.storage.Delete(old); err != nil {
				s.logger.Warn("failed to remove replaced upload", zap.String("path", old), zap.Error(err))
			}
		}
	}
}

func (s *ApplicationService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCachePattern); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *ApplicationService) writeError(err error, message string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return appErrors.Clone(appErrors.ErrConflict, "an application for this account already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func mergeDetails(dst *models.ApplicantDetails, patch models.ApplicantDetails) {
	if patch.ProgramName != nil {
		dst.ProgramName = patch.ProgramName
	}
	if patch.FullName != nil {
		dst.FullName = patch.FullName
	}
	if patch.Email != nil {
		dst.Email = patch.Email
	}
	if patch.Phone != nil {
		dst.Phone = patch.Phone
	}
	if patch.MaritalStatus != nil {
		dst.MaritalStatus = patch.MaritalStatus
	}
	if patch.IsBusinessOwner != nil {
		dst.IsBusinessOwner = patch.IsBusinessOwner
	}
	if patch.BusinessName != nil {
		dst.BusinessName = patch.BusinessName
	}
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type activityStore interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLogEntry, int, error)
}

type activityRecorder interface {
	Log(ctx context.Context, userID int64, action, details string)
}

// ActivityService writes and reads the admin audit trail.
type ActivityService struct {
	repo      activityStore
	users     userRoleReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs the service.
func NewActivityService(repo activityStore, users userRoleReader, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ActivityService{repo: repo, users: users, validator: validate, logger: logger}
}

// Log records an admin action. Non-admin callers are ignored and storage
// failures are only logged.
func (s *ActivityService) Log(ctx context.Context, userID int64, action, details string) {
	if userID <= 0 {
		s.logger.Warn("activity log without user", zap.String("action", action))
		return
	}
	role, err := s.users.RoleByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("activity log role lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return
	}
	if role != models.RoleAdmin {
		s.logger.Debug("activity log skipped for non-admin", zap.Int64("user_id", userID), zap.String("action", action))
		return
	}

	entry := &models.ActivityLog{UserID: &userID, Role: models.RoleAdmin, Action: action}
	if details != "" {
		entry.Details = &details
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write activity log", zap.Int64("user_id", userID), zap.String("action", action), zap.Error(err))
	}
}

// Record stores a client-reported admin event.
func (s *ActivityService) Record(ctx context.Context, userID int64, req dto.ActivityLogRequest) error {
	req.Action = strings.TrimSpace(req.Action)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid activity payload")
	}
	s.Log(ctx, userID, req.Action, req.Details)
	return nil
}

// List returns a page of the activity log.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLogEntry, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity logs")
	}
	return entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

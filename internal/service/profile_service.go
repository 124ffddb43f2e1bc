package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type profileUserStore interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, patch repository.UserPatch) error
}

var pictureExtensions = map[string]struct{}{".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}}

const profileDir = "profile"

// ProfileService manages the signed-in administrator's own account.
type ProfileService struct {
	users     profileUserStore
	storage   fileStorage
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
	maxSize   int64
}

// NewProfileService constructs the service.
func NewProfileService(users profileUserStore, storage fileStorage, activity activityRecorder, validate *validator.Validate, logger *zap.Logger, maxSize int64) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ProfileService{users: users, storage: storage, activity: activity, validator: validate, logger: logger, maxSize: maxSize}
}

// Get returns the profile of userID.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*dto.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to fetch user")
	}
	view := dto.NewAuthUser(user)
	return &view, nil
}

// Update applies the non-empty fields of req and an optional new picture.
func (s *ProfileService) Update(ctx context.Context, userID int64, req dto.UpdateProfileRequest, picture *DocumentUpload) (*dto.AuthUser, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = normalizeEmail(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOrInternal(err, "user not found", "failed to fetch user")
	}

	var patch repository.UserPatch
	if req.FullName != "" {
		patch.FullName = &req.FullName
	}
	if req.Email != "" && req.Email != current.Email {
		patch.Email = &req.Email
	}
	if req.Password != "" {
		hash, err := hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		patch.PasswordHash = &hash
	}

	var stored string
	if picture != nil {
		if stored, err = s.savePicture(*picture); err != nil {
			return nil, err
		}
		patch.ProfilePicture = &stored
	}

	if err := s.users.Update(ctx, userID, patch); err != nil {
		if stored != "" {
			_ = s.storage.Delete(stored)
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already in use")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if stored != "" && current.ProfilePicture != nil && isLocalPicture(*current.ProfilePicture) {
		if err := s.storage.Delete(*current.ProfilePicture); err != nil {
			s.logger.Warn("failed to remove previous profile picture", zap.Error(err))
		}
	}

	if s.activity != nil {
		s.activity.Log(ctx, userID, "update_profile", "Updated admin profile")
	}

	updated, err := s.users.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if updated == nil {
		updated = current
	}
	view := dto.NewAuthUser(updated)
	return &view, nil
}

func (s *ProfileService) savePicture(up DocumentUpload) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if _, ok := pictureExtensions[ext]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "profile picture must be an image")
	}
	if s.maxSize > 0 && up.Size > s.maxSize {
		return "", appErrors.Clone(appErrors.ErrValidation, "profile picture exceeds the size limit")
	}
	r, err := up.Open()
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read profile picture")
	}
	defer r.Close()

	stored, err := s.storage.SaveStream(profileDir+"/"+uuid.NewString()+ext, r)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store profile picture")
	}
	return stored, nil
}

// isLocalPicture excludes remote avatars such as Google profile URLs.
func isLocalPicture(p string) bool {
	return !strings.Contains(p, "://")
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/repository"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

type sessionStore interface {
	Save(ctx context.Context, id string, data models.SessionData, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.SessionData, error)
	Touch(ctx context.Context, id string, ttl time.Duration) error
	Destroy(ctx context.Context, id string) error
}

type sessionRegistry interface {
	Get(ctx context.Context, userID int64) (*models.UserSession, error)
	Upsert(ctx context.Context, userID int64, sessionID string) error
	Delete(ctx context.Context, userID int64, sessionID string) error
}

// SessionService enforces one active session per user.
type SessionService struct {
	store    sessionStore
	registry sessionRegistry
	logger   *zap.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionService constructs the service.
func NewSessionService(store sessionStore, registry sessionRegistry, ttl time.Duration, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{store: store, registry: registry, logger: logger, ttl: ttl, now: time.Now}
}

// TTL is the session lifetime used for cookies.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Start opens a session for user and revokes any previous one.
func (s *SessionService) Start(ctx context.Context, user *models.User) (*models.Session, error) {
	session := &models.Session{
		ID:   uuid.NewString(),
		Data: models.SessionData{UserID: user.ID, Role: user.Role, CreatedAt: s.now().UTC()},
	}
	if err := s.store.Save(ctx, session.ID, session.Data, s.ttl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	previous, err := s.registry.Get(ctx, user.ID)
	switch {
	case err == nil && previous.SessionID != "" && previous.SessionID != session.ID:
		if err := s.store.Destroy(ctx, previous.SessionID); err != nil {
			s.logger.Warn("failed to destroy previous session", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		s.logger.Warn("session registry lookup failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	if err := s.registry.Upsert(ctx, user.ID, session.ID); err != nil {
		_ = s.store.Destroy(ctx, session.ID)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register session")
	}
	return session, nil
}

// Resolve loads the session behind id. It returns (nil, nil) for unknown
// ids and ErrSessionRevoked, after destroying the session, when a newer
// login replaced it.
func (s *SessionService) Resolve(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, nil
	}
	data, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	active, err := s.registry.Get(ctx, data.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("session registry lookup failed", zap.Int64("user_id", data.UserID), zap.Error(err))
	}
	if err == nil && active.SessionID != "" && active.SessionID != id {
		if err := s.store.Destroy(ctx, id); err != nil {
			s.logger.Warn("failed to destroy revoked session", zap.Int64("user_id", data.UserID), zap.Error(err))
		}
		return nil, appErrors.ErrSessionRevoked
	}

	if err := s.store.Touch(ctx, id, s.ttl); err != nil {
		s.logger.Debug("failed to extend session", zap.Error(err))
	}
	return &models.Session{ID: id, Data: *data}, nil
}

// End destroys the session and clears the user's registry entry.
func (s *SessionService) End(ctx context.Context, session *models.Session) error {
	if session == nil {
		return nil
	}
	if err := s.store.Destroy(ctx, session.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to destroy session")
	}
	if err := s.registry.Delete(ctx, session.Data.UserID, session.ID); err != nil {
		s.logger.Warn("failed to clear session registry", zap.Int64("user_id", session.Data.UserID), zap.Error(err))
	}
	return nil
}

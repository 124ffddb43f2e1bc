package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

// Context keys populated once the caller is identified.
const (
	ContextUserIDKey  = "userID"
	ContextRoleKey    = "role"
	ContextSessionKey = "session"
)

const defaultCookieName = "sid"

type sessionResolver interface {
	Resolve(ctx context.Context, id string) (*models.Session, error)
}

type revocationObserver interface {
	ObserveSessionRevoked()
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
	Domain string
}

func (cfg CookieConfig) name() string {
	if cfg.Name == "" {
		return defaultCookieName
	}
	return cfg.Name
}

// SetSessionCookie issues the cookie for session.
func SetSessionCookie(c *gin.Context, cfg CookieConfig, session *models.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.name(), session.ID, int(cfg.MaxAge.Seconds()), "/", cfg.Domain, cfg.Secure, true)
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.name(), "", -1, "/", cfg.Domain, cfg.Secure, true)
}

// Session loads the cookie session on every request. A session replaced by a
// newer login is destroyed and the request continues unauthenticated.
func Session(resolver sessionResolver, cookie CookieConfig, metrics revocationObserver, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		id, err := c.Cookie(cookie.name())
		if err != nil || id == "" {
			c.Next()
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), id)
		switch {
		case appErrors.Is(err, appErrors.ErrSessionRevoked):
			ClearSessionCookie(c, cookie)
			if metrics != nil {
				metrics.ObserveSessionRevoked()
			}
			logger.Info("session replaced by newer login", zap.String("path", c.Request.URL.Path))
		case err != nil:
			logger.Warn("failed to resolve session", zap.Error(err))
		case session == nil:
			ClearSessionCookie(c, cookie)
		default:
			SetSession(c, session)
		}
		c.Next()
	}
}

// SetSession attaches session and its user to the request context.
func SetSession(c *gin.Context, session *models.Session) {
	c.Set(ContextSessionKey, session)
	c.Set(ContextUserIDKey, session.Data.UserID)
	c.Set(ContextRoleKey, session.Data.Role)
}

// CurrentSession returns the session loaded for this request, if any.
func CurrentSession(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*models.Session)
	return session
}

// CurrentUserID returns the identified caller.
func CurrentUserID(c *gin.Context) (int64, bool) {
	id := c.GetInt64(ContextUserIDKey)
	return id, id > 0
}

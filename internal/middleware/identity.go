package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/response"
)

// UserIDHeader is the legacy identity header accepted on applicant routes.
const UserIDHeader = "x-user-id"

type userRoleReader interface {
	RoleByID(ctx context.Context, id int64) (models.UserRole, error)
}

// RequireUser rejects anonymous callers. When allowHeader is set a caller
// without a session may identify through the x-user-id header, which must
// name an existing user.
func RequireUser(users userRoleReader, allowHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUserID(c); ok {
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader(UserIDHeader))
		if !allowHeader || raw == "" {
			abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required"))
			return
		}

		id, ok := dto.ParseID(raw)
		if !ok {
			abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid x-user-id header"))
			return
		}
		role, err := users.RoleByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "unknown user"))
				return
			}
			abort(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user"))
			return
		}

		c.Set(ContextUserIDKey, id)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}

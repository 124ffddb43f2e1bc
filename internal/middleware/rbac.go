package middleware

import (
	"database/sql"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
)

// RequireAdmin allows only session users whose stored role is admin. The
// role is re-read on every request so demotions apply immediately.
func RequireAdmin(users userRoleReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) == nil {
			abort(c, appErrors.ErrUnauthorized)
			return
		}
		userID, _ := CurrentUserID(c)

		role, err := users.RoleByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				abort(c, appErrors.ErrUnauthorized)
				return
			}
			abort(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify role"))
			return
		}
		if role != models.RoleAdmin {
			abort(c, appErrors.Clone(appErrors.ErrForbidden, "admin access required"))
			return
		}

		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

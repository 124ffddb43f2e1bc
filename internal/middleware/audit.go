package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

type activityRecorder interface {
	Log(ctx context.Context, userID int64, action, details string)
}

// Audit records action for the identified caller after a successful
// request. The recorder decides whether the caller's role is logged.
func Audit(recorder activityRecorder, action, details string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}
		userID, ok := CurrentUserID(c)
		if !ok {
			return
		}
		recorder.Log(c.Request.Context(), userID, action, details)
	}
}

package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Auth         *AuthHandler
	Applications *ApplicationHandler
	Review       *ReviewHandler
	Trash        *TrashHandler
	Activity     *ActivityHandler
	Profile      *ProfileHandler
	Dashboard    *DashboardHandler
	Export       *ExportHandler
	Metrics      *MetricsHandler
}

// RouteGuards holds the middleware individual routes depend on. Nil guards
// are skipped.
type RouteGuards struct {
	RequireUser  gin.HandlerFunc
	RequireAdmin gin.HandlerFunc
	LoginLimit   gin.HandlerFunc
	SignupLimit  gin.HandlerFunc
	LoginAudit   gin.HandlerFunc
	LogoutAudit  gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes mounts every API endpoint on r.
func RegisterRoutes(r gin.IRouter, h Handlers, g RouteGuards) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	auth := r.Group("/auth")
	auth.POST("/signup", chain(g.SignupLimit, h.Auth.Signup)...)
	auth.POST("/login", chain(g.LoginLimit, g.LoginAudit, h.Auth.Login)...)
	auth.POST("/logout", chain(g.LogoutAudit, h.Auth.Logout)...)
	auth.POST("/check-email", h.Auth.CheckEmail)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)
	auth.GET("/me", h.Auth.Me)
	auth.GET("/google", h.Auth.GoogleLogin)
	auth.GET("/google/signup", h.Auth.GoogleSignup)
	auth.GET("/google/callback", h.Auth.GoogleCallback)

	submit := r.Group("/submit_application", chain(g.RequireUser)...)
	submit.POST("", h.Applications.Submit)
	submit.POST("/draft", h.Applications.SaveDraft)
	submit.POST("/submit-draft", h.Applications.SubmitDraft)
	submit.GET("/drafts", h.Applications.ListDrafts)
	submit.GET("/drafts/:id", h.Applications.GetDraft)
	submit.DELETE("/drafts/:id", h.Applications.DeleteDraft)

	profile := r.Group("/profile", chain(g.RequireUser)...)
	profile.GET("/applications", h.Applications.ListMine)

	admin := r.Group("/admin", chain(g.RequireAdmin)...)
	admin.GET("/applications", h.Review.List)
	admin.GET("/applications/export", h.Export.Export)
	admin.GET("/applications/trash", h.Trash.List)
	admin.POST("/applications/trash/:id/restore", h.Trash.Restore)
	admin.DELETE("/applications/trash/:id", h.Trash.Delete)
	admin.GET("/applications/:id", h.Review.Get)
	admin.DELETE("/applications/:id", h.Trash.Trash)
	admin.PUT("/applications/:id/status", h.Review.SetStatus)
	admin.PUT("/applications/:id/documents", h.Review.SetDocumentStatus)
	admin.PUT("/applications/:id/documents/:documentName/verify", h.Review.ToggleVerification)
	admin.POST("/applications/:id/documents/:documentName/remarks", h.Review.AddRemark)
	admin.GET("/applications/:id/documents/:documentName/remarks", h.Review.ListRemarks)
	admin.GET("/applications/:id/documents/:documentName/remark", h.Review.LatestRemark)
	admin.GET("/document-status-supported", h.Review.SupportedStatuses)
	admin.GET("/activity-logs", h.Activity.List)
	admin.POST("/log", h.Activity.Record)
	admin.GET("/profile", h.Profile.Get)
	admin.PUT("/profile", h.Profile.Update)
	admin.GET("/dashboard-stats", h.Dashboard.Stats)
}

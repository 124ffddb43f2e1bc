package handler

import (
	"context"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/middleware"
	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/response"
)

type authService interface {
	Signup(ctx context.Context, req dto.SignupRequest) (*dto.AuthUser, *models.Session, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthUser, *models.Session, error)
	Logout(ctx context.Context, session *models.Session) error
	CheckEmail(ctx context.Context, req dto.EmailRequest) (bool, error)
	Me(ctx context.Context, userID int64) (*dto.AuthUser, error)
	ForgotPassword(ctx context.Context, req dto.EmailRequest) error
	ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) error
	GoogleAuthURL(signup bool) (string, error)
	GoogleCallback(ctx context.Context, code, state string) (*dto.AuthUser, *models.Session, error)
}

// AuthHandlerConfig carries cookie and popup settings.
type AuthHandlerConfig struct {
	Cookie         middleware.CookieConfig
	FrontendOrigin string
}

// popupPage hands the OAuth outcome to the window that opened the popup.
var popupPage = template.Must(template.New("oauth").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Google sign-in</title></head>
<body><script>
(function () {
  var payload = {{.Payload}};
  if (window.opener) {
    window.opener.postMessage(payload, {{.Origin}});
  }
  window.close();
})();
</script></body></html>`))

type popupData struct {
	Payload interface{}
	Origin  string
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
	config  AuthHandlerConfig
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService, config AuthHandlerConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{service: svc, config: config, logger: logger}
}

// Signup godoc
// @Summary Register an applicant account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.SignupRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}
	user, session, err := h.service.Signup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.establish(c, session)
	response.Created(c, dto.AuthResponse{Message: "Signup successful", User: *user})
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate user by email and password. A new login ends every other session of the same user.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	user, session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.establish(c, session)
	response.JSON(c, http.StatusOK, dto.AuthResponse{Message: "Login successful", User: *user}, nil)
}

// Logout godoc
// @Summary Logout current session
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), middleware.CurrentSession(c)); err != nil {
		response.Error(c, err)
		return
	}
	middleware.ClearSessionCookie(c, h.config.Cookie)
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Logged out"}, nil)
}

// CheckEmail godoc
// @Summary Check whether an email is registered
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.EmailRequest true "Email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/check-email [post]
func (h *AuthHandler) CheckEmail(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "email is required"))
		return
	}
	exists, err := h.service.CheckEmail(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.CheckEmailResponse{Exists: exists}, nil)
}

// Me godoc
// @Summary Current user
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	session := middleware.CurrentSession(c)
	if session == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.service.Me(c.Request.Context(), session.Data.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// ForgotPassword godoc
// @Summary Email a password reset link
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.EmailRequest true "Email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "email is required"))
		return
	}
	if err := h.service.ForgotPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Reset link sent to your email."}, nil)
}

// ResetPassword godoc
// @Summary Reset a password with an emailed token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body dto.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "token and new password required"))
		return
	}
	if err := h.service.ResetPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Password successfully updated!"}, nil)
}

// GoogleLogin godoc
// @Summary Start Google sign-in
// @Tags Authentication
// @Success 302 {string} string "redirect to Google"
// @Router /auth/google [get]
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	h.redirectToGoogle(c, false)
}

// GoogleSignup godoc
// @Summary Start Google sign-up
// @Description Unknown Google accounts are only created through this entry point.
// @Tags Authentication
// @Success 302 {string} string "redirect to Google"
// @Router /auth/google/signup [get]
func (h *AuthHandler) GoogleSignup(c *gin.Context) {
	h.redirectToGoogle(c, true)
}

// GoogleCallback godoc
// @Summary Complete Google sign-in
// @Description Responds with a page that posts the user, or an error message, to the opener window.
// @Tags Authentication
// @Produce html
// @Param code query string true "Authorization code"
// @Param state query string true "Signed state"
// @Success 200 {string} string "popup page"
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	if msg := c.Query("error"); msg != "" {
		h.renderPopup(c, dto.MessageResponse{Message: "Google Authentication Failed"})
		return
	}
	user, session, err := h.service.GoogleCallback(c.Request.Context(), c.Query("code"), c.Query("state"))
	if err != nil {
		h.logger.Info("google callback rejected", zap.Error(err))
		h.renderPopup(c, dto.MessageResponse{Message: appErrors.FromError(err).Message})
		return
	}
	h.establish(c, session)
	h.renderPopup(c, user)
}

func (h *AuthHandler) redirectToGoogle(c *gin.Context, signup bool) {
	url, err := h.service.GoogleAuthURL(signup)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (h *AuthHandler) establish(c *gin.Context, session *models.Session) {
	if session == nil {
		return
	}
	middleware.SetSessionCookie(c, h.config.Cookie, session)
	middleware.SetSession(c, session)
}

func (h *AuthHandler) renderPopup(c *gin.Context, payload interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := popupPage.Execute(c.Writer, popupData{Payload: payload, Origin: h.config.FrontendOrigin}); err != nil {
		h.logger.Error("failed to render oauth popup", zap.Error(err))
	}
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/service"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/response"
)

const profilePictureField = "profile_picture"

type profileService interface {
	Get(ctx context.Context, userID int64) (*dto.AuthUser, error)
	Update(ctx context.Context, userID int64, req dto.UpdateProfileRequest, picture *service.DocumentUpload) (*dto.AuthUser, error)
}

// ProfileHandler serves the admin's own profile.
type ProfileHandler struct {
	service profileService
}

// NewProfileHandler constructs the handler.
func NewProfileHandler(svc profileService) *ProfileHandler {
	return &ProfileHandler{service: svc}
}

// Get godoc
// @Summary Get the admin profile
// @Tags Admin Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Update godoc
// @Summary Update the admin profile
// @Tags Admin Profile
// @Accept multipart/form-data
// @Produce json
// @Param fullname formData string false "Full name"
// @Param email formData string false "Email"
// @Param password formData string false "New password"
// @Param profile_picture formData file false "Profile picture"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}
	picture, err := singleUpload(c, profilePictureField)
	if err != nil {
		response.Error(c, err)
		return
	}
	user, err := h.service.Update(c.Request.Context(), userID, req, picture)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/internal/service"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/response"
)

type applicationService interface {
	SaveDraft(ctx context.Context, userID int64, form dto.ApplicationForm, uploads []service.DocumentUpload) (int64, error)
	SubmitApplication(ctx context.Context, userID int64, form dto.ApplicationForm, uploads []service.DocumentUpload) (int64, error)
	SubmitDraft(ctx context.Context, userID, draftID int64) (int64, error)
	ListDrafts(ctx context.Context, userID int64) ([]models.Application, error)
	GetDraft(ctx context.Context, userID, draftID int64) (*models.Application, error)
	DeleteDraft(ctx context.Context, userID, draftID int64) error
	ListUserApplications(ctx context.Context, userID int64) ([]models.ApplicationView, error)
}

// ApplicationHandler serves the applicant submission endpoints.
type ApplicationHandler struct {
	service applicationService
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(svc applicationService) *ApplicationHandler {
	return &ApplicationHandler{service: svc}
}

// Submit godoc
// @Summary Submit an application
// @Description Submits a new application or converts a draft. Accepts the applicant fields and up to 14 document files.
// @Tags Applications
// @Accept multipart/form-data
// @Produce json
// @Param draft_id formData string false "Draft to convert"
// @Param program_name formData string false "Programme"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submit_application [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	userID, form, uploads, ok := h.bindForm(c)
	if !ok {
		return
	}
	id, err := h.service.SubmitApplication(c.Request.Context(), userID, form, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ApplicationIDResponse{Message: "Application submitted", ApplicationID: id})
}

// SaveDraft godoc
// @Summary Save an application draft
// @Tags Applications
// @Accept multipart/form-data
// @Produce json
// @Param draft_id formData string false "Draft to update"
// @Param program_name formData string false "Programme, required for new drafts"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submit_application/draft [post]
func (h *ApplicationHandler) SaveDraft(c *gin.Context) {
	userID, form, uploads, ok := h.bindForm(c)
	if !ok {
		return
	}
	id, err := h.service.SaveDraft(c.Request.Context(), userID, form, uploads)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DraftIDResponse{Message: "Draft saved", DraftID: id}, nil)
}

// SubmitDraft godoc
// @Summary Submit a stored draft
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.SubmitDraftRequest true "Draft id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submit_application/submit-draft [post]
func (h *ApplicationHandler) SubmitDraft(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SubmitDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID() <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "draftId is required"))
		return
	}
	id, err := h.service.SubmitDraft(c.Request.Context(), userID, req.ID())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ApplicationIDResponse{Message: "Application submitted", ApplicationID: id}, nil)
}

// ListDrafts godoc
// @Summary List the caller's drafts
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /submit_application/drafts [get]
func (h *ApplicationHandler) ListDrafts(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	drafts, err := h.service.ListDrafts(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, drafts, nil)
}

// GetDraft godoc
// @Summary Get one draft
// @Tags Applications
// @Produce json
// @Param id path int true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submit_application/drafts/{id} [get]
func (h *ApplicationHandler) GetDraft(c *gin.Context) {
	userID, draftID, ok := userAndPathID(c)
	if !ok {
		return
	}
	draft, err := h.service.GetDraft(c.Request.Context(), userID, draftID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, draft, nil)
}

// DeleteDraft godoc
// @Summary Delete one draft
// @Tags Applications
// @Produce json
// @Param id path int true "Draft ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submit_application/drafts/{id} [delete]
func (h *ApplicationHandler) DeleteDraft(c *gin.Context) {
	userID, draftID, ok := userAndPathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteDraft(c.Request.Context(), userID, draftID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Draft deleted"}, nil)
}

// ListMine godoc
// @Summary List the caller's submitted applications
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /profile/applications [get]
func (h *ApplicationHandler) ListMine(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	apps, err := h.service.ListUserApplications(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, nil)
}

func (h *ApplicationHandler) bindForm(c *gin.Context) (int64, dto.ApplicationForm, []service.DocumentUpload, bool) {
	var form dto.ApplicationForm
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return 0, form, nil, false
	}
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return 0, form, nil, false
	}
	uploads, err := documentUploads(c)
	if err != nil {
		response.Error(c, err)
		return 0, form, nil, false
	}
	return userID, form, uploads, true
}

func userAndPathID(c *gin.Context) (int64, int64, bool) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return 0, 0, false
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return 0, 0, false
	}
	return userID, id, true
}

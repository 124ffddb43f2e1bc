package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/response"
)

type reviewService interface {
	ListApplications(ctx context.Context, query dto.ApplicationListQuery) ([]models.ApplicationView, error)
	GetApplication(ctx context.Context, id int64) (*models.ApplicationView, error)
	SetApplicationStatus(ctx context.Context, adminID, id int64, req dto.UpdateApplicationStatusRequest) (*dto.StatusUpdateResult, error)
	SetDocumentStatus(ctx context.Context, adminID, id int64, req dto.UpdateDocumentStatusRequest) (*dto.DocumentStatusResult, error)
	SupportedDocumentStatuses(ctx context.Context) (*dto.SupportedDocumentStatuses, error)
	ToggleFileVerification(ctx context.Context, adminID, id int64, fileKey string, verified *bool) (*models.ApplicationView, error)
	AddDocumentRemark(ctx context.Context, adminID, id int64, documentName string, req dto.DocumentRemarkRequest) (*models.LatestRemark, error)
	GetDocumentRemark(ctx context.Context, id int64, documentName string) (*models.LatestRemark, error)
	ListDocumentRemarks(ctx context.Context, id int64, documentName string) ([]models.DocumentRemark, error)
}

// ReviewHandler serves the admin review endpoints.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(svc reviewService) *ReviewHandler {
	return &ReviewHandler{service: svc}
}

// List godoc
// @Summary List applications
// @Tags Admin Applications
// @Produce json
// @Param status query string false "Pending, Accepted, Rejected or Draft"
// @Param program query string false "Programme name"
// @Param include_drafts query bool false "Include drafts when no status is given"
// @Success 200 {object} response.Envelope
// @Router /admin/applications [get]
func (h *ReviewHandler) List(c *gin.Context) {
	var query dto.ApplicationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	apps, err := h.service.ListApplications(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, nil)
}

// Get godoc
// @Summary Get one application
// @Tags Admin Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/{id} [get]
func (h *ReviewHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	app, err := h.service.GetApplication(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// SetStatus godoc
// @Summary Change an application's status
// @Description Accepting verifies every uploaded file, rejecting clears verification and pending resets document review statuses.
// @Tags Admin Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.UpdateApplicationStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/{id}/status [put]
func (h *ReviewHandler) SetStatus(c *gin.Context) {
	adminID, id, ok := userAndPathID(c)
	if !ok {
		return
	}
	var req dto.UpdateApplicationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	result, err := h.service.SetApplicationStatus(c.Request.Context(), adminID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SetDocumentStatus godoc
// @Summary Set a document review status
// @Tags Admin Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.UpdateDocumentStatusRequest true "Document status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/{id}/documents [put]
func (h *ReviewHandler) SetDocumentStatus(c *gin.Context) {
	adminID, id, ok := userAndPathID(c)
	if !ok {
		return
	}
	var req dto.UpdateDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document status payload"))
		return
	}
	result, err := h.service.SetDocumentStatus(c.Request.Context(), adminID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SupportedStatuses godoc
// @Summary List documents with a review status column
// @Tags Admin Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/document-status-supported [get]
func (h *ReviewHandler) SupportedStatuses(c *gin.Context) {
	supported, err := h.service.SupportedDocumentStatuses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, supported, nil)
}

// ToggleVerification godoc
// @Summary Verify or unverify an uploaded file
// @Description verified=1 marks the file verified, verified=0 clears it and an absent flag only marks it when missing.
// @Tags Admin Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param documentName path string true "Document key"
// @Param payload body dto.VerifyFileRequest false "Verification flag"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/{id}/documents/{documentName}/verify [put]
func (h *ReviewHandler) ToggleVerification(c *gin.Context) {
	adminID, id, ok := userAndPathID(c)
	if !ok {
		return
	}
	var req dto.VerifyFileRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "verified must be 0 or 1"))
			return
		}
	}
	app, err := h.service.ToggleFileVerification(c.Request.Context(), adminID, id, c.Param("documentName"), req.Verified.Ptr())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app, nil)
}

// AddRemark godoc
// @Summary Append a document remark
// @Tags Admin Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param documentName path string true "Document key"
// @Param payload body dto.DocumentRemarkRequest true "Remark"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/{id}/documents/{documentName}/remarks [post]
func (h *ReviewHandler) AddRemark(c *gin.Context) {
	adminID, id, ok := userAndPathID(c)
	if !ok {
		return
	}
	var req dto.DocumentRemarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid remark payload"))
		return
	}
	req.Remark = strings.TrimSpace(req.Remark)
	remark, err := h.service.AddDocumentRemark(c.Request.Context(), adminID, id, c.Param("documentName"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, remark)
}

// LatestRemark godoc
// @Summary Get the latest remark for a document
// @Tags Admin Applications
// @Produce json
// @Param id path int true "Application ID"
// @Param documentName path string true "Document key"
// @Success 200 {object} response.Envelope
// @Router /admin/applications/{id}/documents/{documentName}/remark [get]
func (h *ReviewHandler) LatestRemark(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	remark, err := h.service.GetDocumentRemark(c.Request.Context(), id, c.Param("documentName"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, remark, nil)
}

// ListRemarks godoc
// @Summary List every remark for a document
// @Tags Admin Applications
// @Produce json
// @Param id path int true "Application ID"
// @Param documentName path string true "Document key"
// @Success 200 {object} response.Envelope
// @Router /admin/applications/{id}/documents/{documentName}/remarks [get]
func (h *ReviewHandler) ListRemarks(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	remarks, err := h.service.ListDocumentRemarks(c.Request.Context(), id, c.Param("documentName"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, remarks, nil)
}

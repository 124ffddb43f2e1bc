package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	appErrors "github.com/noah-isme/admissions-api/pkg/errors"
	"github.com/noah-isme/admissions-api/pkg/response"
)

type activityService interface {
	Record(ctx context.Context, userID int64, req dto.ActivityLogRequest) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLogEntry, *models.Pagination, error)
}

// ActivityHandler exposes the admin audit trail.
type ActivityHandler struct {
	service activityService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(svc activityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List admin activity
// @Tags Admin Activity
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/activity-logs [get]
func (h *ActivityHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	entries, pagination, err := h.service.List(c.Request.Context(), models.ActivityFilter{Page: page, PageSize: limit})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Record godoc
// @Summary Record a client-side admin event
// @Tags Admin Activity
// @Accept json
// @Produce json
// @Param payload body dto.ActivityLogRequest true "Event"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/log [post]
func (h *ActivityHandler) Record(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ActivityLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}
	if err := h.service.Record(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.MessageResponse{Message: "Activity logged"})
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-api/internal/dto"
	"github.com/noah-isme/admissions-api/internal/models"
	"github.com/noah-isme/admissions-api/pkg/response"
)

type trashService interface {
	Trash(ctx context.Context, adminID, id int64) (*models.TrashedApplication, error)
	Restore(ctx context.Context, adminID, trashID int64) (*models.Application, error)
	List(ctx context.Context) ([]models.TrashView, error)
	Delete(ctx context.Context, adminID, trashID int64) error
}

// TrashHandler serves the recovery area endpoints.
type TrashHandler struct {
	service trashService
}

// NewTrashHandler constructs the handler.
func NewTrashHandler(svc trashService) *TrashHandler {
	return &TrashHandler{service: svc}
}

// Trash godoc
// @Summary Move an application to the trash
// @Tags Admin Trash
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/{id} [delete]
func (h *TrashHandler) Trash(c *gin.Context) {
	adminID, id, ok := userAndPathID(c)
	if !ok {
		return
	}
	item, err := h.service.Trash(c.Request.Context(), adminID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Application moved to trash", "trashId": item.ID}, nil)
}

// List godoc
// @Summary List trashed applications
// @Tags Admin Trash
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/applications/trash [get]
func (h *TrashHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Restore godoc
// @Summary Restore a trashed application
// @Tags Admin Trash
// @Produce json
// @Param id path int true "Trash ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/applications/trash/{id}/restore [post]
func (h *TrashHandler) Restore(c *gin.Context) {
	adminID, id, ok := userAndPathID(c)
	if !ok {
		return
	}
	app, err := h.service.Restore(c.Request.Context(), adminID, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Application restored", "applicationId": app.ID}, nil)
}

// Delete godoc
// @Summary Permanently delete a trashed application
// @Tags Admin Trash
// @Produce json
// @Param id path int true "Trash ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/applications/trash/{id} [delete]
func (h *TrashHandler) Delete(c *gin.Context) {
	adminID, id, ok := userAndPathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), adminID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.MessageResponse{Message: "Trashed application permanently deleted"}, nil)
}

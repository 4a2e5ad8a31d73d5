package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-app/studyhub-api/internal/service"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/response"
)

// ActivityHandler wires HTTP endpoints to the activity service.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// List godoc
// @Summary List activity
// @Description List the project's activity log, newest first
// @Tags Activity
// @Produce json
// @Param id path string true "Project ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/activity [get]
func (h *ActivityHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	entries, pagination, err := h.service.List(c.Request.Context(), claims.UserID, c.Param("id"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, pagination)
}

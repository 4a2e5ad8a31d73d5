package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-app/studyhub-api/internal/service"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/response"
)

// AnalyticsHandler wires HTTP endpoints to the analytics service.
type AnalyticsHandler struct {
	service *service.AnalyticsService
}

// NewAnalyticsHandler creates a new handler.
func NewAnalyticsHandler(svc *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: svc}
}

// Study godoc
// @Summary Study analytics
// @Description Study time totals and breakdowns over the last twelve weeks
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/study [get]
func (h *AnalyticsHandler) Study(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	analytics, err := h.service.Study(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, analytics, nil)
}

// Dashboard godoc
// @Summary Dashboard stats
// @Description Project counts, overdue tally and recent study minutes
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.service.Dashboard(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}

// Export godoc
// @Summary Export study analytics
// @Description Download study analytics as CSV or PDF
// @Tags Analytics
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /analytics/study/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.service.ExportStudy(c.Request.Context(), claims.UserID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

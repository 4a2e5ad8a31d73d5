package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-app/studyhub-api/internal/models"
	"github.com/studyhub-app/studyhub-api/internal/service"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/response"
)

// SearchHandler wires HTTP endpoints to the search service.
type SearchHandler struct {
	service *service.SearchService
}

// NewSearchHandler creates a new handler.
func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search godoc
// @Summary Search
// @Description Substring search across the caller's visible projects, tasks, comments and files
// @Tags Search
// @Produce json
// @Param q query string true "Search query, 2 characters minimum"
// @Param types query string false "Comma-separated subset of projects,tasks,comments,files"
// @Param limit query int false "Max results per entity type"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	filter := models.SearchFilter{Limit: limit}
	if types := c.Query("types"); types != "" {
		filter.Types = strings.Split(types, ",")
	}

	results, err := h.service.Search(c.Request.Context(), claims.UserID, c.Query("q"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, results, nil, map[string]interface{}{"total": results.Total()})
}

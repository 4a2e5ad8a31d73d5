package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-app/studyhub-api/internal/service"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/response"
)

// CommentHandler wires HTTP endpoints to the comment service.
type CommentHandler struct {
	service *service.CommentService
}

// NewCommentHandler creates a new handler.
func NewCommentHandler(svc *service.CommentService) *CommentHandler {
	return &CommentHandler{service: svc}
}

// Create godoc
// @Summary Post comment
// @Description Post a comment on the project discussion thread
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body service.CreateCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}

	comment, err := h.service.Create(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, comment)
}

// List godoc
// @Summary List comments
// @Description List the project's comments, newest first
// @Tags Comments
// @Produce json
// @Param id path string true "Project ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	comments, pagination, err := h.service.List(c.Request.Context(), claims.UserID, c.Param("id"), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, comments, pagination)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-app/studyhub-api/internal/service"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/response"
)

// CollaborationHandler wires HTTP endpoints to the collaboration service.
type CollaborationHandler struct {
	service *service.CollaborationService
}

// NewCollaborationHandler creates a new handler.
func NewCollaborationHandler(svc *service.CollaborationService) *CollaborationHandler {
	return &CollaborationHandler{service: svc}
}

// Invite godoc
// @Summary Invite collaborator
// @Description Add a user to the project by email
// @Tags Collaboration
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body service.InviteRequest true "Invite payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/collaborators [post]
func (h *CollaborationHandler) Invite(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invite payload"))
		return
	}

	collab, err := h.service.Invite(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, collab)
}

// List godoc
// @Summary List collaborators
// @Description List the project's collaborators
// @Tags Collaboration
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/collaborators [get]
func (h *CollaborationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	collabs, err := h.service.List(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, collabs, nil)
}

// ChangeRole godoc
// @Summary Change collaborator role
// @Description Switch a collaborator between collaborator and viewer
// @Tags Collaboration
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param userId path string true "Collaborator user ID"
// @Param payload body service.ChangeRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/collaborators/{userId} [put]
func (h *CollaborationHandler) ChangeRole(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid role payload"))
		return
	}

	collab, err := h.service.ChangeRole(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("userId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, collab, nil)
}

// Remove godoc
// @Summary Remove collaborator
// @Description Remove a user from the project
// @Tags Collaboration
// @Produce json
// @Param id path string true "Project ID"
// @Param userId path string true "Collaborator user ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/collaborators/{userId} [delete]
func (h *CollaborationHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Remove(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// TransferOwnership godoc
// @Summary Transfer ownership
// @Description Hand the project to a new owner, demoting the current one
// @Tags Collaboration
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param payload body service.TransferOwnershipRequest true "Transfer payload"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/transfer-ownership [post]
func (h *CollaborationHandler) TransferOwnership(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transfer payload"))
		return
	}

	if err := h.service.TransferOwnership(c.Request.Context(), claims.UserID, c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

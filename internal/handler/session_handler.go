package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-app/studyhub-api/internal/service"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/response"
)

// SessionHandler wires HTTP endpoints to the study session service.
type SessionHandler struct {
	service *service.SessionService
	metrics *service.MetricsService
}

// NewSessionHandler creates a new handler.
func NewSessionHandler(svc *service.SessionService, metrics *service.MetricsService) *SessionHandler {
	return &SessionHandler{service: svc, metrics: metrics}
}

// Start godoc
// @Summary Start study session
// @Description Open a study timer, optionally bound to a project
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.StartSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions [post]
func (h *SessionHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.service.Start(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.SessionStarted()
	response.Created(c, session)
}

// Current godoc
// @Summary Current session
// @Description Get the caller's open study session
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/current [get]
func (h *SessionHandler) Current(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.Current(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Pause godoc
// @Summary Pause session
// @Description Freeze the open session's timer
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/pause [post]
func (h *SessionHandler) Pause(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.Pause(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Resume godoc
// @Summary Resume session
// @Description Restart a paused session's timer
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/resume [post]
func (h *SessionHandler) Resume(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.service.Resume(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// Stop godoc
// @Summary Stop session
// @Description Complete the open session and record its duration
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.StopSessionRequest true "Stop payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/stop [post]
func (h *SessionHandler) Stop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.StopSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	session, err := h.service.Stop(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.SessionEnded()
	response.JSON(c, http.StatusOK, session, nil)
}

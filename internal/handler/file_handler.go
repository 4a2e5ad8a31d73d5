package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/studyhub-app/studyhub-api/internal/service"
	appErrors "github.com/studyhub-app/studyhub-api/pkg/errors"
	"github.com/studyhub-app/studyhub-api/pkg/response"
)

// FileHandler wires HTTP endpoints to the file service.
type FileHandler struct {
	service *service.FileService
}

// NewFileHandler creates a new handler.
func NewFileHandler(svc *service.FileService) *FileHandler {
	return &FileHandler{service: svc}
}

// Upload godoc
// @Summary Upload file
// @Description Attach a file to the project via multipart form
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Project ID"
// @Param file formData file true "File to upload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/files [post]
func (h *FileHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field is required"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer src.Close()

	file, err := h.service.Upload(c.Request.Context(), claims.UserID, c.Param("id"), fileHeader.Filename, fileHeader.Size, src)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, file)
}

// List godoc
// @Summary List files
// @Description List the project's file attachments
// @Tags Files
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{id}/files [get]
func (h *FileHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	files, err := h.service.List(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, files, nil)
}

// Delete godoc
// @Summary Delete file
// @Description Remove a file attachment and its stored bytes
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /files/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// DownloadGrant godoc
// @Summary Issue download token
// @Description Issue a short-lived signed token for the file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /files/{id}/download [post]
func (h *FileHandler) DownloadGrant(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	grant, err := h.service.DownloadGrant(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grant, nil)
}

// Download godoc
// @Summary Download file
// @Description Stream file bytes for a valid signed token
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /files/download [get]
func (h *FileHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter is required"))
		return
	}

	file, path, err := h.service.Resolve(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.FileAttachment(path, file.OriginalName)
}

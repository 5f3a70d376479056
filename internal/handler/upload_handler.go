package handler

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/response"
	"github.com/noah-isme/blog-api/pkg/storage"
)

// UploadHandler serves stored avatar and thumbnail files.
type UploadHandler struct {
	uploads *storage.UploadStorage
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(uploads *storage.UploadStorage) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Serve godoc
// @Summary Serve uploaded file
// @Description Streams a stored avatar or thumbnail by its relative path
// @Tags Ops
// @Produce image/png
// @Produce image/jpeg
// @Param filepath path string true "Relative file path, e.g. avatar/123.png"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /uploads/{filepath} [get]
func (h *UploadHandler) Serve(c *gin.Context) {
	rel := strings.TrimLeft(c.Param("filepath"), "/")
	clean := path.Clean(rel)
	// Reject anything escaping the uploads directory.
	if clean == "." || strings.HasPrefix(clean, "..") || path.IsAbs(clean) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file path"))
		return
	}

	file, err := h.uploads.Open(clean)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "file not found"))
		return
	}

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}

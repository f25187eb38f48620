package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/service"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

// mediaMaxAge is how long browsers may cache served media, in seconds.
const mediaMaxAge = 86400

type mediaService interface {
	Upload(ctx context.Context, actor *models.JWTClaims, upload service.MediaUpload, meta service.AuditMeta) (*models.MediaAsset, error)
	Open(ctx context.Context, id string) (*service.MediaDownload, error)
}

// MediaHandler manages uploaded images and documents.
type MediaHandler struct {
	service mediaService
}

// NewMediaHandler constructs the handler.
func NewMediaHandler(svc mediaService) *MediaHandler {
	return &MediaHandler{service: svc}
}

// Upload godoc
// @Summary Upload an image or PDF
// @Tags Admin
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image or PDF"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/media [post]
func (h *MediaHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}
	upload := service.MediaUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		Content:  reader,
	}
	asset, err := h.service.Upload(c.Request.Context(), claimsFromContext(c), upload, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, asset)
}

// Serve godoc
// @Summary Fetch an uploaded file
// @Tags Archive
// @Produce octet-stream
// @Param id path string true "Media ID"
// @Success 200 {file} binary
// @Success 302
// @Failure 404 {object} response.Envelope
// @Router /media/{id} [get]
func (h *MediaHandler) Serve(c *gin.Context) {
	download, err := h.service.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if download.RedirectURL != "" {
		c.Redirect(http.StatusFound, download.RedirectURL)
		return
	}
	defer download.Object.Body.Close() //nolint:errcheck
	response.Inline(c, download.Asset.OriginalName, download.Object.ContentType, download.Object.Size, download.Object.Body, mediaMaxAge)
}

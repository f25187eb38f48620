package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/dto"
	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/service"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

type archiveAdminService interface {
	Create(ctx context.Context, actor *models.JWTClaims, payload *dto.ArchivePayload, meta service.AuditMeta) (*dto.ArchiveWriteResult, error)
	Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.ArchiveItem, error)
	Update(ctx context.Context, actor *models.JWTClaims, id string, payload *dto.ArchivePayload, meta service.AuditMeta) (*dto.ArchiveWriteResult, error)
	Delete(ctx context.Context, actor *models.JWTClaims, id string, meta service.AuditMeta) error
	ListContent(ctx context.Context, actor *models.JWTClaims, filter dto.ContentFilter) ([]models.ArchiveItem, *models.Pagination, error)
}

type archiveExporter interface {
	Export(ctx context.Context, actor *models.JWTClaims, format string) (*service.ExportFile, error)
}

// ArchiveHandler manages staff archive endpoints.
type ArchiveHandler struct {
	service  archiveAdminService
	exporter archiveExporter
}

// NewArchiveHandler constructs the handler.
func NewArchiveHandler(svc archiveAdminService, exporter archiveExporter) *ArchiveHandler {
	return &ArchiveHandler{service: svc, exporter: exporter}
}

// Create godoc
// @Summary Create archive entry
// @Description Flat JSON body: base fields, subType, variant fields and bodyContent
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body object true "Entry form"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/add [post]
func (h *ArchiveHandler) Create(c *gin.Context) {
	payload, ok := bindArchivePayload(c)
	if !ok {
		return
	}
	res, err := h.service.Create(c.Request.Context(), claimsFromContext(c), payload, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Get godoc
// @Summary Get archive entry for editing
// @Tags Admin
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/{id} [get]
func (h *ArchiveHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Update godoc
// @Summary Replace archive entry
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body object true "Entry form"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/{id} [put]
func (h *ArchiveHandler) Update(c *gin.Context) {
	payload, ok := bindArchivePayload(c)
	if !ok {
		return
	}
	res, err := h.service.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), payload, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Delete godoc
// @Summary Delete archive entry
// @Tags Admin
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/{id} [delete]
func (h *ArchiveHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id"), auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Entry deleted"}, nil)
}

// ContentManagement godoc
// @Summary List the caller's entries
// @Tags Admin
// @Produce json
// @Param q query string false "Filter by title, slug, category or sub-type"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /admin/content-management [get]
func (h *ArchiveHandler) ContentManagement(c *gin.Context) {
	filter := dto.ContentFilter{
		Query: strings.TrimSpace(c.Query("q")),
		Page:  queryPage(c),
	}
	items, pagination, err := h.service.ListContent(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Export godoc
// @Summary Export the caller's entries
// @Tags Admin
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/content-management/export [get]
func (h *ArchiveHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrServiceUnavailable, "export not configured"))
		return
	}
	file, err := h.exporter.Export(c.Request.Context(), claimsFromContext(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

func bindArchivePayload(c *gin.Context) (*dto.ArchivePayload, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to read payload"))
		return nil, false
	}
	payload, err := dto.ParseArchivePayload(raw)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, err.Error()))
		return nil, false
	}
	return payload, true
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

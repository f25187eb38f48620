package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/dto"
	"github.com/noah-isme/chilahati-archive-api/internal/middleware"
	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

type archiveReader interface {
	Categories() []models.CategorySpec
	ResolveCategoryView(ctx context.Context, category string) (*dto.CategoryView, bool, error)
	ListBySubType(ctx context.Context, category, subType string) (*dto.SubTypeListing, bool, error)
	GetEntryBySlug(ctx context.Context, slug string) (*models.ArchiveItem, bool, error)
}

// PublicHandler serves the anonymous browse endpoints.
type PublicHandler struct {
	service archiveReader
}

// NewPublicHandler constructs the handler.
func NewPublicHandler(svc archiveReader) *PublicHandler {
	return &PublicHandler{service: svc}
}

// Categories godoc
// @Summary Category form schema
// @Tags Archive
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *PublicHandler) Categories(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Categories(), nil)
}

// Category godoc
// @Summary Browse a category
// @Description Returns sub-categories when the category has stored sub-types, otherwise the entry list
// @Tags Archive
// @Produce json
// @Param category path string true "Category slug"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /archive/{category} [get]
func (h *PublicHandler) Category(c *gin.Context) {
	view, hit, err := h.service.ResolveCategoryView(c.Request.Context(), c.Param("category"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// SubType godoc
// @Summary Browse one sub-type of a category
// @Tags Archive
// @Produce json
// @Param category path string true "Category slug"
// @Param subType path string true "Sub-type"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /archive/{category}/{subType} [get]
func (h *PublicHandler) SubType(c *gin.Context) {
	listing, hit, err := h.service.ListBySubType(c.Request.Context(), c.Param("category"), c.Param("subType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, listing, nil, middleware.ExtractMeta(c))
}

// Entry godoc
// @Summary Read one entry
// @Tags Archive
// @Produce json
// @Param slug path string true "Entry slug"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entry/{slug} [get]
func (h *PublicHandler) Entry(c *gin.Context) {
	item, hit, err := h.service.GetEntryBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, item, nil, middleware.ExtractMeta(c))
}

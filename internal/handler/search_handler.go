package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/dto"
	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

type archiveSearchService interface {
	Search(ctx context.Context, q string, page int) (*dto.SearchResult, *models.Pagination, error)
}

// SearchHandler serves full-text search.
type SearchHandler struct {
	service archiveSearchService
}

// NewSearchHandler constructs the handler.
func NewSearchHandler(svc archiveSearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search godoc
// @Summary Search entries
// @Tags Archive
// @Produce json
// @Param q query string false "Search term"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	result, pagination, err := h.service.Search(c.Request.Context(), c.Query("q"), queryPage(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, pagination)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

type contributeService interface {
	Submit(ctx context.Context, actor *models.JWTClaims, req models.ContributeRequest) error
}

// ContributeHandler accepts messages for the contribution inbox.
type ContributeHandler struct {
	service contributeService
}

// NewContributeHandler constructs the handler.
func NewContributeHandler(svc contributeService) *ContributeHandler {
	return &ContributeHandler{service: svc}
}

// Submit godoc
// @Summary Send a contribution
// @Tags Contribute
// @Accept json
// @Produce json
// @Param payload body models.ContributeRequest true "Message"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /contribute [post]
func (h *ContributeHandler) Submit(c *gin.Context) {
	var req models.ContributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contribution payload"))
		return
	}
	if err := h.service.Submit(c.Request.Context(), claimsFromContext(c), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"message": "Thank you! Your contribution has been sent."}, nil)
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/service"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
	"github.com/noah-isme/chilahati-archive-api/pkg/response"
)

type userService interface {
	ChangePassword(ctx context.Context, actor *models.JWTClaims, req models.ChangePasswordRequest, meta service.AuditMeta) error
	UpdateUsername(ctx context.Context, actor *models.JWTClaims, req models.UpdateUsernameRequest, meta service.AuditMeta) (*models.LoginResponse, error)
	DeleteAccount(ctx context.Context, actor *models.JWTClaims, req models.DeleteAccountRequest, meta service.AuditMeta) error
}

// UserHandler exposes self-service account endpoints.
type UserHandler struct {
	service userService
	cookie  SessionCookie
}

// NewUserHandler constructs a handler.
func NewUserHandler(svc userService, cookie SessionCookie) *UserHandler {
	return &UserHandler{service: svc, cookie: cookie}
}

// ChangePassword godoc
// @Summary Change password
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Passwords"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /user/change-password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid change password payload"))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), claimsFromContext(c), req, auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"message": "Password updated"}, nil)
}

// UpdateUsername godoc
// @Summary Rename the current user
// @Description Reissues the session cookie with the new username
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.UpdateUsernameRequest true "New username"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /user/update-username [post]
func (h *UserHandler) UpdateUsername(c *gin.Context) {
	var req models.UpdateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid username payload"))
		return
	}
	res, err := h.service.UpdateUsername(c.Request.Context(), claimsFromContext(c), req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.cookie.set(c, res.Token, res.ExpiresAt)
	response.JSON(c, http.StatusOK, res, nil)
}

// DeleteAccount godoc
// @Summary Delete the current account
// @Tags Users
// @Accept json
// @Produce json
// @Param payload body models.DeleteAccountRequest true "Password confirmation"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /user/delete-account [post]
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	var req models.DeleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid delete account payload"))
		return
	}
	if err := h.service.DeleteAccount(c.Request.Context(), claimsFromContext(c), req, auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	h.cookie.clear(c)
	response.JSON(c, http.StatusOK, gin.H{"message": "Account deleted"}, nil)
}

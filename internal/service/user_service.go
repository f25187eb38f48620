package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/repository"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	UpdateUsername(ctx context.Context, id, username string, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type sessionIssuer interface {
	IssueToken(info models.UserInfo) (string, time.Time, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// UserService handles self-service account changes for signed-in users.
type UserService struct {
	repo       userRepository
	audit      auditWriter
	sessions   sessionIssuer
	cache      cacheInvalidator
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit auditWriter, sessions sessionIssuer, cache cacheInvalidator, logger *zap.Logger, bcryptCost int) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, audit: audit, sessions: sessions, cache: cache, logger: logger, bcryptCost: bcryptCost}
}

// ChangePassword replaces the actor's password after confirming the current one.
func (s *UserService) ChangePassword(ctx context.Context, actor *models.JWTClaims, req models.ChangePasswordRequest, meta AuditMeta) error {
	if req.CurrentPassword == "" || req.NewPassword == "" || req.ConfirmPassword == "" {
		return appErrors.Clone(appErrors.ErrValidation, "all password fields are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return appErrors.Clone(appErrors.ErrValidation, "new passwords do not match")
	}
	if len(req.NewPassword) < minPasswordLength {
		return appErrors.Clone(appErrors.ErrValidation, "new password must be at least 8 characters")
	}

	user, err := s.loadActor(ctx, actor)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}
	if req.NewPassword == req.CurrentPassword {
		return appErrors.Clone(appErrors.ErrValidation, "new password must be different from the current one")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.bcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	recordAudit(ctx, s.audit, s.logger, &user.ID, models.AuditActionPasswordChange, "user", user.ID, nil, meta)
	return nil
}

// UpdateUsername renames the actor and returns a fresh session for the new name.
func (s *UserService) UpdateUsername(ctx context.Context, actor *models.JWTClaims, req models.UpdateUsernameRequest, meta AuditMeta) (*models.LoginResponse, error) {
	newName := strings.TrimSpace(req.NewUsername)
	if newName == "" || req.Password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new username and password are required")
	}
	if n := len([]rune(newName)); n < 3 || n > 30 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "username must be 3-30 characters")
	}

	user, err := s.loadActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "password is incorrect")
	}
	if newName == user.Username {
		return nil, appErrors.Clone(appErrors.ErrValidation, "new username is the same as the current one")
	}

	taken, err := s.repo.FindByUsername(ctx, newName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken != nil && taken.ID != user.ID {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
	}

	if err := s.repo.UpdateUsername(ctx, user.ID, newName, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "username is already taken")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update username")
	}
	s.invalidateArchive(ctx)

	info := models.UserInfo{ID: user.ID, Username: newName, Email: user.Email, Role: user.Role}
	token, expiresAt, err := s.sessions.IssueToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to refresh session")
	}
	recordAudit(ctx, s.audit, s.logger, &user.ID, models.AuditActionUsernameChange, "user", user.ID,
		map[string]interface{}{"from": user.Username, "to": newName}, meta)
	return &models.LoginResponse{User: info, Token: token, ExpiresAt: expiresAt}, nil
}

// DeleteAccount removes the actor's account. Authored items stay with a null author.
func (s *UserService) DeleteAccount(ctx context.Context, actor *models.JWTClaims, req models.DeleteAccountRequest, meta AuditMeta) error {
	if req.Password == "" {
		return appErrors.Clone(appErrors.ErrValidation, "password is required")
	}
	user, err := s.loadActor(ctx, actor)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "password is incorrect")
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	s.invalidateArchive(ctx)
	recordAudit(ctx, s.audit, s.logger, nil, models.AuditActionUserDelete, "user", user.ID,
		map[string]interface{}{"username": user.Username}, meta)
	return nil
}

func (s *UserService) loadActor(ctx context.Context, actor *models.JWTClaims) (*models.User, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Cached entries embed author usernames.
func (s *UserService) invalidateArchive(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, archiveCachePattern); err != nil {
		s.logger.Warn("failed to invalidate archive cache", zap.Error(err))
	}
}

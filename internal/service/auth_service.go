package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/repository"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
)

const minPasswordLength = 8

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	SetVerificationToken(ctx context.Context, id, token string, issuedAt time.Time) error
	MarkVerified(ctx context.Context, id, token string, at time.Time) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, id, token, passwordHash string, at time.Time) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type accountMailer interface {
	SendVerification(ctx context.Context, to, username, token string) error
	QueuePasswordReset(to, username, token string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	SessionSecret   string
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	ResetTokenTTL   time.Duration
	BcryptCost      int
	Issuer          string
}

// AuditMeta carries request details recorded in the audit trail.
type AuditMeta struct {
	IP        string
	UserAgent string
}

// RegisterResult is returned after a successful registration.
type RegisterResult struct {
	Message string `json:"message"`
}

// AuthService provides registration, verification, login and password reset.
type AuthService struct {
	repo      authUserRepository
	audit     auditWriter
	mail      accountMailer
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, audit auditWriter, mail accountMailer, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	if config.VerificationTTL <= 0 {
		config.VerificationTTL = time.Hour
	}
	if config.ResetTokenTTL <= 0 {
		config.ResetTokenTTL = time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, audit: audit, mail: mail, validator: validate, logger: logger, config: config, now: func() time.Time { return time.Now().UTC() }}
}

// Register creates an unverified account and emails its verification link.
// A collision with an unverified account reissues that account's link.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest, meta AuditMeta) (*RegisterResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, registerValidationMessage(err))
	}

	existing, err := s.repo.FindByEmailOrUsername(ctx, req.Email, req.Username)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing account")
	}
	if existing != nil {
		return nil, s.handleExistingRegistration(ctx, existing)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	token, err := randomToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create verification token")
	}
	issuedAt := s.now()
	user := &models.User{
		Username:             req.Username,
		Email:                req.Email,
		PasswordHash:         string(hash),
		Role:                 models.RoleUser,
		VerificationToken:    &token,
		VerificationIssuedAt: &issuedAt,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or username is already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	if err := s.mail.SendVerification(ctx, user.Email, user.Username, token); err != nil {
		s.logger.Warn("verification mail failed, rolling back account", zap.String("user_id", user.ID), zap.Error(err))
		if delErr := s.repo.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("failed to roll back unverified account", zap.String("user_id", user.ID), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send verification email, please check your email and try again")
	}

	s.record(ctx, &user.ID, models.AuditActionRegister, "auth", user.ID, map[string]interface{}{"username": user.Username}, meta)

	return &RegisterResult{
		Message: fmt.Sprintf("Registration successful! We have sent a verification email to %s. Please check your inbox.", user.Email),
	}, nil
}

func (s *AuthService) handleExistingRegistration(ctx context.Context, existing *models.User) error {
	if existing.IsVerified {
		return appErrors.Clone(appErrors.ErrConflict, "email or username is already registered, please log in")
	}
	token, err := randomToken()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create verification token")
	}
	if err := s.repo.SetVerificationToken(ctx, existing.ID, token, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reissue verification token")
	}
	if err := s.mail.SendVerification(ctx, existing.Email, existing.Username, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send verification email")
	}
	return appErrors.Clone(appErrors.ErrConflict, "an unverified account with this email or username already exists, a new verification link has been sent")
}

func registerValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid registration payload"
	}
	switch verrs[0].Field() {
	case "Username":
		return "username must be 3-30 characters"
	case "Email":
		return "a valid email is required"
	case "Password":
		return "password must be at least 8 characters"
	}
	return "invalid registration payload"
}

// Verify redeems a verification token. Unknown or used tokens are not found;
// tokens older than the verification window are rejected.
func (s *AuthService) Verify(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return appErrors.Clone(appErrors.ErrNotFound, "invalid or already used verification link")
	}
	user, err := s.repo.FindByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "invalid or already used verification link")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load verification token")
	}

	issuedAt := user.CreatedAt
	if user.VerificationIssuedAt != nil {
		issuedAt = *user.VerificationIssuedAt
	}
	now := s.now()
	if now.Sub(issuedAt) > s.config.VerificationTTL {
		return appErrors.Clone(appErrors.ErrTokenExpired, "verification link has expired, please register again")
	}

	if err := s.repo.MarkVerified(ctx, user.ID, token, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "invalid or already used verification link")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify account")
	}
	s.record(ctx, &user.ID, models.AuditActionVerify, "auth", user.ID, nil, AuditMeta{})
	return nil
}

// Login authenticates a user and issues a session token. The password is
// checked before verification status so unverified accounts are only
// revealed to their owners.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, appErrors.ErrNotVerified
	}

	info := models.UserInfo{ID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role}
	token, expiresAt, err := s.IssueToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.record(ctx, &user.ID, models.AuditActionLogin, "auth", user.ID, map[string]interface{}{"status": "success"}, AuditMeta{IP: req.IP, UserAgent: req.UserAgent})

	return &models.LoginResponse{User: info, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout records the end of a session. The cookie itself is cleared by the caller.
func (s *AuthService) Logout(ctx context.Context, claims *models.JWTClaims, meta AuditMeta) {
	if claims == nil {
		return
	}
	s.record(ctx, &claims.UserID, models.AuditActionLogout, "auth", claims.UserID, nil, meta)
}

// Session returns the current state of the signed-in user.
func (s *AuthService) Session(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return &models.UserInfo{ID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role}, nil
}

// ForgotPassword issues a reset token and queues its email. The outcome is
// the same whether or not the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a valid email is required")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to look up account for password reset", zap.Error(err))
		}
		return nil
	}

	token, err := randomToken()
	if err != nil {
		s.logger.Warn("failed to create reset token", zap.Error(err))
		return nil
	}
	if err := s.repo.SetResetToken(ctx, user.ID, token, s.now().Add(s.config.ResetTokenTTL)); err != nil {
		s.logger.Warn("failed to store reset token", zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}
	if err := s.mail.QueuePasswordReset(user.Email, user.Username, token); err != nil {
		s.logger.Warn("failed to queue reset mail", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword sets a new password using a reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) error {
	if req.Password != req.ConfirmPassword {
		return appErrors.Clone(appErrors.ErrValidation, "passwords do not match")
	}
	if len(req.Password) < minPasswordLength {
		return appErrors.Clone(appErrors.ErrValidation, "password must be at least 8 characters")
	}

	user, err := s.repo.FindByResetToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrTokenExpired, "password reset token is invalid or has expired")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reset token")
	}
	now := s.now()
	if user.PasswordResetExpires == nil || !now.Before(*user.PasswordResetExpires) {
		return appErrors.Clone(appErrors.ErrTokenExpired, "password reset token is invalid or has expired")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.config.BcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.ConsumeResetToken(ctx, user.ID, *user.PasswordResetToken, string(hash), now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrTokenExpired, "password reset token is invalid or has expired")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}
	s.record(ctx, &user.ID, models.AuditActionPasswordReset, "auth", user.ID, nil, AuditMeta{})
	return nil
}

// IssueToken signs a session token for info.
func (s *AuthService) IssueToken(info models.UserInfo) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.SessionTTL)
	claims := &models.JWTClaims{
		UserID:   info.ID,
		Username: info.Username,
		Email:    info.Email,
		Role:     info.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.SessionSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and validates a session token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SessionSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session claims")
	}
	return claims, nil
}

// SessionTTL is the lifetime of issued session tokens.
func (s *AuthService) SessionTTL() time.Duration {
	return s.config.SessionTTL
}

func (s *AuthService) record(ctx context.Context, userID *string, action, resource, resourceID string, values map[string]interface{}, meta AuditMeta) {
	recordAudit(ctx, s.audit, s.logger, userID, action, resource, resourceID, values, meta)
}

func recordAudit(ctx context.Context, audit auditWriter, logger *zap.Logger, userID *string, action, resource, resourceID string, values map[string]interface{}, meta AuditMeta) {
	if audit == nil {
		return
	}
	var body []byte
	if values != nil {
		body, _ = json.Marshal(values)
	}
	rid := resourceID
	if err := audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &rid,
		NewValues:  body,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
	"github.com/noah-isme/chilahati-archive-api/internal/repository"
	appErrors "github.com/noah-isme/chilahati-archive-api/pkg/errors"
)

type memUserRepo struct {
	users     map[string]*models.User
	nextID    int
	createErr error
	findErr   error
	auditLogs []*models.AuditLog
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	repo := &memUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *memUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range m.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.find(func(u *models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *memUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (m *memUserRepo) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool {
		return strings.EqualFold(u.Email, email) || strings.EqualFold(u.Username, username)
	})
}

func (m *memUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *memUserRepo) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.VerificationToken != nil && *u.VerificationToken == token })
}

func (m *memUserRepo) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.PasswordResetToken != nil && *u.PasswordResetToken == token })
}

func (m *memUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	user.CreatedAt = time.Now().UTC()
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

func (m *memUserRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *memUserRepo) SetVerificationToken(ctx context.Context, id, token string, issuedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.VerificationToken = &token
	u.VerificationIssuedAt = &issuedAt
	return nil
}

func (m *memUserRepo) MarkVerified(ctx context.Context, id, token string, at time.Time) error {
	u, ok := m.users[id]
	if !ok || u.VerificationToken == nil || *u.VerificationToken != token {
		return sql.ErrNoRows
	}
	u.IsVerified = true
	u.VerificationToken = nil
	u.VerificationIssuedAt = nil
	return nil
}

func (m *memUserRepo) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpires = &expiresAt
	return nil
}

func (m *memUserRepo) ConsumeResetToken(ctx context.Context, id, token, passwordHash string, at time.Time) error {
	u, ok := m.users[id]
	if !ok || u.PasswordResetToken == nil || *u.PasswordResetToken != token || !at.Before(*u.PasswordResetExpires) {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
	return nil
}

func (m *memUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *memUserRepo) UpdateUsername(ctx context.Context, id, username string, updatedAt time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Username = username
	return nil
}

func (m *memUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type stubAccountMailer struct {
	verifications []string
	resets        []string
	sendErr       error
}

func (s *stubAccountMailer) SendVerification(ctx context.Context, to, username, token string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.verifications = append(s.verifications, to+"|"+token)
	return nil
}

func (s *stubAccountMailer) QueuePasswordReset(to, username, token string) error {
	s.resets = append(s.resets, to+"|"+token)
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(repo *memUserRepo, mail *stubAccountMailer) *AuthService {
	return NewAuthService(repo, repo, mail, validator.New(), zap.NewNop(), AuthConfig{
		SessionSecret: "secret",
		BcryptCost:    bcrypt.MinCost,
	})
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestAuthServiceRegisterSendsVerification(t *testing.T) {
	repo := newMemUserRepo()
	mail := &stubAccountMailer{}
	svc := newTestAuthService(repo, mail)

	res, err := svc.Register(context.Background(), models.RegisterRequest{Username: " rafi ", Email: "rafi@example.com", Password: "password1"}, AuditMeta{})
	require.NoError(t, err)
	assert.Contains(t, res.Message, "rafi@example.com")
	require.Len(t, mail.verifications, 1)

	created, err := repo.FindByEmail(context.Background(), "rafi@example.com")
	require.NoError(t, err)
	assert.Equal(t, "rafi", created.Username)
	assert.False(t, created.IsVerified)
	assert.Equal(t, models.RoleUser, created.Role)
	require.NotNil(t, created.VerificationToken)
	assert.Len(t, *created.VerificationToken, 64)
	assert.NotEqual(t, "password1", created.PasswordHash)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRegister, repo.auditLogs[0].Action)
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo(), &stubAccountMailer{})

	cases := []struct {
		name string
		req  models.RegisterRequest
		msg  string
	}{
		{"short username", models.RegisterRequest{Username: "ab", Email: "a@b.co", Password: "password1"}, "username"},
		{"bad email", models.RegisterRequest{Username: "abc", Email: "nope", Password: "password1"}, "email"},
		{"short password", models.RegisterRequest{Username: "abc", Email: "a@b.co", Password: "short"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.req, AuditMeta{})
			assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestAuthServiceRegisterExistingUnverifiedReissues(t *testing.T) {
	old := "old-token"
	issued := time.Now().Add(-2 * time.Hour)
	repo := newMemUserRepo(&models.User{ID: "u1", Username: "rafi", Email: "rafi@example.com", VerificationToken: &old, VerificationIssuedAt: &issued})
	mail := &stubAccountMailer{}
	svc := newTestAuthService(repo, mail)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "rafi", Email: "other@example.com", Password: "password1"}, AuditMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
	require.Len(t, mail.verifications, 1)
	assert.True(t, strings.HasPrefix(mail.verifications[0], "rafi@example.com|"))
	assert.NotEqual(t, old, *repo.users["u1"].VerificationToken)
	assert.Len(t, repo.users, 1)
}

func TestAuthServiceRegisterExistingVerified(t *testing.T) {
	repo := newMemUserRepo(&models.User{ID: "u1", Username: "rafi", Email: "rafi@example.com", IsVerified: true})
	mail := &stubAccountMailer{}
	svc := newTestAuthService(repo, mail)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "someone", Email: "RAFI@example.com", Password: "password1"}, AuditMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
	assert.Empty(t, mail.verifications)
}

func TestAuthServiceRegisterRollsBackWhenMailFails(t *testing.T) {
	repo := newMemUserRepo()
	svc := newTestAuthService(repo, &stubAccountMailer{sendErr: errors.New("smtp down")})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "rafi", Email: "rafi@example.com", Password: "password1"}, AuditMeta{})
	assert.Equal(t, appErrors.ErrInternal.Code, errorCode(t, err))
	assert.Empty(t, repo.users)
}

func TestAuthServiceRegisterDuplicateRace(t *testing.T) {
	repo := newMemUserRepo()
	repo.createErr = repository.ErrDuplicate
	svc := newTestAuthService(repo, &stubAccountMailer{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "rafi", Email: "rafi@example.com", Password: "password1"}, AuditMeta{})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestAuthServiceVerifyWindow(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("within window succeeds once", func(t *testing.T) {
		token := "tok-fresh"
		repo := newMemUserRepo(&models.User{ID: "u1", Email: "a@b.co", VerificationToken: &token, VerificationIssuedAt: &base})
		svc := newTestAuthService(repo, &stubAccountMailer{})
		svc.now = func() time.Time { return base.Add(59 * time.Minute) }

		require.NoError(t, svc.Verify(context.Background(), token))
		assert.True(t, repo.users["u1"].IsVerified)

		err := svc.Verify(context.Background(), token)
		assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
	})

	t.Run("expired link", func(t *testing.T) {
		token := "tok-stale"
		repo := newMemUserRepo(&models.User{ID: "u1", Email: "a@b.co", VerificationToken: &token, VerificationIssuedAt: &base})
		svc := newTestAuthService(repo, &stubAccountMailer{})
		svc.now = func() time.Time { return base.Add(61 * time.Minute) }

		err := svc.Verify(context.Background(), token)
		assert.Equal(t, appErrors.ErrTokenExpired.Code, errorCode(t, err))
		assert.False(t, repo.users["u1"].IsVerified)
	})

	t.Run("unknown token", func(t *testing.T) {
		svc := newTestAuthService(newMemUserRepo(), &stubAccountMailer{})
		err := svc.Verify(context.Background(), "missing")
		assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
	})
}

func TestAuthServiceLogin(t *testing.T) {
	hash := hashPassword(t, "password1")
	repo := newMemUserRepo(
		&models.User{ID: "u1", Username: "rafi", Email: "rafi@example.com", PasswordHash: hash, Role: models.RoleAdmin, IsVerified: true},
		&models.User{ID: "u2", Username: "mitu", Email: "mitu@example.com", PasswordHash: hash, Role: models.RoleUser},
	)
	svc := newTestAuthService(repo, &stubAccountMailer{})

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "RAFI@example.com", Password: "password1", IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "rafi", res.User.Username)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, "10.0.0.1", repo.auditLogs[0].IPAddress)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "rafi@example.com", claims.Email)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "rafi@example.com", Password: "wrong-pass"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "password1"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err))

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "mitu@example.com", Password: "wrong-pass"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, err), "unverified status is hidden behind the password check")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "mitu@example.com", Password: "password1"})
	assert.Equal(t, appErrors.ErrNotVerified.Code, errorCode(t, err))
}

func TestAuthServiceValidateTokenRejectsTampering(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo(), &stubAccountMailer{})
	token, _, err := svc.IssueToken(models.UserInfo{ID: "u1", Username: "rafi", Role: models.RoleUser})
	require.NoError(t, err)

	other := NewAuthService(newMemUserRepo(), nil, &stubAccountMailer{}, nil, nil, AuthConfig{SessionSecret: "different"})
	_, err = other.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))

	svc.now = func() time.Time { return time.Now().UTC().Add(25 * time.Hour) }
	_, err = svc.ValidateToken(token)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServiceSession(t *testing.T) {
	repo := newMemUserRepo(&models.User{ID: "u1", Username: "renamed", Email: "a@b.co", Role: models.RoleSupervisor})
	svc := newTestAuthService(repo, &stubAccountMailer{})

	info, err := svc.Session(context.Background(), &models.JWTClaims{UserID: "u1", Username: "old"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", info.Username)

	_, err = svc.Session(context.Background(), &models.JWTClaims{UserID: "gone"})
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errorCode(t, err))
}

func TestAuthServicePasswordResetFlow(t *testing.T) {
	repo := newMemUserRepo(&models.User{ID: "u1", Username: "rafi", Email: "rafi@example.com", PasswordHash: hashPassword(t, "password1"), IsVerified: true})
	mail := &stubAccountMailer{}
	svc := newTestAuthService(repo, mail)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "nobody@example.com"}))
	assert.Empty(t, mail.resets)

	require.NoError(t, svc.ForgotPassword(ctx, models.ForgotPasswordRequest{Email: "rafi@example.com"}))
	require.Len(t, mail.resets, 1)
	token := *repo.users["u1"].PasswordResetToken

	err := svc.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "newpassword", ConfirmPassword: "different"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	err = svc.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "short", ConfirmPassword: "short"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))

	require.NoError(t, svc.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "newpassword", ConfirmPassword: "newpassword"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users["u1"].PasswordHash), []byte("newpassword")))
	assert.Nil(t, repo.users["u1"].PasswordResetToken)

	err = svc.ResetPassword(ctx, token, models.ResetPasswordRequest{Password: "another123", ConfirmPassword: "another123"})
	assert.Equal(t, appErrors.ErrTokenExpired.Code, errorCode(t, err))
}

func TestAuthServiceForgotPasswordHidesLookupFailure(t *testing.T) {
	repo := newMemUserRepo(&models.User{ID: "u1", Username: "rafi", Email: "rafi@example.com", IsVerified: true})
	repo.findErr = errors.New("connection reset by peer")
	mail := &stubAccountMailer{}
	svc := newTestAuthService(repo, mail)

	assert.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "rafi@example.com"}))
	assert.Empty(t, mail.resets)
	assert.Nil(t, repo.users["u1"].PasswordResetToken)
}

func TestAuthServiceResetPasswordExpired(t *testing.T) {
	token := "reset-token"
	expires := time.Now().UTC().Add(-time.Minute)
	repo := newMemUserRepo(&models.User{ID: "u1", Email: "a@b.co", PasswordResetToken: &token, PasswordResetExpires: &expires})
	svc := newTestAuthService(repo, &stubAccountMailer{})

	err := svc.ResetPassword(context.Background(), token, models.ResetPasswordRequest{Password: "newpassword", ConfirmPassword: "newpassword"})
	assert.Equal(t, appErrors.ErrTokenExpired.Code, errorCode(t, err))
}

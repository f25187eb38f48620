package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/chilahati-archive-api/internal/models"
)

const userColumns = `id, username, email, password_hash, role, is_verified, verification_token, verification_issued_at, password_reset_token, password_reset_expires, created_at, updated_at`

// UserRepository provides database access for user management.
type UserRepository struct {
	db dbProvider
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db dbProvider) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) findOne(ctx context.Context, label, query string, args ...interface{}) (*models.User, error) {
	db, err := r.db.DB(ctx)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return &user, nil
}

// FindByEmail returns a user by email address, ignoring case.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1`
	return r.findOne(ctx, "find user by email", query, email)
}

// FindByUsername returns a user by username, ignoring case.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1) LIMIT 1`
	return r.findOne(ctx, "find user by username", query, username)
}

// FindByEmailOrUsername returns the first user owning either identifier.
func (r *UserRepository) FindByEmailOrUsername(ctx context.Context, email, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1) OR LOWER(username) = LOWER($2) ORDER BY is_verified DESC LIMIT 1`
	return r.findOne(ctx, "find user by email or username", query, email, username)
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return r.findOne(ctx, "find user by id", query, id)
}

// FindByVerificationToken returns the user holding an outstanding verification token.
func (r *UserRepository) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE verification_token = $1 LIMIT 1`
	return r.findOne(ctx, "find user by verification token", query, token)
}

// FindByResetToken returns the user holding a password reset token.
func (r *UserRepository) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE password_reset_token = $1 LIMIT 1`
	return r.findOne(ctx, "find user by reset token", query, token)
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	db, err := r.db.DB(ctx)
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	const query = `INSERT INTO users (id, username, email, password_hash, role, is_verified, verification_token, verification_issued_at, created_at, updated_at)
	VALUES (:id, :username, :email, :password_hash, :role, :is_verified, :verification_token, :verification_issued_at, :created_at, :updated_at)`
	if _, err := db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// SetVerificationToken replaces the pending verification token and restarts its window.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id, token string, issuedAt time.Time) error {
	const query = `UPDATE users SET verification_token = $2, verification_issued_at = $3, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "set verification token", query, id, token, issuedAt)
}

// MarkVerified redeems a verification token. The token match makes a second
// redemption affect no rows.
func (r *UserRepository) MarkVerified(ctx context.Context, id, token string, at time.Time) error {
	const query = `UPDATE users SET is_verified = TRUE, verification_token = NULL, verification_issued_at = NULL, updated_at = $3 WHERE id = $1 AND verification_token = $2`
	return r.execOne(ctx, "mark user verified", query, id, token, at)
}

// SetResetToken stores a password reset token with its expiry.
func (r *UserRepository) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	const query = `UPDATE users SET password_reset_token = $2, password_reset_expires = $3, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, "set reset token", query, id, token, expiresAt)
}

// ConsumeResetToken sets a new password hash and clears the token, provided
// the token is still current.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, id, token, passwordHash string, at time.Time) error {
	const query = `UPDATE users SET password_hash = $3, password_reset_token = NULL, password_reset_expires = NULL, updated_at = $4
	WHERE id = $1 AND password_reset_token = $2 AND password_reset_expires > $4`
	return r.execOne(ctx, "consume reset token", query, id, token, passwordHash, at)
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update password", query, id, passwordHash, updatedAt)
}

// UpdateUsername renames a user.
func (r *UserRepository) UpdateUsername(ctx context.Context, id, username string, updatedAt time.Time) error {
	const query = `UPDATE users SET username = $2, updated_at = $3 WHERE id = $1`
	err := r.execOne(ctx, "update username", query, id, username, updatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("update username: %w", ErrDuplicate)
	}
	return err
}

// Delete removes a user. Authored archive items keep existing with a null author.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	return r.execOne(ctx, "delete user", query, id)
}

func (r *UserRepository) execOne(ctx context.Context, label, query string, args ...interface{}) error {
	db, err := r.db.DB(ctx)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

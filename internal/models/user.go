package models

import (
	"math"
	"time"
)

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSupervisor UserRole = "supervisor"
	RoleUser       UserRole = "user"
)

// StaffRoles may manage archive content.
var StaffRoles = []UserRole{RoleAdmin, RoleSupervisor}

// IsStaff reports whether the role may manage archive content.
func (r UserRole) IsStaff() bool {
	return r == RoleAdmin || r == RoleSupervisor
}

// User represents an application user stored in the users table.
type User struct {
	ID                   string     `db:"id" json:"id"`
	Username             string     `db:"username" json:"username"`
	Email                string     `db:"email" json:"email"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	Role                 UserRole   `db:"role" json:"role"`
	IsVerified           bool       `db:"is_verified" json:"isVerified"`
	VerificationToken    *string    `db:"verification_token" json:"-"`
	VerificationIssuedAt *time.Time `db:"verification_issued_at" json:"-"`
	PasswordResetToken   *string    `db:"password_reset_token" json:"-"`
	PasswordResetExpires *time.Time `db:"password_reset_expires" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the page count for a total.
func NewPagination(page, pageSize, total int) *Pagination {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total, TotalPages: pages}
}

// ClampPage keeps page within 1..math.MaxInt/pageSize so that page*pageSize
// never overflows when turned into an offset.
func ClampPage(page, pageSize int) int {
	if page < 1 {
		return 1
	}
	if pageSize > 0 && page > math.MaxInt/pageSize {
		return math.MaxInt / pageSize
	}
	return page
}

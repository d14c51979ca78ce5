package models

import (
	"time"

	"github.com/google/uuid"

	"sante/internal/rbac"
)

// IdentifierKind tells how a user logs in.
type IdentifierKind string

const (
	IdentifierEmail IdentifierKind = "email"
	IdentifierPhone IdentifierKind = "phone"
)

// User is an account. PasswordHash never leaves the service layer; handlers
// render UserView instead.
type User struct {
	ID             uuid.UUID
	Identifier     string
	IdentifierKind IdentifierKind
	PasswordHash   []byte
	Role           rbac.Role
	FirstName      string
	LastName       string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
}

// UserView is the public shape of a user.
type UserView struct {
	ID             string     `json:"id"`
	Identifier     string     `json:"identifier"`
	IdentifierKind string     `json:"identifier_kind"`
	Role           string     `json:"role"`
	Category       string     `json:"category"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

func (u *User) View() UserView {
	category, _ := rbac.RoleCategory(u.Role)
	return UserView{
		ID:             u.ID.String(),
		Identifier:     u.Identifier,
		IdentifierKind: string(u.IdentifierKind),
		Role:           string(u.Role),
		Category:       string(category),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Active:         u.Active,
		CreatedAt:      u.CreatedAt,
		LastLoginAt:    u.LastLoginAt,
	}
}

type RegisterRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User        UserView  `json:"user"`
	Role        string    `json:"role"`
	Token       string    `json:"token"`
	TokenType   string    `json:"token_type"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RefreshResult struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PasswordResetRequest struct {
	Identifier string `json:"identifier"`
}

type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

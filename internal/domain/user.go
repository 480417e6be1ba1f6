package domain

import (
	"context"
	"time"
)

// Role is the closed set of user roles. There is no hierarchy between
// roles; authorization is an explicit membership check per operation.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

// ParseRole validates a role string against the closed enumeration.
// An empty string defaults to viewer, matching account creation.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleViewer:
		return Role(s), nil
	case "":
		return RoleViewer, nil
	default:
		return "", ValidationErrorf("unknown role %q", s)
	}
}

// User represents an account that can authenticate and act on inventory
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`    // unique
	Username     string    `json:"username"` // unique
	PasswordHash string    `json:"-"`        // bcrypt digest, never serialized
	FullName     string    `json:"full_name,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}

package domain

import (
	"context"
	"time"
)

// Role controls access to privileged operations.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is an authenticated account.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the user may act on resources they do not own.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

var ErrUserNotFound = &Error{Code: ENOTFOUND, Message: "User not found"}

// UserStore resolves authenticated users.
type UserStore interface {
	// GetUser returns the user or ErrUserNotFound.
	GetUser(ctx context.Context, id int64) (*User, error)

	// GetUserBySessionToken resolves an opaque bearer token to its user.
	// Expired or unknown tokens return ErrUserNotFound.
	GetUserBySessionToken(ctx context.Context, token string) (*User, error)
}

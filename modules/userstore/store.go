// Package userstore persists users and their password credentials.
//
// Two implementations are provided: InMemoryStore for development and tests,
// and SQLiteStore backed by modernc.org/sqlite. Both are plain modules without
// routes; authentication and user modules depend on them under the
// "user_store" alias.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a user or credential does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when creating or renaming to an existing email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidEmail is returned for empty or malformed addresses.
	ErrInvalidEmail = errors.New("invalid email")
)

// User is the stored account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials holds the password hash of a user.
type Credentials struct {
	UserID       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate lists the fields to change; nil fields are kept.
type UserUpdate struct {
	Email    *string
	FullName *string
}

// Store is the contract shared by user store modules.
type Store interface {
	CreateUser(ctx context.Context, email, fullName string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	// ListUsers returns users in creation order. A limit <= 0 returns all users.
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)
	// DeleteUser removes the user and its credentials.
	DeleteUser(ctx context.Context, id string) error
	SetPassword(ctx context.Context, userID, passwordHash string) error
	Credentials(ctx context.Context, userID string) (Credentials, error)
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}

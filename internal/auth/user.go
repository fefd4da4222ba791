// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/text/cases"
)

// User represents a registered principal.
type User struct {
	ID           ulid.ULID
	FullName     *string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User with a fresh ID and timestamps.
// fullName is optional and may be nil.
func NewUser(fullName *string, email, passwordHash string, now time.Time) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:           ulid.Make(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizedEmail returns the canonical form of the user's email.
func (u *User) NormalizedEmail() string {
	return NormalizeEmail(u.Email)
}

// NormalizeEmail returns the canonical form of an email used for uniqueness
// and lookup: surrounding whitespace removed and Unicode case folded.
func NormalizeEmail(email string) string {
	// A Caser holds state and must not be shared between goroutines.
	return cases.Fold().String(strings.TrimSpace(email))
}

// UserSummary is the public view of a User. It never carries credentials.
type UserSummary struct {
	ID       ulid.ULID
	FullName *string
	Email    string
}

// Summary returns the public view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
	}
}

// UserProfile is the public view of a User including timestamps.
type UserProfile struct {
	UserSummary
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile returns the public view of the user with timestamps.
func (u *User) Profile() UserProfile {
	return UserProfile{
		UserSummary: u.Summary(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrEmailExists if
	// the normalized email is already present. The check must be atomic.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves the user whose normalized email matches
	// NormalizeEmail(email). Returns ErrNotFound if there is none.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// EmailExists reports whether a user with NormalizeEmail(email) exists.
	EmailExists(ctx context.Context, email string) (bool, error)
}

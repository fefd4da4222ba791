// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

const userColumns = `id, full_name, email, password_hash, created_at, updated_at`

// UserRepository implements auth.UserRepository using SQLite.
type UserRepository struct {
	db dbIface
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db dbIface) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	var fullName sql.NullString
	if user.FullName != nil {
		fullName = sql.NullString{String: *user.FullName, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, email, email_normalized, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID.String(),
		fullName,
		user.Email,
		user.NormalizedEmail(),
		user.PasswordHash,
		toMillis(user.CreatedAt),
		toMillis(user.UpdatedAt),
	)
	if err != nil {
		if isEmailConflict(err) {
			return oops.With("user_id", user.ID.String()).Wrap(auth.ErrEmailExists)
		}
		return oops.With("operation", "insert user").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email_normalized = ?`,
		auth.NormalizeEmail(email))

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by email").Wrap(err)
	}
	return user, nil
}

// EmailExists reports whether the normalized email is registered.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email_normalized = ?)`,
		auth.NormalizeEmail(email),
	).Scan(&exists)
	if err != nil {
		return false, oops.With("operation", "probe email").Wrap(err)
	}
	return exists, nil
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var (
		user               auth.User
		idStr              string
		fullName           sql.NullString
		createdAt, updated int64
	)
	if err := row.Scan(&idStr, &fullName, &user.Email, &user.PasswordHash, &createdAt, &updated); err != nil {
		return nil, err
	}
	id, err := parseID("users.id", idStr)
	if err != nil {
		return nil, err
	}
	user.ID = id
	if fullName.Valid {
		user.FullName = &fullName.String
	}
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updated)
	return &user, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// TokenRepository implements auth.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool poolIface
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(pool poolIface) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Create stores a token digest. The plaintext value is never written.
func (r *TokenRepository) Create(ctx context.Context, token *auth.AccessToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO access_tokens (id, user_id, token_digest, issued_at, expires_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		token.ID.String(),
		token.UserID.String(),
		token.Digest,
		token.IssuedAt,
		token.ExpiresAt,
		token.LastUsedAt,
	)
	if err != nil {
		return oops.With("operation", "insert access_token").
			With("user_id", token.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a token by its identifier.
func (r *TokenRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.AccessToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, token_digest, issued_at, expires_at, last_used_at
		FROM access_tokens
		WHERE id = $1
	`, id.String())

	var (
		token           auth.AccessToken
		idStr, ownerStr string
	)
	err := row.Scan(&idStr, &ownerStr, &token.Digest, &token.IssuedAt, &token.ExpiresAt, &token.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get access_token by id").
			With("id", id.String()).
			Wrap(err)
	}

	if token.ID, err = parseID("access_tokens.id", idStr); err != nil {
		return nil, err
	}
	if token.UserID, err = parseID("access_tokens.user_id", ownerStr); err != nil {
		return nil, err
	}
	token.IssuedAt = token.IssuedAt.UTC()
	token.ExpiresAt = utcPtr(token.ExpiresAt)
	token.LastUsedAt = utcPtr(token.LastUsedAt)
	return &token, nil
}

// Touch sets last_used_at.
func (r *TokenRepository) Touch(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.pool.Exec(ctx, `UPDATE access_tokens SET last_used_at = $2 WHERE id = $1`, id.String(), at)
	if err != nil {
		return oops.With("operation", "update last_used_at").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Delete removes a token by identifier.
func (r *TokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "delete access_token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes every token owned by userID.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID.String())
	if err != nil {
		return 0, oops.With("operation", "delete access_tokens by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes tokens whose expiry is at or before now.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM access_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, oops.With("operation", "delete expired access_tokens").Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// TokenRepository implements auth.TokenRepository using SQLite.
type TokenRepository struct {
	db dbIface
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db dbIface) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a token digest. The plaintext value is never written.
func (r *TokenRepository) Create(ctx context.Context, token *auth.AccessToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_tokens (id, user_id, token_digest, issued_at, expires_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		token.ID.String(),
		token.UserID.String(),
		token.Digest,
		toMillis(token.IssuedAt),
		toNullMillis(token.ExpiresAt),
		toNullMillis(token.LastUsedAt),
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
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_digest, issued_at, expires_at, last_used_at
		FROM access_tokens
		WHERE id = ?
	`, id.String())

	var (
		token               auth.AccessToken
		idStr, ownerStr     string
		issuedAt            int64
		expiresAt, lastUsed sql.NullInt64
	)
	err := row.Scan(&idStr, &ownerStr, &token.Digest, &issuedAt, &expiresAt, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
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
	token.IssuedAt = fromMillis(issuedAt)
	token.ExpiresAt = fromNullMillis(expiresAt)
	token.LastUsedAt = fromNullMillis(lastUsed)
	return &token, nil
}

// Touch sets last_used_at.
func (r *TokenRepository) Touch(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE access_tokens SET last_used_at = ? WHERE id = ?`, toMillis(at), id.String())
	if err != nil {
		return oops.With("operation", "update last_used_at").
			With("id", id.String()).
			Wrap(err)
	}
	return requireRow(result, id)
}

// Delete removes a token by identifier.
func (r *TokenRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE id = ?`, id.String())
	if err != nil {
		return oops.With("operation", "delete access_token").
			With("id", id.String()).
			Wrap(err)
	}
	return requireRow(result, id)
}

// DeleteByUser removes every token owned by userID.
func (r *TokenRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE user_id = ?`, userID.String())
	if err != nil {
		return 0, oops.With("operation", "delete access_tokens by user").
			With("user_id", userID.String()).
			Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.With("operation", "count deleted access_tokens").Wrap(err)
	}
	return n, nil
}

// DeleteExpired removes tokens whose expiry is at or before now.
func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM access_tokens WHERE expires_at IS NOT NULL AND expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, oops.With("operation", "delete expired access_tokens").Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.With("operation", "count expired access_tokens").Wrap(err)
	}
	return n, nil
}

func requireRow(result sql.Result, id ulid.ULID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return oops.With("operation", "count affected rows").Wrap(err)
	}
	if n == 0 {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ auth.TokenRepository = (*TokenRepository)(nil)

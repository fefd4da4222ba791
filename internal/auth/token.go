// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Access token configuration.
const (
	// TokenPrefix starts every access token value.
	TokenPrefix = "pg_"

	// TokenSecretBytes is the size of the random secret (256 bits).
	TokenSecretBytes = 32

	// DefaultTokenTTL is the default lifetime of an access token.
	DefaultTokenTTL = 24 * time.Hour
)

// AccessToken is a bearer credential bound to one user.
//
// Value is populated only on the token returned at issuance; it is never
// persisted or reloaded. Repositories store Digest instead.
type AccessToken struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	Digest     string
	IssuedAt   time.Time
	ExpiresAt  *time.Time // nil means the token does not expire
	LastUsedAt *time.Time
	Value      string
}

// NewAccessToken mints a token for userID. A ttl <= 0 produces a token
// without expiry.
func NewAccessToken(userID ulid.ULID, ttl time.Duration, now time.Time) (*AccessToken, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("TOKEN_INVALID_USER").Errorf("user ID cannot be zero")
	}

	secretBytes := make([]byte, TokenSecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, oops.Code("TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenSecretBytes).
			Wrap(err)
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	now = now.UTC()
	token := &AccessToken{
		ID:       ulid.Make(),
		UserID:   userID,
		Digest:   HashTokenSecret(secret),
		IssuedAt: now,
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl)
		token.ExpiresAt = &expiresAt
	}
	token.Value = FormatTokenValue(token.ID, secret)
	return token, nil
}

// IsExpiredAt reports whether the token is expired at t.
func (t *AccessToken) IsExpiredAt(at time.Time) bool {
	return t.ExpiresAt != nil && !at.Before(*t.ExpiresAt)
}

// FormatTokenValue builds the bearer value "pg_<id>.<secret>".
func FormatTokenValue(id ulid.ULID, secret string) string {
	return TokenPrefix + id.String() + "." + secret
}

// ParseTokenValue splits a bearer value into its identifier and secret.
func ParseTokenValue(value string) (ulid.ULID, string, error) {
	rest, ok := strings.CutPrefix(value, TokenPrefix)
	if !ok {
		return ulid.ULID{}, "", oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
	}
	idPart, secret, ok := strings.Cut(rest, ".")
	if !ok || secret == "" {
		return ulid.ULID{}, "", oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
	}
	id, err := ulid.ParseStrict(idPart)
	if err != nil {
		return ulid.ULID{}, "", oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
	}
	return id, secret, nil
}

// HashTokenSecret computes the SHA-256 digest stored in place of a secret.
func HashTokenSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// VerifyTokenSecret checks a secret against a stored digest in constant time.
func VerifyTokenSecret(secret, digest string) bool {
	computed := HashTokenSecret(secret)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// TokenRepository manages access token persistence.
type TokenRepository interface {
	// Create stores a new token. Only the digest is persisted.
	Create(ctx context.Context, token *AccessToken) error

	// GetByID retrieves a token by its identifier.
	GetByID(ctx context.Context, id ulid.ULID) (*AccessToken, error)

	// Touch sets LastUsedAt for a token.
	Touch(ctx context.Context, id ulid.ULID, at time.Time) error

	// Delete removes a token by identifier.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByUser removes all tokens owned by a user and returns the count.
	DeleteByUser(ctx context.Context, userID ulid.ULID) (int64, error)

	// DeleteExpired removes tokens that expired before now and returns the count.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// expiredQueueSize bounds the hand-off of expired token IDs to the sweeper.
const expiredQueueSize = 64

// TokenIssuer mints access tokens and resolves them back to their owner.
type TokenIssuer struct {
	tokens  TokenRepository
	users   UserRepository
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
	expired chan ulid.ULID
}

// TokenIssuerOption configures a TokenIssuer.
type TokenIssuerOption func(*TokenIssuer)

// WithTokenTTL sets the token lifetime. Zero or negative disables expiry.
func WithTokenTTL(ttl time.Duration) TokenIssuerOption {
	return func(i *TokenIssuer) {
		i.ttl = ttl
	}
}

// WithTokenStoreTimeout bounds each repository call. Non-positive values are ignored.
func WithTokenStoreTimeout(d time.Duration) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if d > 0 {
			i.timeout = d
		}
	}
}

// WithTokenLogger sets the logger used for best-effort diagnostics.
func WithTokenLogger(logger *slog.Logger) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithTokenClock overrides the time source.
func WithTokenClock(now func() time.Time) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(tokens TokenRepository, users UserRepository, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if tokens == nil {
		return nil, oops.Errorf("tokens repository is required")
	}
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	i := &TokenIssuer{
		tokens:  tokens,
		users:   users,
		ttl:     DefaultTokenTTL,
		timeout: DefaultStoreTimeout,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
		expired: make(chan ulid.ULID, expiredQueueSize),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue mints and persists a token for user. The returned token carries the
// plaintext Value; it is not recoverable afterwards.
func (i *TokenIssuer) Issue(ctx context.Context, user *User) (*AccessToken, error) {
	if user == nil {
		return nil, oops.Code("TOKEN_INVALID_USER").Errorf("user is required")
	}

	token, err := NewAccessToken(user.ID, i.ttl, i.now())
	if err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, i.timeout)
	defer cancel()

	if err := i.tokens.Create(ctx, token); err != nil {
		return nil, storeUnavailable("persist access token", err)
	}
	return token, nil
}

// Resolve returns the owner of a bearer value. Unknown, malformed, and
// mismatched values all fail with the same TOKEN_INVALID error; expired
// values fail with TOKEN_EXPIRED and are queued for deletion.
func (i *TokenIssuer) Resolve(ctx context.Context, value string) (*User, error) {
	id, secret, err := ParseTokenValue(value)
	if err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, i.timeout)
	defer cancel()

	token, err := i.tokens.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
		}
		return nil, storeUnavailable("get access token", err)
	}

	if !VerifyTokenSecret(secret, token.Digest) {
		return nil, oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
	}

	now := i.now()
	if token.IsExpiredAt(now) {
		i.queueExpired(token.ID)
		return nil, oops.Code(CodeTokenExpired).
			With("token_id", token.ID.String()).
			Wrap(ErrTokenExpired)
	}

	user, err := i.users.GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeTokenInvalid).
				With("token_id", token.ID.String()).
				Wrap(ErrTokenInvalid)
		}
		return nil, storeUnavailable("get token owner", err)
	}

	if err := i.tokens.Touch(ctx, token.ID, now.UTC()); err != nil {
		i.logger.Debug("failed to record token use",
			"token_id", token.ID.String(),
			"error", err)
	}

	return user, nil
}

// Revoke deletes a token by identifier.
func (i *TokenIssuer) Revoke(ctx context.Context, tokenID ulid.ULID) error {
	ctx, cancel := storeContext(ctx, i.timeout)
	defer cancel()

	if err := i.tokens.Delete(ctx, tokenID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeTokenInvalid).
				With("token_id", tokenID.String()).
				Wrap(ErrTokenInvalid)
		}
		return storeUnavailable("revoke access token", err)
	}
	return nil
}

// RevokeValue deletes the token identified by a bearer value. The secret
// must match, so a leaked identifier alone cannot revoke a token.
func (i *TokenIssuer) RevokeValue(ctx context.Context, value string) error {
	id, secret, err := ParseTokenValue(value)
	if err != nil {
		return err
	}

	lookupCtx, cancel := storeContext(ctx, i.timeout)
	token, err := i.tokens.GetByID(lookupCtx, id)
	cancel()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
		}
		return storeUnavailable("get access token", err)
	}
	if !VerifyTokenSecret(secret, token.Digest) {
		return oops.Code(CodeTokenInvalid).Wrap(ErrTokenInvalid)
	}
	return i.Revoke(ctx, id)
}

// RevokeAll deletes every token owned by userID and returns the count.
func (i *TokenIssuer) RevokeAll(ctx context.Context, userID ulid.ULID) (int64, error) {
	ctx, cancel := storeContext(ctx, i.timeout)
	defer cancel()

	n, err := i.tokens.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, storeUnavailable("revoke user tokens", err)
	}
	return n, nil
}

// Expired returns the queue of token IDs found expired during Resolve.
// A Sweeper drains it; when nobody does, new entries are dropped and the
// periodic sweep removes those tokens instead.
func (i *TokenIssuer) Expired() <-chan ulid.ULID {
	return i.expired
}

func (i *TokenIssuer) queueExpired(id ulid.ULID) {
	select {
	case i.expired <- id:
	default:
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/auth/authtest"
	"github.com/passgate/passgate/pkg/errutil"
)

type issuerFixture struct {
	users  *authtest.MemoryUsers
	tokens *authtest.MemoryTokens
	issuer *auth.TokenIssuer
	user   *auth.User
	now    time.Time
}

func newIssuerFixture(t *testing.T, opts ...auth.TokenIssuerOption) *issuerFixture {
	t.Helper()
	f := &issuerFixture{
		users:  authtest.NewMemoryUsers(),
		tokens: authtest.NewMemoryTokens(),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	issuer, err := auth.NewTokenIssuer(f.tokens, f.users, append([]auth.TokenIssuerOption{auth.WithTokenClock(clock)}, opts...)...)
	require.NoError(t, err)
	f.issuer = issuer

	user, err := auth.NewUser(nil, "owner@x.com", "$argon2id$hash", f.now)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), user))
	f.user = user
	return f
}

func TestNewTokenIssuer(t *testing.T) {
	_, err := auth.NewTokenIssuer(nil, authtest.NewMemoryUsers())
	assert.Error(t, err)

	_, err = auth.NewTokenIssuer(authtest.NewMemoryTokens(), nil)
	assert.Error(t, err)
}

func TestTokenIssuer_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("persists digest only", func(t *testing.T) {
		f := newIssuerFixture(t)

		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)
		require.NotEmpty(t, token.Value)

		stored, err := f.tokens.GetByID(ctx, token.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Value)
		assert.Equal(t, token.Digest, stored.Digest)
		assert.NotContains(t, token.Value, stored.Digest)
		assert.Equal(t, f.user.ID, stored.UserID)
	})

	t.Run("applies default ttl", func(t *testing.T) {
		f := newIssuerFixture(t)
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)
		require.NotNil(t, token.ExpiresAt)
		assert.Equal(t, f.now.Add(auth.DefaultTokenTTL), *token.ExpiresAt)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		f := newIssuerFixture(t, auth.WithTokenTTL(0))
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)
		assert.Nil(t, token.ExpiresAt)
	})

	t.Run("rejects nil user", func(t *testing.T) {
		f := newIssuerFixture(t)
		_, err := f.issuer.Issue(ctx, nil)
		errutil.AssertErrorCode(t, err, "TOKEN_INVALID_USER")
	})

	t.Run("repository failure is store unavailable", func(t *testing.T) {
		tokens := &authtest.MockTokenRepository{}
		tokens.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		issuer, err := auth.NewTokenIssuer(tokens, authtest.NewMemoryUsers())
		require.NoError(t, err)

		user, err := auth.NewUser(nil, "a@x.com", "h", time.Now())
		require.NoError(t, err)

		_, err = issuer.Issue(ctx, user)
		assert.Equal(t, auth.KindStoreUnavailable, auth.KindOf(err))
	})
}

func TestTokenIssuer_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips to owner and records use", func(t *testing.T) {
		f := newIssuerFixture(t)
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)

		f.now = f.now.Add(time.Minute)
		user, err := f.issuer.Resolve(ctx, token.Value)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, user.ID)

		stored, err := f.tokens.GetByID(ctx, token.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.LastUsedAt)
		assert.Equal(t, f.now, *stored.LastUsedAt)
	})

	t.Run("wrong secret and unknown id fail identically", func(t *testing.T) {
		f := newIssuerFixture(t)
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)

		_, wrongSecret := f.issuer.Resolve(ctx, auth.FormatTokenValue(token.ID, "not-the-secret"))
		_, unknownID := f.issuer.Resolve(ctx, auth.FormatTokenValue(ulid.Make(), "whatever"))
		_, garbage := f.issuer.Resolve(ctx, "garbage")

		for _, err := range []error{wrongSecret, unknownID, garbage} {
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrTokenInvalid)
			errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
			assert.Equal(t, auth.KindUnauthenticated, auth.KindOf(err))
		}
		assert.Equal(t, wrongSecret.Error(), unknownID.Error())
	})

	t.Run("expired token is rejected and queued", func(t *testing.T) {
		f := newIssuerFixture(t, auth.WithTokenTTL(time.Hour))
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)

		f.now = f.now.Add(time.Hour)
		_, err = f.issuer.Resolve(ctx, token.Value)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
		errutil.AssertErrorCode(t, err, auth.CodeTokenExpired)
		assert.Equal(t, auth.KindUnauthenticated, auth.KindOf(err))

		select {
		case id := <-f.issuer.Expired():
			assert.Equal(t, token.ID, id)
		default:
			t.Fatal("expired token was not queued")
		}
	})

	t.Run("full queue does not block", func(t *testing.T) {
		f := newIssuerFixture(t, auth.WithTokenTTL(time.Minute))
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)
		f.now = f.now.Add(time.Hour)

		for range 200 {
			_, err := f.issuer.Resolve(ctx, token.Value)
			require.ErrorIs(t, err, auth.ErrTokenExpired)
		}
	})

	t.Run("token of missing owner is invalid", func(t *testing.T) {
		f := newIssuerFixture(t)
		orphan, err := auth.NewUser(nil, "ghost@x.com", "h", f.now)
		require.NoError(t, err)
		token, err := f.issuer.Issue(ctx, orphan)
		require.NoError(t, err)

		_, err = f.issuer.Resolve(ctx, token.Value)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("touch failure does not fail resolve", func(t *testing.T) {
		users := authtest.NewMemoryUsers()
		user, err := auth.NewUser(nil, "a@x.com", "h", time.Now())
		require.NoError(t, err)
		require.NoError(t, users.Create(ctx, user))

		token, err := auth.NewAccessToken(user.ID, time.Hour, time.Now())
		require.NoError(t, err)

		tokens := &authtest.MockTokenRepository{}
		tokens.On("GetByID", mock.Anything, token.ID).Return(token, nil)
		tokens.On("Touch", mock.Anything, token.ID, mock.Anything).Return(errors.New("read only"))

		issuer, err := auth.NewTokenIssuer(tokens, users)
		require.NoError(t, err)

		got, err := issuer.Resolve(ctx, token.Value)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		tokens.AssertExpectations(t)
	})

	t.Run("lookup failure is store unavailable", func(t *testing.T) {
		tokens := &authtest.MockTokenRepository{}
		tokens.On("GetByID", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
		issuer, err := auth.NewTokenIssuer(tokens, authtest.NewMemoryUsers())
		require.NoError(t, err)

		_, err = issuer.Resolve(ctx, auth.FormatTokenValue(ulid.Make(), "secret"))
		assert.Equal(t, auth.KindStoreUnavailable, auth.KindOf(err))
	})
}

func TestTokenIssuer_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked token no longer resolves", func(t *testing.T) {
		f := newIssuerFixture(t)
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)

		require.NoError(t, f.issuer.Revoke(ctx, token.ID))
		_, err = f.issuer.Resolve(ctx, token.Value)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("unknown id is invalid", func(t *testing.T) {
		f := newIssuerFixture(t)
		err := f.issuer.Revoke(ctx, ulid.Make())
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("revoke by value requires the secret", func(t *testing.T) {
		f := newIssuerFixture(t)
		token, err := f.issuer.Issue(ctx, f.user)
		require.NoError(t, err)

		err = f.issuer.RevokeValue(ctx, auth.FormatTokenValue(token.ID, "guess"))
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
		assert.True(t, f.tokens.Has(token.ID))

		require.NoError(t, f.issuer.RevokeValue(ctx, token.Value))
		assert.False(t, f.tokens.Has(token.ID))
	})

	t.Run("revoke all removes only the owner's tokens", func(t *testing.T) {
		f := newIssuerFixture(t)
		for range 3 {
			_, err := f.issuer.Issue(ctx, f.user)
			require.NoError(t, err)
		}
		other, err := auth.NewUser(nil, "other@x.com", "h", f.now)
		require.NoError(t, err)
		otherToken, err := f.issuer.Issue(ctx, other)
		require.NoError(t, err)

		n, err := f.issuer.RevokeAll(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.Equal(t, 1, f.tokens.Len())
		assert.True(t, f.tokens.Has(otherToken.ID))
	})
}

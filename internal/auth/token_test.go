// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

func TestNewAccessToken(t *testing.T) {
	userID := ulid.Make()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("mints prefixed value with digest", func(t *testing.T) {
		token, err := auth.NewAccessToken(userID, time.Hour, now)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(token.Value, auth.TokenPrefix+token.ID.String()+"."))
		assert.Equal(t, userID, token.UserID)
		assert.Equal(t, now, token.IssuedAt)
		require.NotNil(t, token.ExpiresAt)
		assert.Equal(t, now.Add(time.Hour), *token.ExpiresAt)
		assert.Nil(t, token.LastUsedAt)
		assert.Len(t, token.Digest, 64)
		assert.NotContains(t, token.Digest, token.Value)
	})

	t.Run("secret carries 256 bits", func(t *testing.T) {
		token, err := auth.NewAccessToken(userID, time.Hour, now)
		require.NoError(t, err)

		_, secret, err := auth.ParseTokenValue(token.Value)
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(secret)
		require.NoError(t, err)
		assert.Len(t, raw, auth.TokenSecretBytes)
		assert.True(t, auth.VerifyTokenSecret(secret, token.Digest))
	})

	t.Run("non-positive ttl never expires", func(t *testing.T) {
		token, err := auth.NewAccessToken(userID, 0, now)
		require.NoError(t, err)
		assert.Nil(t, token.ExpiresAt)
		assert.False(t, token.IsExpiredAt(now.Add(100*365*24*time.Hour)))
	})

	t.Run("values are unique", func(t *testing.T) {
		a, err := auth.NewAccessToken(userID, time.Hour, now)
		require.NoError(t, err)
		b, err := auth.NewAccessToken(userID, time.Hour, now)
		require.NoError(t, err)
		assert.NotEqual(t, a.Value, b.Value)
		assert.NotEqual(t, a.ID, b.ID)
		assert.NotEqual(t, a.Digest, b.Digest)
	})

	t.Run("rejects zero user", func(t *testing.T) {
		_, err := auth.NewAccessToken(ulid.ULID{}, time.Hour, now)
		errutil.AssertErrorCode(t, err, "TOKEN_INVALID_USER")
	})
}

func TestAccessToken_IsExpiredAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, err := auth.NewAccessToken(ulid.Make(), time.Minute, now)
	require.NoError(t, err)

	assert.False(t, token.IsExpiredAt(now))
	assert.False(t, token.IsExpiredAt(now.Add(time.Minute-time.Nanosecond)))
	assert.True(t, token.IsExpiredAt(now.Add(time.Minute)))
	assert.True(t, token.IsExpiredAt(now.Add(time.Hour)))
}

func TestParseTokenValue(t *testing.T) {
	id := ulid.Make()

	t.Run("round trips formatted value", func(t *testing.T) {
		gotID, secret, err := auth.ParseTokenValue(auth.FormatTokenValue(id, "s3cret"))
		require.NoError(t, err)
		assert.Equal(t, id, gotID)
		assert.Equal(t, "s3cret", secret)
	})

	invalid := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"missing prefix", id.String() + ".secret"},
		{"missing separator", auth.TokenPrefix + id.String()},
		{"empty secret", auth.TokenPrefix + id.String() + "."},
		{"bad identifier", auth.TokenPrefix + "not-a-ulid.secret"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := auth.ParseTokenValue(tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrTokenInvalid)
			errutil.AssertErrorCode(t, err, auth.CodeTokenInvalid)
		})
	}
}

func TestVerifyTokenSecret(t *testing.T) {
	digest := auth.HashTokenSecret("secret")

	assert.True(t, auth.VerifyTokenSecret("secret", digest))
	assert.False(t, auth.VerifyTokenSecret("secreT", digest))
	assert.False(t, auth.VerifyTokenSecret("secret", ""))
	assert.Equal(t, digest, auth.HashTokenSecret("secret"))
}

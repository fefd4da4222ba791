// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/store"
	"github.com/passgate/passgate/pkg/errutil"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	url := "sqlite://" + filepath.Join(t.TempDir(), "backend.db")

	m, err := store.NewMigrator(url)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	backend, err := store.Open(ctx, url, store.ConnectOptions{Attempts: 1})
	require.NoError(t, err)
	assert.Equal(t, store.EngineSQLite, backend.Engine)
	require.NoError(t, backend.Ping(ctx))

	user, err := auth.NewUser(nil, "backend@example.com", "$argon2id$x", time.Now())
	require.NoError(t, err)
	require.NoError(t, backend.Users.Create(ctx, user))

	token, err := auth.NewAccessToken(user.ID, time.Hour, time.Now())
	require.NoError(t, err)
	require.NoError(t, backend.Tokens.Create(ctx, token))

	got, err := backend.Tokens.GetByID(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)

	require.NoError(t, backend.Close())
	assert.Error(t, backend.Ping(ctx), "ping after close should fail")
}

func TestOpen_InvalidURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"unsupported scheme", "mysql://localhost/db"},
		{"sqlite without path", "sqlite://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Open(context.Background(), tt.url, store.ConnectOptions{Attempts: 1})
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "DATABASE_URL_INVALID")
		})
	}
}

func TestOpenPostgres_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := store.OpenPostgres(ctx, "postgres://u:p@127.0.0.1:1/db?connect_timeout=1",
		store.ConnectOptions{Attempts: 2, Backoff: 10 * time.Millisecond})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "DATABASE_CONNECT_FAILED")
	errutil.AssertErrorContext(t, err, "attempts", uint64(2))
}

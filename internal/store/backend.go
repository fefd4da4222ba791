// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
	authpg "github.com/passgate/passgate/internal/auth/postgres"
	authsqlite "github.com/passgate/passgate/internal/auth/sqlite"
)

// Backend bundles the repositories of one storage engine with its connection.
type Backend struct {
	Engine Engine
	Users  auth.UserRepository
	Tokens auth.TokenRepository

	ping  func(context.Context) error
	close func() error
}

// Open connects to the database named by databaseURL and returns its
// repositories. The schema is not migrated; use Migrator for that.
func Open(ctx context.Context, databaseURL string, opts ConnectOptions) (*Backend, error) {
	engine, err := EngineFor(databaseURL)
	if err != nil {
		return nil, err
	}

	switch engine {
	case EnginePostgres:
		pool, err := OpenPostgres(ctx, databaseURL, opts)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Engine: engine,
			Users:  authpg.NewUserRepository(pool),
			Tokens: authpg.NewTokenRepository(pool),
			ping:   pool.Ping,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	case EngineSQLite:
		db, err := OpenSQLite(ctx, databaseURL, opts)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Engine: engine,
			Users:  authsqlite.NewUserRepository(db),
			Tokens: authsqlite.NewTokenRepository(db),
			ping:   db.PingContext,
			close:  db.Close,
		}, nil
	default:
		return nil, oops.Code("DATABASE_URL_INVALID").With("engine", string(engine)).Errorf("unsupported engine")
	}
}

// Ping reports whether the database is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	if err := b.ping(ctx); err != nil {
		return oops.Code("DATABASE_UNAVAILABLE").With("engine", string(b.Engine)).Wrap(err)
	}
	return nil
}

// Close releases the connection.
func (b *Backend) Close() error {
	if err := b.close(); err != nil {
		return oops.Code("DATABASE_CLOSE_FAILED").With("engine", string(b.Engine)).Wrap(err)
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions tunes how a backend connection is established.
type ConnectOptions struct {
	// Attempts is how many times the initial ping is retried.
	Attempts uint64
	// Backoff is the base delay of the exponential retry.
	Backoff time.Duration
	Logger  *slog.Logger
}

// DefaultConnectOptions returns the options used when none are given.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		Attempts: 5,
		Backoff:  200 * time.Millisecond,
		Logger:   slog.Default(),
	}
}

func (o ConnectOptions) withDefaults() ConnectOptions {
	d := DefaultConnectOptions()
	if o.Attempts == 0 {
		o.Attempts = d.Attempts
	}
	if o.Backoff <= 0 {
		o.Backoff = d.Backoff
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	return o
}

// OpenPostgres creates a connection pool and waits until the server answers
// a ping, retrying with exponential backoff.
func OpenPostgres(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(postgresDSN(databaseURL))
	if err != nil {
		return nil, oops.Code("DATABASE_URL_INVALID").With("engine", string(EnginePostgres)).Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DATABASE_CONNECT_FAILED").With("engine", string(EnginePostgres)).Wrap(err)
	}

	if err := pingWithRetry(ctx, pool.Ping, opts); err != nil {
		pool.Close()
		return nil, oops.Code("DATABASE_CONNECT_FAILED").
			With("engine", string(EnginePostgres)).
			With("attempts", opts.Attempts).
			Wrap(err)
	}
	return pool, nil
}

// pingWithRetry calls ping until it succeeds or the attempts run out.
func pingWithRetry(ctx context.Context, ping func(context.Context) error, opts ConnectOptions) error {
	attempt := 0
	backoff := retry.WithMaxRetries(opts.Attempts-1, retry.NewExponential(opts.Backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := ping(ctx); err != nil {
			opts.Logger.Warn("database ping failed", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

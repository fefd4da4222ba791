// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/config"
	"github.com/passgate/passgate/internal/store"
)

// authStack is the wired authentication core.
type authStack struct {
	service *auth.Service
	sweeper *auth.Sweeper
}

// openBackend connects to the configured database.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Backend, error) {
	return store.Open(ctx, cfg.Database.URL, store.ConnectOptions{
		Attempts: cfg.Database.Attempts,
		Backoff:  cfg.Database.Backoff,
		Logger:   logger,
	})
}

// buildAuth wires the auth components over a backend.
func buildAuth(cfg *config.Config, backend *store.Backend, logger *slog.Logger) (*authStack, error) {
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Memory:  cfg.Argon2.Memory,
		Time:    cfg.Argon2.Time,
		Threads: cfg.Argon2.Threads,
	})

	credentials, err := auth.NewCredentialStore(backend.Users, hasher,
		auth.WithStoreTimeout(cfg.Store.Timeout),
		auth.WithCredentialLogger(logger))
	if err != nil {
		return nil, err
	}

	validator, err := auth.NewValidator(
		auth.WithEmailProbe(credentials),
		auth.WithValidatorLogger(logger))
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewTokenIssuer(backend.Tokens, backend.Users,
		auth.WithTokenTTL(cfg.Token.TTL),
		auth.WithTokenStoreTimeout(cfg.Store.Timeout),
		auth.WithTokenLogger(logger))
	if err != nil {
		return nil, err
	}

	sweeper, err := auth.NewSweeper(backend.Tokens,
		auth.WithSweepInterval(cfg.Sweep.Interval),
		auth.WithSweepQueue(issuer.Expired()),
		auth.WithSweeperLogger(logger))
	if err != nil {
		return nil, err
	}

	service, err := auth.NewService(validator, credentials, issuer, auth.WithServiceLogger(logger))
	if err != nil {
		return nil, err
	}

	return &authStack{service: service, sweeper: sweeper}, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// DefaultStoreTimeout bounds every repository call.
const DefaultStoreTimeout = 5 * time.Second

// dummyPassword is hashed when a CredentialStore is built so that lookups of
// unknown emails cost the same as real verifications.
//
//nolint:gosec // G101: not a credential
const dummyPassword = "passgate-timing-equalizer"

// CredentialStore persists users and verifies their passwords.
type CredentialStore struct {
	users   UserRepository
	hasher  PasswordHasher
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger

	dummyHash string
}

// CredentialStoreOption configures a CredentialStore.
type CredentialStoreOption func(*CredentialStore)

// WithStoreTimeout bounds each repository call. Non-positive values are ignored.
func WithStoreTimeout(d time.Duration) CredentialStoreOption {
	return func(s *CredentialStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCredentialLogger sets the logger used for best-effort diagnostics.
func WithCredentialLogger(logger *slog.Logger) CredentialStoreOption {
	return func(s *CredentialStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCredentialClock overrides the time source.
func WithCredentialClock(now func() time.Time) CredentialStoreOption {
	return func(s *CredentialStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCredentialStore creates a CredentialStore.
func NewCredentialStore(users UserRepository, hasher PasswordHasher, opts ...CredentialStoreOption) (*CredentialStore, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	s := &CredentialStore{
		users:   users,
		hasher:  hasher,
		timeout: DefaultStoreTimeout,
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash dummy password").
			Wrap(err)
	}
	s.dummyHash = dummy
	return s, nil
}

// Create hashes the password and persists a new user. A taken email yields
// an email conflict regardless of any earlier pre-check.
func (s *CredentialStore) Create(ctx context.Context, fullName *string, email, password string) (*User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(fullName, email, hash, s.now())
	if err != nil {
		return nil, err
	}

	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, emailConflict()
		}
		return nil, storeUnavailable("create user", err)
	}
	return user, nil
}

// FindByEmail looks up a user by normalized email. Returns an error wrapping
// ErrNotFound on a miss.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("USER_NOT_FOUND").Wrap(ErrNotFound)
		}
		return nil, storeUnavailable("find user by email", err)
	}
	return user, nil
}

// EmailTaken reports whether the email is already registered. It satisfies
// EmailProbe and never creates a record.
func (s *CredentialStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return false, storeUnavailable("probe email", err)
	}
	return exists, nil
}

// VerifyPassword reports whether password matches the user's stored hash.
// A nil user is verified against a dummy hash so the call costs the same
// whether or not the account exists.
func (s *CredentialStore) VerifyPassword(user *User, password string) bool {
	if user == nil {
		_, _ = s.hasher.Verify(password, s.dummyHash) //nolint:errcheck // timing only
		return false
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Warn("stored password hash is unreadable",
			"user_id", user.ID.String(),
			"error", err)
		return false
	}
	return ok
}

// storeContext bounds a repository call. The caller's cancellation is not
// propagated: once started, a write completes or times out on its own.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

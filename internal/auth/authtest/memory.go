// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package authtest provides test doubles for the auth repositories.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/passgate/passgate/internal/auth"
)

// FastHasher returns an argon2id hasher with minimal cost for tests.
func FastHasher() *auth.Argon2idHasher {
	return auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time:    1,
		Memory:  64,
		Threads: 1,
	})
}

// MemoryUsers is a thread-safe in-memory UserRepository. Email uniqueness
// is enforced atomically under its lock, like a unique index.
type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]auth.User
	byEmail map[string]ulid.ULID
}

// NewMemoryUsers creates an empty MemoryUsers.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    make(map[ulid.ULID]auth.User),
		byEmail: make(map[string]ulid.ULID),
	}
}

// Create implements auth.UserRepository.
func (r *MemoryUsers) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := user.NormalizedEmail()
	if _, ok := r.byEmail[key]; ok {
		return oops.With("email", key).Wrap(auth.ErrEmailExists)
	}
	r.byID[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

// GetByID implements auth.UserRepository.
func (r *MemoryUsers) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &user, nil
}

// GetByEmail implements auth.UserRepository.
func (r *MemoryUsers) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[auth.NormalizeEmail(email)]
	if !ok {
		return nil, oops.Wrap(auth.ErrNotFound)
	}
	user := r.byID[id]
	return &user, nil
}

// EmailExists implements auth.UserRepository.
func (r *MemoryUsers) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byEmail[auth.NormalizeEmail(email)]
	return ok, nil
}

// Len returns the number of stored users.
func (r *MemoryUsers) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// MemoryTokens is a thread-safe in-memory TokenRepository.
type MemoryTokens struct {
	mu     sync.RWMutex
	tokens map[ulid.ULID]auth.AccessToken
}

// NewMemoryTokens creates an empty MemoryTokens.
func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[ulid.ULID]auth.AccessToken)}
}

// Create implements auth.TokenRepository. The plaintext value is dropped.
func (r *MemoryTokens) Create(_ context.Context, token *auth.AccessToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *token
	stored.Value = ""
	r.tokens[token.ID] = stored
	return nil
}

// GetByID implements auth.TokenRepository.
func (r *MemoryTokens) GetByID(_ context.Context, id ulid.ULID) (*auth.AccessToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	token, ok := r.tokens[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return &token, nil
}

// Touch implements auth.TokenRepository.
func (r *MemoryTokens) Touch(_ context.Context, id ulid.ULID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[id]
	if !ok {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	token.LastUsedAt = &at
	r.tokens[id] = token
	return nil
}

// Delete implements auth.TokenRepository.
func (r *MemoryTokens) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tokens[id]; !ok {
		return oops.With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	delete(r.tokens, id)
	return nil
}

// DeleteByUser implements auth.TokenRepository.
func (r *MemoryTokens) DeleteByUser(_ context.Context, userID ulid.ULID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, token := range r.tokens {
		if token.UserID == userID {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

// DeleteExpired implements auth.TokenRepository.
func (r *MemoryTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, token := range r.tokens {
		if token.IsExpiredAt(now) {
			delete(r.tokens, id)
			n++
		}
	}
	return n, nil
}

// Has reports whether a token with id is stored.
func (r *MemoryTokens) Has(id ulid.ULID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tokens[id]
	return ok
}

// Len returns the number of stored tokens.
func (r *MemoryTokens) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

// Verify interfaces are satisfied.
var (
	_ auth.UserRepository  = (*MemoryUsers)(nil)
	_ auth.TokenRepository = (*MemoryTokens)(nil)
)

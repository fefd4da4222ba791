// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultSweepInterval is how often the sweeper deletes expired tokens.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper deletes expired access tokens in the background. It removes
// tokens queued by TokenIssuer.Resolve as they arrive and runs a full
// DeleteExpired pass on every interval.
type Sweeper struct {
	tokens   TokenRepository
	queue    <-chan ulid.ULID
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval sets the period between full sweeps. Non-positive values are ignored.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweepQueue sets the channel of token IDs to delete immediately,
// usually TokenIssuer.Expired.
func WithSweepQueue(queue <-chan ulid.ULID) SweeperOption {
	return func(s *Sweeper) {
		s.queue = queue
	}
}

// WithSweeperLogger sets the sweeper logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSweeperClock overrides the time source.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSweeper creates a Sweeper. It does nothing until Start is called.
func NewSweeper(tokens TokenRepository, opts ...SweeperOption) (*Sweeper, error) {
	if tokens == nil {
		return nil, oops.Errorf("tokens repository is required")
	}
	s := &Sweeper{
		tokens:   tokens,
		interval: DefaultSweepInterval,
		timeout:  DefaultStoreTimeout,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sweep deletes every token expired at the current time and returns the count.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	n, err := s.tokens.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, storeUnavailable("delete expired tokens", err)
	}
	TokensSwept.Add(float64(n))
	return n, nil
}

// Start launches the background loop. Calling Start twice is an error.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return oops.Errorf("sweeper already started")
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.started = true

	go s.run(ctx)
	return nil
}

// Stop halts the background loop and waits for it to exit. Stop is safe to
// call on a sweeper that was never started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			s.deleteOne(ctx, id)
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				s.logger.Warn("token sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("swept expired tokens", "count", n)
			}
		}
	}
}

func (s *Sweeper) deleteOne(ctx context.Context, id ulid.ULID) {
	ctx, cancel := storeContext(ctx, s.timeout)
	defer cancel()

	err := s.tokens.Delete(ctx, id)
	switch {
	case err == nil:
		TokensSwept.Inc()
	case errors.Is(err, ErrNotFound):
	default:
		s.logger.Debug("failed to delete expired token",
			"token_id", id.String(),
			"error", err)
	}
}

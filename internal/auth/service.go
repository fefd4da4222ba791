// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("passgate/auth")

// AuthResult is returned by a successful register or login. Token is the
// bearer value and is only ever shown here.
type AuthResult struct {
	User  UserSummary
	Token string
}

// Service orchestrates registration, login, and identity lookup.
type Service struct {
	validator   *Validator
	credentials *CredentialStore
	issuer      *TokenIssuer
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service.
func NewService(validator *Validator, credentials *CredentialStore, issuer *TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if validator == nil {
		return nil, oops.Errorf("validator is required")
	}
	if credentials == nil {
		return nil, oops.Errorf("credential store is required")
	}
	if issuer == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	s := &Service{
		validator:   validator,
		credentials: credentials,
		issuer:      issuer,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates a registration payload, creates the user, and issues
// its first token.
func (s *Service) Register(ctx context.Context, body []byte) (result *AuthResult, err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "auth.register")
	defer func() { s.finish(span, OperationRegister, started, err) }()

	in, err := s.validator.ValidateRegister(ctx, body)
	if err != nil {
		return nil, err
	}

	user, err := s.credentials.Create(ctx, in.FullName, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	token, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return &AuthResult{User: user.Summary(), Token: token.Value}, nil
}

// Login validates a login payload, checks the credentials, and issues a new
// token. An unknown email and a wrong password fail identically.
func (s *Service) Login(ctx context.Context, body []byte) (result *AuthResult, err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "auth.login")
	defer func() { s.finish(span, OperationLogin, started, err) }()

	in, err := s.validator.ValidateLogin(body)
	if err != nil {
		return nil, err
	}

	user, err := s.credentials.FindByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// user is nil on a miss; VerifyPassword still spends a full hash.
	if !s.credentials.VerifyPassword(user, in.Password) {
		return nil, invalidCredentials()
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	token, err := s.issuer.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return &AuthResult{User: user.Summary(), Token: token.Value}, nil
}

// Me returns the public profile of an already resolved identity.
func (s *Service) Me(ctx context.Context, identity *User) (profile *UserProfile, err error) {
	started := time.Now()
	_, span := tracer.Start(ctx, "auth.me")
	defer func() { s.finish(span, OperationMe, started, err) }()

	if identity == nil {
		return nil, unauthenticated()
	}
	p := identity.Profile()
	return &p, nil
}

// Authenticate resolves a bearer value to its owner.
func (s *Service) Authenticate(ctx context.Context, tokenValue string) (user *User, err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "auth.resolve")
	defer func() { s.finish(span, OperationResolve, started, err) }()

	if tokenValue == "" {
		return nil, unauthenticated()
	}
	return s.issuer.Resolve(ctx, tokenValue)
}

// Logout revokes the presented bearer value.
func (s *Service) Logout(ctx context.Context, tokenValue string) (err error) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "auth.logout")
	defer func() { s.finish(span, OperationLogout, started, err) }()

	if tokenValue == "" {
		return unauthenticated()
	}
	return s.issuer.RevokeValue(ctx, tokenValue)
}

func (s *Service) finish(span trace.Span, operation string, started time.Time, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("auth.failure", KindOf(err).String()))
		if KindOf(err) == KindInternal || KindOf(err) == KindStoreUnavailable {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
	recordOperation(operation, started, err)
}

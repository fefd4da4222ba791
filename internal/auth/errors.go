// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package auth

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/samber/oops"
)

// Error codes attached to errors returned by this package.
const (
	CodeValidationFailed   = "AUTH_VALIDATION_FAILED"
	CodeEmailExists        = "AUTH_EMAIL_EXISTS"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeStoreUnavailable   = "AUTH_STORE_UNAVAILABLE"
	CodeMalformedRequest   = "AUTH_MALFORMED_REQUEST"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
)

// Sentinel errors. Repositories wrap ErrNotFound and ErrEmailExists; the
// remaining sentinels mark the chain of errors produced by services so that
// KindOf can classify them.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailExists is returned by UserRepository.Create when the
	// normalized email is already taken.
	ErrEmailExists = errors.New("email already exists")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrMalformedRequest   = errors.New("malformed request")
)

// Kind is the closed set of failure classes surfaced to callers.
type Kind int

// Failure kinds.
const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidCredentials
	KindUnauthenticated
	KindStoreUnavailable
	KindMalformedRequest
)

var kindNames = map[Kind]string{
	KindInternal:           "internal",
	KindValidation:         "validation",
	KindInvalidCredentials: "invalid_credentials",
	KindUnauthenticated:    "unauthenticated",
	KindStoreUnavailable:   "store_unavailable",
	KindMalformedRequest:   "malformed_request",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf classifies err. Errors that carry none of the package sentinels
// are KindInternal.
func KindOf(err error) Kind {
	var ve *ValidationError
	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &ve):
		return KindValidation
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrTokenExpired):
		return KindUnauthenticated
	case errors.Is(err, ErrMalformedRequest):
		return KindMalformedRequest
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// FieldErrors maps a payload field name to its violation messages.
type FieldErrors map[string][]string

// Add appends a message for field unless it is already recorded.
func (f FieldErrors) Add(field, message string) {
	if slices.Contains(f[field], message) {
		return
	}
	f[field] = append(f[field], message)
}

// ValidationError reports field-level violations of a payload.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// FieldErrorsOf returns the field violations carried by err, or nil.
func FieldErrorsOf(err error) FieldErrors {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}

func validationFailed(fields FieldErrors) error {
	return oops.Code(CodeValidationFailed).
		With("fields", len(fields)).
		Wrap(&ValidationError{Fields: fields})
}

func emailConflict() error {
	fields := FieldErrors{}
	fields.Add("email", "email has already been taken")
	return oops.Code(CodeEmailExists).Wrap(&ValidationError{Fields: fields})
}

func invalidCredentials() error {
	return oops.Code(CodeInvalidCredentials).Wrap(ErrInvalidCredentials)
}

func unauthenticated() error {
	return oops.Code(CodeUnauthenticated).Wrap(ErrUnauthenticated)
}

func malformedRequest(reason string) error {
	return oops.Code(CodeMalformedRequest).
		With("reason", reason).
		Wrap(ErrMalformedRequest)
}

// storeUnavailable wraps a repository failure. Repository errors carry no
// code of their own, so the outer code is the one reported.
func storeUnavailable(operation string, err error) error {
	return oops.Code(CodeStoreUnavailable).
		With("operation", operation).
		Wrap(errors.Join(ErrStoreUnavailable, err))
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

// Package auth implements credential authentication for Passgate.
//
// # Domain Types
//
// Domain types should be created using their constructors:
//   - NewUser - creates a User with a fresh ID and validated email and hash
//   - NewAccessToken - mints a token with a random secret and its digest
//
// Repository implementations receive pre-validated types from these constructors.
//
// # Components
//
//   - Validator - checks register and login payloads against JSON Schemas
//     reflected from RegisterInput and LoginInput
//   - CredentialStore - creates users, looks them up by email, verifies passwords
//   - TokenIssuer - issues, resolves, and revokes bearer tokens
//   - Sweeper - deletes expired tokens in the background
//   - Service - orchestrates Register, Login, and Me
//
// # Errors
//
// Errors carry oops codes for logging. Callers classify them with KindOf,
// which maps every error to one of a closed set of Kind values, and read
// field violations with FieldErrorsOf.
package auth

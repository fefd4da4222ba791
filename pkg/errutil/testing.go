// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that the deepest oops code in err's chain is code.
func AssertErrorCode(t testing.TB, err error, code string) {
	t.Helper()
	oopsErr := requireOops(t, err)
	assert.Equal(t, code, oopsErr.Code(), "error: %v, context: %v", err, oopsErr.Context())
}

// AssertErrorContext asserts that err carries the given oops context key/value.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	ctx := requireOops(t, err).Context()
	if assert.Contains(t, ctx, key) {
		assert.Equal(t, value, ctx[key])
	}
}

// AssertUncoded asserts that err carries no oops code. Repository errors
// stay uncoded so the auth layer decides their classification.
func AssertUncoded(t testing.TB, err error) {
	t.Helper()
	require.Error(t, err)
	if oopsErr, ok := oops.AsOops(err); ok {
		assert.Nil(t, oopsErr.Code(), "unexpected code on %v", err)
	}
}

func requireOops(t testing.TB, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	return oopsErr
}

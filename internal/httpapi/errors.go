// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/pkg/errutil"
)

// fail renders err by kind. generic is the catch-all message for the route.
func (s *Server) fail(c *fiber.Ctx, err error, generic string) error {
	switch auth.KindOf(err) {
	case auth.KindValidation:
		return c.Status(fiber.StatusUnprocessableEntity).JSON(validationBody{Errors: auth.FieldErrorsOf(err)})
	case auth.KindInvalidCredentials:
		return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: msgInvalidCredentials})
	case auth.KindUnauthenticated:
		return s.unauthorized(c)
	case auth.KindStoreUnavailable:
		errutil.LogErrorContext(c.UserContext(), s.logger, "store unavailable", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorBody{Error: msgUnavailable})
	case auth.KindMalformedRequest:
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: generic})
	default:
		errutil.LogErrorContext(c.UserContext(), s.logger, "unexpected request failure", err)
		return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: generic})
	}
}

func (s *Server) unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(errorBody{Error: msgUnauthenticated})
}

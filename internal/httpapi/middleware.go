// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/passgate/passgate/internal/auth"
	"github.com/passgate/passgate/internal/logging"
)

// identityKey is the fiber Locals key holding the resolved *auth.User.
const identityKey = "passgate.identity"

// tokenKey is the fiber Locals key holding the presented bearer value.
const tokenKey = "passgate.token"

// requestContext carries the request ID into the context handed to the service.
func (s *Server) requestContext(c *fiber.Ctx) error {
	id := c.GetRespHeader(fiber.HeaderXRequestID)
	c.SetUserContext(logging.WithRequestID(c.UserContext(), id))
	return c.Next()
}

// observe records per-route request counts and latency.
func (s *Server) observe(c *fiber.Ctx) error {
	started := time.Now()
	err := c.Next()
	if s.metrics == nil {
		return err
	}

	status := c.Response().StatusCode()
	if err != nil {
		// The error handler has not rendered the response yet.
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	route := c.Route().Path
	s.metrics.RequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
	s.metrics.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(started).Seconds())
	return err
}

// requireIdentity resolves the bearer token and stores its owner for the
// next handler. Any failure ends the request with 401.
func (s *Server) requireIdentity(c *fiber.Ctx) error {
	value, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return s.unauthorized(c)
	}

	user, err := s.service.Authenticate(c.UserContext(), value)
	if err != nil {
		if auth.KindOf(err) == auth.KindUnauthenticated {
			return s.unauthorized(c)
		}
		return s.fail(c, err, msgGenericMe)
	}

	c.Locals(identityKey, user)
	c.Locals(tokenKey, value)
	return c.Next()
}

// bearerToken extracts the token from an Authorization header. The scheme
// is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// identity returns the user resolved by requireIdentity, or nil.
func identity(c *fiber.Ctx) *auth.User {
	user, _ := c.Locals(identityKey).(*auth.User)
	return user
}

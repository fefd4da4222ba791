// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Passgate Contributors

package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/passgate/passgate/internal/auth"
)

// Client-facing messages. They never say which credential was wrong.
const (
	msgInvalidCredentials = "Invalid credentials"
	msgUnauthenticated    = "User not authenticated or token invalid."
	msgUnavailable        = "Service temporarily unavailable. Please try again."
	msgGenericRegister    = "Could not process registration request. Please try again."
	msgGenericLogin       = "Could not process login request."
	msgGenericMe          = "Could not process request."
)

type errorBody struct {
	Error string `json:"error"`
}

type validationBody struct {
	Errors auth.FieldErrors `json:"errors"`
}

type userBody struct {
	ID       string  `json:"id"`
	FullName *string `json:"fullName"`
	Email    string  `json:"email"`
}

type profileBody struct {
	userBody
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type authBody struct {
	User  userBody `json:"user"`
	Token string   `json:"token"`
}

type meBody struct {
	User profileBody `json:"user"`
}

func newUserBody(u auth.UserSummary) userBody {
	return userBody{ID: u.ID.String(), FullName: u.FullName, Email: u.Email}
}

func (s *Server) hello(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"hello": "world"})
}

func (s *Server) register(c *fiber.Ctx) error {
	result, err := s.service.Register(c.UserContext(), c.Body())
	if err != nil {
		return s.fail(c, err, msgGenericRegister)
	}
	return c.Status(fiber.StatusCreated).JSON(authBody{
		User:  newUserBody(result.User),
		Token: result.Token,
	})
}

func (s *Server) login(c *fiber.Ctx) error {
	result, err := s.service.Login(c.UserContext(), c.Body())
	if err != nil {
		return s.fail(c, err, msgGenericLogin)
	}
	return c.JSON(authBody{
		User:  newUserBody(result.User),
		Token: result.Token,
	})
}

func (s *Server) me(c *fiber.Ctx) error {
	profile, err := s.service.Me(c.UserContext(), identity(c))
	if err != nil {
		return s.fail(c, err, msgGenericMe)
	}
	return c.JSON(meBody{User: profileBody{
		userBody:  newUserBody(profile.UserSummary),
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}})
}

func (s *Server) logout(c *fiber.Ctx) error {
	value, _ := c.Locals(tokenKey).(string)
	if err := s.service.Logout(c.UserContext(), value); err != nil {
		return s.fail(c, err, msgGenericMe)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

package server

import (
	"ideaboard/internal/middleware"
	"ideaboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type casRequest struct {
	Ticket  string `json:"ticket"`
	Service string `json:"service"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Signup handles POST /api/auth/signup and logs the new user in.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req service.SignupInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.authService.Signup(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.startSession(c, user); err != nil {
		return nil
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.startSession(c, user); err != nil {
		return nil
	}
	return c.JSON(user)
}

// Logout handles POST /api/auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	s.endSession(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /api/auth/me. Anonymous callers get a JSON null.
func (s *Server) Me(c *fiber.Ctx) error {
	user, err := s.authService.GetUser(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return c.JSON(nil)
	}
	return c.JSON(user)
}

// CASValidate handles POST /api/auth/cas/validate
func (s *Server) CASValidate(c *fiber.Ctx) error {
	var req casRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	user, err := s.casService.Login(c.UserContext(), req.Ticket, req.Service)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.startSession(c, user); err != nil {
		return nil
	}
	return c.JSON(user)
}

// RequestPasswordReset handles POST /api/auth/reset/request. The reply is
// the same whether or not the address is registered.
func (s *Server) RequestPasswordReset(c *fiber.Ctx) error {
	var req resetRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg := s.resetService.RequestReset(c.UserContext(), req.Email)
	return c.JSON(messageResponse{Message: msg})
}

// ConfirmPasswordReset handles POST /api/auth/reset/confirm
func (s *Server) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req resetConfirmRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	msg, err := s.resetService.ConfirmReset(c.UserContext(), req.Token, req.Password, req.ConfirmPassword)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messageResponse{Message: msg})
}

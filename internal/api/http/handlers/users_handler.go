package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/collipulli/helpdesk/internal/api/dto"
	"github.com/collipulli/helpdesk/internal/auth"
	"github.com/collipulli/helpdesk/internal/service"
	apperrors "github.com/collipulli/helpdesk/pkg/util"
)

// UsersHandler exposes identity and profile endpoints.
type UsersHandler struct {
	auth     *service.AuthService
	profiles *service.ProfileService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, profileService *service.ProfileService) *UsersHandler {
	return &UsersHandler{auth: authService, profiles: profileService}
}

// SignUp POST /v1/auth/sign-up.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, token, err := h.auth.SignUp(c.UserContext(), service.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Sector:   req.Sector,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAuthResponse(user, token)})
}

// SignIn POST /v1/auth/sign-in.
func (h *UsersHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, token, err := h.auth.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAuthResponse(user, token)})
}

// SignOut POST /v1/auth/sign-out.
func (h *UsersHandler) SignOut(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	if err := h.auth.SignOut(c.UserContext(), principal); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me GET /v1/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	user, err := h.profiles.Get(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// UpdateMe PATCH /v1/me.
func (h *UsersHandler) UpdateMe(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.profiles.Update(c.UserContext(), principal.User, service.ProfileUpdateInput{
		Name:   req.Name,
		Sector: req.Sector,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListUsers GET /v1/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	users, err := h.profiles.ListUsers(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserList(users)})
}

package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coinkeep/coinkeep/internal/auth"
	"github.com/coinkeep/coinkeep/internal/identity"
	"github.com/coinkeep/coinkeep/internal/middleware"
)

// RegisterProfileRoutes wires the authenticated profile and credential
// rotation endpoints. Successful rotations bump the token version, so a fresh
// token pair is returned in place of the now-invalid session.
func RegisterProfileRoutes(r fiber.Router, ids *identity.Service, tokens *auth.Service) {
	r.Get("/me", func(c *fiber.Ctx) error {
		user, ok := middleware.Caller(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not logged in")
		}
		return c.JSON(fiber.Map{
			"user_id":    user.ID,
			"full_name":  user.FullName,
			"email":      user.Email,
			"username":   user.Username,
			"created_at": user.CreatedAt,
		})
	})

	r.Post("/me/password", func(c *fiber.Ctx) error {
		user, ok := middleware.Caller(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not logged in")
		}
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
			NewConfirm  string `json:"new_confirm"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		ok, err := ids.RotatePassword(c.UserContext(), user, req.OldPassword, req.NewPassword, req.NewConfirm)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if !ok {
			return fiber.NewError(http.StatusBadRequest, "password not updated")
		}
		return reissueTokens(c, ids, tokens, user.ID)
	})

	r.Post("/me/username", func(c *fiber.Ctx) error {
		user, ok := middleware.Caller(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, "not logged in")
		}
		var req struct {
			ConfirmPassword string `json:"confirm_password"`
			NewUsername     string `json:"new_username"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		ok, err := ids.RotateUsername(c.UserContext(), user, req.ConfirmPassword, req.NewUsername)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if !ok {
			return fiber.NewError(http.StatusBadRequest, "username not updated")
		}
		return reissueTokens(c, ids, tokens, user.ID)
	})
}

// reissueTokens re-reads the identity (rotation changed it) and hands the
// caller a session valid for the new token version.
func reissueTokens(c *fiber.Ctx, ids *identity.Service, tokens *auth.Service, userID string) error {
	user, err := ids.FindByID(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	pair, err := tokens.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"username":      user.Username,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	})
}

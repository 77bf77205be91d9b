package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinkeep/coinkeep/internal/auth"
)

// RegisterAuthRoutes wires login and refresh endpoints. Login attempts pass
// through the rate limiter first.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	r.Post("/login", rateLimiter, h.Login)
	r.Post("/refresh", h.Refresh)
}

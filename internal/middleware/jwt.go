package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinkeep/coinkeep/internal/auth"
	"github.com/coinkeep/coinkeep/internal/config"
	"github.com/coinkeep/coinkeep/internal/identity"
)

// CallerLocal is the fiber.Ctx locals key under which the resolved caller
// identity is stored for downstream handlers.
const CallerLocal = "caller"

// JWTAuth returns a middleware that validates JWT access tokens, checks
// expiry and the token version, and resolves the caller identity. Handlers downstream read
// the resolved identity.User from locals; they never trust token claims
// beyond the immutable user ID.
func JWTAuth(cfg config.Config, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		if exp, ok := claims["exp"].(float64); !ok || time.Now().Unix() >= int64(exp) {
			return fiber.NewError(http.StatusUnauthorized, "token expired")
		}
		sub, _ := claims["sub"].(string)
		verFloat, _ := claims["ver"].(float64)
		ver := int(verFloat)

		user, err := repo.FindByID(c.UserContext(), sub)
		if err != nil || user.TokenVersion != ver {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals("user_id", user.ID)
		c.Locals(CallerLocal, user)
		return c.Next()
	}
}

// Caller extracts the resolved caller identity stored by JWTAuth. The second
// return is false when no authenticated caller is present.
func Caller(c *fiber.Ctx) (identity.User, bool) {
	user, ok := c.Locals(CallerLocal).(identity.User)
	return user, ok
}

package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/auth"
	"github.com/coinkeep/coinkeep/internal/config"
	"github.com/coinkeep/coinkeep/internal/identity"
)

func setupJWTApp(t *testing.T) (*fiber.App, config.Config, identity.User) {
	t.Helper()
	cfg := config.Config{JWTSecret: "test-access-secret"}
	repo := identity.NewMemoryRepository()
	user := identity.User{ID: uuid.NewString(), Username: "alice"}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	app := fiber.New()
	app.Get("/me", JWTAuth(cfg, repo), func(c *fiber.Ctx) error {
		caller, ok := Caller(c)
		if !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "caller missing")
		}
		return c.JSON(fiber.Map{"user_id": caller.ID})
	})
	return app, cfg, user
}

func signToken(t *testing.T, cfg config.Config, user identity.User, issuedAt, expiresAt time.Time) string {
	t.Helper()
	token, err := auth.SignHS256(map[string]any{
		"sub":      user.ID,
		"username": user.Username,
		"ver":      user.TokenVersion,
		"iat":      issuedAt.Unix(),
		"exp":      expiresAt.Unix(),
	}, []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func getWithToken(t *testing.T, app *fiber.App, token string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestJWTAuthAcceptsFreshToken(t *testing.T) {
	app, cfg, user := setupJWTApp(t)

	now := time.Now()
	token := signToken(t, cfg, user, now, now.Add(15*time.Minute))
	if code := getWithToken(t, app, token); code != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, code)
	}
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	app, cfg, user := setupJWTApp(t)

	now := time.Now()
	token := signToken(t, cfg, user, now.Add(-time.Hour), now.Add(-time.Minute))
	if code := getWithToken(t, app, token); code != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, code)
	}
}

func TestJWTAuthRejectsMissingExpiry(t *testing.T) {
	app, cfg, user := setupJWTApp(t)

	token, err := auth.SignHS256(map[string]any{
		"sub":      user.ID,
		"username": user.Username,
		"ver":      user.TokenVersion,
	}, []byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if code := getWithToken(t, app, token); code != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, code)
	}
}

func TestJWTAuthRejectsStaleTokenVersion(t *testing.T) {
	app, cfg, user := setupJWTApp(t)

	stale := user
	stale.TokenVersion = user.TokenVersion - 1
	now := time.Now()
	token := signToken(t, cfg, stale, now, now.Add(15*time.Minute))
	if code := getWithToken(t, app, token); code != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, code)
	}
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	app, _, _ := setupJWTApp(t)

	if code := getWithToken(t, app, ""); code != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, code)
	}
}

package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupLoginApp(t *testing.T, cache *redis.Client) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/auth/login", LoginRateLimit(cache, 3), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func postLogin(t *testing.T, app *fiber.App, username string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/auth/login", strings.NewReader(`{"username":"`+username+`"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestLoginRateLimitBlocksAfterThreshold(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := setupLoginApp(t, cache)

	for i := 0; i < 3; i++ {
		if code := postLogin(t, app, "alice"); code != fiber.StatusOK {
			t.Fatalf("attempt %d: expected %d got %d", i+1, fiber.StatusOK, code)
		}
	}
	if code := postLogin(t, app, "alice"); code != fiber.StatusTooManyRequests {
		t.Fatalf("expected %d got %d", fiber.StatusTooManyRequests, code)
	}

	// Another username has its own counter.
	if code := postLogin(t, app, "bob"); code != fiber.StatusOK {
		t.Fatalf("expected %d for other user, got %d", fiber.StatusOK, code)
	}
}

func TestLoginRateLimitCaseInsensitiveUsername(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := setupLoginApp(t, cache)

	for _, name := range []string{"Alice", "ALICE", "alice"} {
		if code := postLogin(t, app, name); code != fiber.StatusOK {
			t.Fatalf("expected %d got %d", fiber.StatusOK, code)
		}
	}
	if code := postLogin(t, app, "aLiCe"); code != fiber.StatusTooManyRequests {
		t.Fatalf("casing must not reset the counter, got %d", code)
	}
}

func TestLoginRateLimitNoCacheFailsOpen(t *testing.T) {
	app := setupLoginApp(t, nil)

	for i := 0; i < 10; i++ {
		if code := postLogin(t, app, "alice"); code != fiber.StatusOK {
			t.Fatalf("expected fail-open %d got %d", fiber.StatusOK, code)
		}
	}
}

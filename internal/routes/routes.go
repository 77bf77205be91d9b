package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/coinkeep/coinkeep/internal/auth"
	"github.com/coinkeep/coinkeep/internal/authz"
	"github.com/coinkeep/coinkeep/internal/config"
	"github.com/coinkeep/coinkeep/internal/identity"
	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/middleware"
	"github.com/coinkeep/coinkeep/internal/notification"
	"github.com/coinkeep/coinkeep/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fiber.NewError(http.StatusInternalServerError, "database is required outside development")
		}
		if d.Cache == nil {
			return fiber.NewError(http.StatusInternalServerError, "redis is required outside development")
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var ledgerStore ledger.Store
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresStore(d.DB)
	} else {
		ledgerStore = ledger.NewInMemoryStore()
	}
	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	// Services and handlers
	guard := authz.NewGuard(d.Logger)
	identitySvc := identity.NewService(identityRepo, ledgerStore, d.Logger)
	ledgerSvc := ledger.NewService(ledgerStore, guard, d.Logger)
	notifier := notification.NewLoggerNotifier(d.Logger)
	transferSvc := transfer.NewService(ledgerSvc, ledgerStore, notifier, d.Logger)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	authHandler := auth.NewHandler(identitySvc, authSvc)
	ledgerHandler := ledger.NewHandler(ledgerSvc)
	transferHandler := transfer.NewHandler(transferSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identitySvc, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginPerMinute)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	protected := api.Group("", jwtmw)
	RegisterProfileRoutes(protected, identitySvc, authSvc)
	RegisterAccountRoutes(protected, ledgerHandler)
	RegisterTransferRoutes(protected, transferHandler)
	protected.Post("/logout", authHandler.Logout)

	return nil
}

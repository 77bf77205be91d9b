package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/coinkeep/coinkeep/internal/ledger"
)

// RegisterAccountRoutes wires account and transaction endpoints.
func RegisterAccountRoutes(r fiber.Router, h *ledger.Handler) {
	r.Get("/accounts", h.List)
	r.Post("/accounts", h.Create)
	r.Get("/accounts/:accountId", h.Get)
	r.Delete("/accounts/:accountId", h.Delete)
	r.Post("/accounts/:accountId/transactions", h.CreateTransaction)
	r.Get("/transactions/:transactionId", h.GetTransaction)
	r.Delete("/transactions/:transactionId", h.DeleteTransaction)
}

package transfer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/coinkeep/coinkeep/internal/middleware"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	AmountInCents int64  `json:"amount_in_cents"`
}

// Create moves funds between two of the caller's accounts.
func (h *Handler) Create(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Transfer(c.UserContext(), &user, req.FromAccountID, req.ToAccountID, req.AmountInCents)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "transfer amount must be positive")
		case errors.Is(err, ErrSameAccount):
			return fiber.NewError(http.StatusBadRequest, "transfer requires two distinct accounts")
		case errors.Is(err, ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, "account not found")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"debit_transaction_id":  res.Debit.ID,
		"credit_transaction_id": res.Credit.ID,
		"amount_in_cents":       req.AmountInCents,
		"completed_at":          res.CompletedAt,
	})
}

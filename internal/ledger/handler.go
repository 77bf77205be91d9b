package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/coinkeep/coinkeep/internal/middleware"
)

// Handler exposes account and transaction HTTP endpoints. It only translates
// between HTTP and the service; ownership and balance rules live in the
// service and store.
type Handler struct {
	service *Service
}

// NewHandler builds a ledger HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type accountResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	BalanceInCents int64     `json:"balance_in_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

type transactionResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AmountInCents int64     `json:"amount_in_cents"`
	ToFrom        string    `json:"to_from"`
	AccountID     string    `json:"account_id"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{ID: a.ID, Name: a.Name, BalanceInCents: a.BalanceInCents, CreatedAt: a.CreatedAt}
}

func toTransactionResponse(t Transaction) transactionResponse {
	return transactionResponse{ID: t.ID, Name: t.Name, AmountInCents: t.AmountInCents, ToFrom: t.ToFrom, AccountID: t.AccountID, CreatedAt: t.CreatedAt}
}

// List returns the caller's accounts.
func (h *Handler) List(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	accounts, err := h.service.ListAccounts(c.UserContext(), &user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": out})
}

type createAccountRequest struct {
	Name                  string `json:"name"`
	OpeningBalanceInCents int64  `json:"opening_balance_in_cents"`
}

// Create opens a new account for the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	var req createAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "account name is required")
	}
	account, err := h.service.CreateAccount(c.UserContext(), req.Name, req.OpeningBalanceInCents, &user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(account))
}

// Get returns one of the caller's accounts with its transaction history.
// Accounts owned by others are reported as not found.
func (h *Handler) Get(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	account, err := h.service.GetAccount(c.UserContext(), &user, c.Params("accountId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	txns, err := h.service.ListTransactions(c.UserContext(), &user, account.ID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	outTxns := make([]transactionResponse, 0, len(txns))
	for _, t := range txns {
		outTxns = append(outTxns, toTransactionResponse(t))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account":      toAccountResponse(account),
		"transactions": outTxns,
	})
}

// Delete removes one of the caller's accounts and its transactions. Deleting
// an account the caller does not own is a silent no-op.
func (h *Handler) Delete(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	if err := h.service.DeleteAccount(c.UserContext(), &user, c.Params("accountId")); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

type createTransactionRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	AmountInCents int64  `json:"amount_in_cents"`
	ToFrom        string `json:"to_from"`
}

// CreateTransaction records an income or expense on one of the caller's
// accounts. The amount is taken as a magnitude; expenses are negated here so
// the ledger never reinterprets sign.
func (h *Handler) CreateTransaction(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	var req createTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Type != "income" && req.Type != "expense" {
		return fiber.NewError(http.StatusBadRequest, "transaction type must be income or expense")
	}

	amount := req.AmountInCents
	if amount < 0 {
		amount = -amount
	}
	if req.Type == "expense" {
		amount = -amount
	}

	txn, err := h.service.CreateTransaction(c.UserContext(), &user, c.Params("accountId"), req.Name, amount, req.ToFrom)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toTransactionResponse(txn))
}

// GetTransaction returns one of the caller's transactions, shielded the same
// way as accounts.
func (h *Handler) GetTransaction(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	txn, err := h.service.GetTransaction(c.UserContext(), &user, c.Params("transactionId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toTransactionResponse(txn))
}

// DeleteTransaction removes one of the caller's transactions, reversing its
// balance effect.
func (h *Handler) DeleteTransaction(c *fiber.Ctx) error {
	user, ok := middleware.Caller(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "not logged in")
	}
	txn, err := h.service.GetTransaction(c.UserContext(), &user, c.Params("transactionId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if err := h.service.DeleteTransaction(c.UserContext(), &user, txn); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/identity"
	"github.com/coinkeep/coinkeep/internal/ledger"
	"github.com/coinkeep/coinkeep/internal/notification"
)

var (
	// ErrInvalidAmount indicates a zero or negative transfer amount.
	ErrInvalidAmount = errors.New("transfer amount must be positive")
	// ErrAccountNotFound indicates either side of the transfer did not
	// resolve for the requesting owner.
	ErrAccountNotFound = errors.New("account not found")
	// ErrSameAccount indicates source and destination are one account.
	ErrSameAccount = errors.New("transfer requires two distinct accounts")
)

// Service composes two ledger writes into one atomic transfer between two
// accounts of the same owner.
type Service struct {
	accounts *ledger.Service
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds a transfer service. The ledger service resolves accounts
// honoring ownership; the store performs the atomic pair write.
func NewService(accounts *ledger.Service, store ledger.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, store: store, notifier: notifier, logger: logger}
}

// Result carries the two sides of a completed transfer.
type Result struct {
	Debit       ledger.Transaction
	Credit      ledger.Transaction
	CompletedAt time.Time
}

// Transfer moves amountInCents from one of the owner's accounts to another.
// The source account records -amount labelled with the destination's name;
// the destination records +amount labelled with the source's name. Both
// transactions are written as a single unit: if either side cannot be
// completed, neither is persisted.
func (s *Service) Transfer(ctx context.Context, owner *identity.User, fromAccountID, toAccountID string, amountInCents int64) (Result, error) {
	if amountInCents <= 0 {
		return Result{}, ErrInvalidAmount
	}
	if fromAccountID == toAccountID {
		return Result{}, ErrSameAccount
	}

	from, err := s.accounts.GetAccount(ctx, owner, fromAccountID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return Result{}, ErrAccountNotFound
		}
		return Result{}, err
	}
	to, err := s.accounts.GetAccount(ctx, owner, toAccountID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return Result{}, ErrAccountNotFound
		}
		return Result{}, err
	}

	now := time.Now().UTC()
	debit := ledger.Transaction{
		ID:            uuid.New().String(),
		Name:          fmt.Sprintf("Transfer to %s", to.Name),
		AmountInCents: -amountInCents,
		ToFrom:        to.Name,
		AccountID:     from.ID,
		CreatedAt:     now,
	}
	credit := ledger.Transaction{
		ID:            uuid.New().String(),
		Name:          fmt.Sprintf("Transfer from %s", from.Name),
		AmountInCents: amountInCents,
		ToFrom:        from.Name,
		AccountID:     to.ID,
		CreatedAt:     now,
	}

	if err := s.store.InsertTransferPair(ctx, debit, credit); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return Result{}, ErrAccountNotFound
		}
		if errors.Is(err, ledger.ErrSameAccount) {
			return Result{}, ErrSameAccount
		}
		return Result{}, err
	}

	s.logger.Info("transfer completed",
		slog.String("owner_id", owner.ID),
		slog.String("from_account_id", from.ID),
		slog.String("to_account_id", to.ID),
		slog.Int64("amount_in_cents", amountInCents))

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindTransfer,
			Destination: owner.ID,
			Body:        fmt.Sprintf("Moved %d cents from %s to %s", amountInCents, from.Name, to.Name),
		})
	}

	return Result{Debit: debit, Credit: credit, CompletedAt: now}, nil
}

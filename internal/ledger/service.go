package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coinkeep/coinkeep/internal/authz"
	"github.com/coinkeep/coinkeep/internal/identity"
)

// Service exposes owner-scoped ledger operations. The transport layer has
// already consulted the guard, but every operation re-validates ownership
// here as defense in depth. Unauthorized and nonexistent resources are both
// reported as ErrNotFound so callers cannot distinguish them.
type Service struct {
	store  Store
	guard  *authz.Guard
	logger *slog.Logger
}

// NewService builds a ledger service.
func NewService(store Store, guard *authz.Guard, logger *slog.Logger) *Service {
	return &Service{store: store, guard: guard, logger: logger}
}

// ListAccounts returns the owner's accounts in insertion order. A nil owner
// gets an empty list, not an error.
func (s *Service) ListAccounts(ctx context.Context, owner *identity.User) ([]Account, error) {
	if owner == nil {
		return []Account{}, nil
	}
	return s.store.AccountsByOwner(ctx, owner.ID)
}

// GetAccount resolves an account for the owner. It returns ErrNotFound both
// when the id does not exist and when the account belongs to someone else.
func (s *Service) GetAccount(ctx context.Context, owner *identity.User, accountID string) (Account, error) {
	account, err := s.store.Account(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if !s.guard.Authorize(owner, account) {
		return Account{}, ErrNotFound
	}
	return account, nil
}

// CreateAccount opens a new account for the owner with the given opening
// balance. Account names carry no uniqueness constraint.
func (s *Service) CreateAccount(ctx context.Context, name string, openingBalanceInCents int64, owner *identity.User) (Account, error) {
	if owner == nil {
		return Account{}, ErrNotFound
	}
	account := Account{
		ID:             uuid.New().String(),
		Name:           name,
		OwnerID:        owner.ID,
		BalanceInCents: openingBalanceInCents,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return Account{}, err
	}
	s.logger.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("owner_id", owner.ID))
	return account, nil
}

// DeleteAccount removes the account and its transactions. It is a silent
// no-op when the account does not exist or is not owned by the caller.
func (s *Service) DeleteAccount(ctx context.Context, owner *identity.User, accountID string) error {
	account, err := s.GetAccount(ctx, owner, accountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return s.store.DeleteAccount(ctx, account.ID)
}

// CreateTransaction appends a signed transaction to one of the owner's
// accounts. The amount's sign must already encode income or expense; the
// ledger does not reinterpret it.
func (s *Service) CreateTransaction(ctx context.Context, owner *identity.User, accountID, name string, amountInCents int64, toFrom string) (Transaction, error) {
	account, err := s.GetAccount(ctx, owner, accountID)
	if err != nil {
		return Transaction{}, err
	}
	txn := Transaction{
		ID:            uuid.New().String(),
		Name:          name,
		AmountInCents: amountInCents,
		ToFrom:        toFrom,
		AccountID:     account.ID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// GetTransaction resolves a transaction through its parent account's owner,
// with the same not-found shielding as GetAccount.
func (s *Service) GetTransaction(ctx context.Context, owner *identity.User, transactionID string) (Transaction, error) {
	txn, err := s.store.Transaction(ctx, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	if _, err := s.GetAccount(ctx, owner, txn.AccountID); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// ListTransactions returns an account's transactions in commit order,
// honoring ownership.
func (s *Service) ListTransactions(ctx context.Context, owner *identity.User, accountID string) ([]Transaction, error) {
	account, err := s.GetAccount(ctx, owner, accountID)
	if err != nil {
		return nil, err
	}
	return s.store.TransactionsByAccount(ctx, account.ID)
}

// DeleteTransaction removes a transaction owned (through its account) by the
// caller, reversing its balance effect.
func (s *Service) DeleteTransaction(ctx context.Context, owner *identity.User, txn Transaction) error {
	if _, err := s.GetTransaction(ctx, owner, txn.ID); err != nil {
		return err
	}
	return s.store.DeleteTransaction(ctx, txn.ID)
}

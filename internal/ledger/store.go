package ledger

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested account or transaction does not
	// exist. Services also return it for resources the caller does not own.
	ErrNotFound = errors.New("not found")

	// ErrSameAccount indicates a transfer pair referenced a single account on
	// both sides.
	ErrSameAccount = errors.New("transfer requires two distinct accounts")
)

// Store defines the contract implemented by ledger backends. Implementations
// must keep an account's cached balance consistent with its transaction
// history within every single operation: a crash or concurrent interleaving
// must never leave the two disagreeing. Mutations touching one account are
// serialized per account; operations against different accounts do not block
// one another.
type Store interface {
	CreateAccount(ctx context.Context, account Account) error
	Account(ctx context.Context, id string) (Account, error)
	AccountsByOwner(ctx context.Context, ownerID string) ([]Account, error)
	// DeleteAccount removes the account and cascades deletion of its
	// transactions.
	DeleteAccount(ctx context.Context, id string) error

	// InsertTransaction appends the transaction and adjusts the account
	// balance in the same atomic operation.
	InsertTransaction(ctx context.Context, txn Transaction) error
	Transaction(ctx context.Context, id string) (Transaction, error)
	// TransactionsByAccount returns the account's transactions in the order
	// they were committed.
	TransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error)
	// DeleteTransaction removes the transaction and reverses its effect on
	// the account balance in the same atomic operation.
	DeleteTransaction(ctx context.Context, id string) error

	// InsertTransferPair writes a debit and a credit as a single unit,
	// adjusting both account balances. If either side cannot be completed
	// neither is persisted. Both accounts' exclusivity is acquired in
	// ascending account-ID order.
	InsertTransferPair(ctx context.Context, debit, credit Transaction) error

	// PurgeAll removes every account and transaction. Test/reset harness use
	// only.
	PurgeAll(ctx context.Context) error
}

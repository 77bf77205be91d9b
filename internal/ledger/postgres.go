package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists accounts and transactions in PostgreSQL. Balance
// consistency is enforced with row locks: every posting locks the account row
// FOR UPDATE, inserts the transaction and writes the new balance inside one
// SQL transaction.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	accountColumns     = `id, name, owner_id, balance_in_cents, created_at`
	transactionColumns = `id, name, amount_in_cents, to_from, account_id, created_at`
)

// CreateAccount inserts a new account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, account Account) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(account.OwnerID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO accounts (id, name, owner_id, balance_in_cents, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		accountID, account.Name, ownerID, account.BalanceInCents, account.CreatedAt.UTC())
	return err
}

// Account fetches an account by identifier.
func (s *PostgresStore) Account(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return account, err
}

// AccountsByOwner returns the owner's accounts in insertion order.
func (s *PostgresStore) AccountsByOwner(ctx context.Context, ownerID string) ([]Account, error) {
	owner, err := uuid.Parse(ownerID)
	if err != nil {
		return []Account{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner_id = $1 ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes the account and all its transactions as one unit.
func (s *PostgresStore) DeleteAccount(ctx context.Context, id string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE account_id = $1`, accountID); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}

	return tx.Commit(ctx)
}

// InsertTransaction appends the transaction and moves the cached balance
// inside a single SQL transaction.
func (s *PostgresStore) InsertTransaction(ctx context.Context, txn Transaction) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountID, err := lockAccount(ctx, tx, txn.AccountID)
	if err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, txn, accountID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Transaction fetches a transaction by identifier.
func (s *PostgresStore) Transaction(ctx context.Context, id string) (Transaction, error) {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return Transaction{}, ErrNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, txnID)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return txn, err
}

// TransactionsByAccount returns the account's transactions in commit order.
func (s *PostgresStore) TransactionsByAccount(ctx context.Context, accountID string) ([]Transaction, error) {
	account, err := uuid.Parse(accountID)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE account_id = $1 ORDER BY created_at, id`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// DeleteTransaction removes the transaction and reverses its balance effect
// inside a single SQL transaction.
func (s *PostgresStore) DeleteTransaction(ctx context.Context, id string) error {
	txnID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		accountID uuid.UUID
		amount    int64
	)
	if err := tx.QueryRow(ctx, `SELECT account_id, amount_in_cents FROM transactions WHERE id = $1`, txnID).Scan(&accountID, &amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if _, err := lockAccount(ctx, tx, accountID.String()); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, txnID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance_in_cents = balance_in_cents - $1 WHERE id = $2`, amount, accountID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// InsertTransferPair writes debit and credit as one SQL transaction, locking
// both account rows in ascending ID order to prevent deadlock between
// opposite-direction transfers.
func (s *PostgresStore) InsertTransferPair(ctx context.Context, debit, credit Transaction) error {
	if debit.AccountID == credit.AccountID {
		return ErrSameAccount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	first, second := debit.AccountID, credit.AccountID
	if second < first {
		first, second = second, first
	}
	firstID, err := lockAccount(ctx, tx, first)
	if err != nil {
		return err
	}
	secondID, err := lockAccount(ctx, tx, second)
	if err != nil {
		return err
	}

	debitAccountID, creditAccountID := firstID, secondID
	if debit.AccountID != first {
		debitAccountID, creditAccountID = secondID, firstID
	}

	if err := insertTransaction(ctx, tx, debit, debitAccountID); err != nil {
		return err
	}
	if err := insertTransaction(ctx, tx, credit, creditAccountID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// PurgeAll removes every transaction and account. Test/reset harness use only.
func (s *PostgresStore) PurgeAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM transactions`); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM accounts`); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func lockAccount(ctx context.Context, tx pgx.Tx, id string) (uuid.UUID, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	var locked uuid.UUID
	if err := tx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, err
	}
	return locked, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, txn Transaction, accountID uuid.UUID) error {
	txnID, err := uuid.Parse(txn.ID)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, name, amount_in_cents, to_from, account_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		txnID, txn.Name, txn.AmountInCents, txn.ToFrom, accountID, txn.CreatedAt.UTC()); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE accounts SET balance_in_cents = balance_in_cents + $1 WHERE id = $2`, txn.AmountInCents, accountID)
	return err
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id        uuid.UUID
		ownerID   uuid.UUID
		createdAt time.Time
		account   Account
	)
	if err := row.Scan(&id, &account.Name, &ownerID, &account.BalanceInCents, &createdAt); err != nil {
		return Account{}, err
	}
	account.ID = id.String()
	account.OwnerID = ownerID.String()
	account.CreatedAt = createdAt.UTC()
	return account, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		id        uuid.UUID
		accountID uuid.UUID
		createdAt time.Time
		txn       Transaction
	)
	if err := row.Scan(&id, &txn.Name, &txn.AmountInCents, &txn.ToFrom, &accountID, &createdAt); err != nil {
		return Transaction{}, err
	}
	txn.ID = id.String()
	txn.AccountID = accountID.String()
	txn.CreatedAt = createdAt.UTC()
	return txn, nil
}

package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func newAccount(owner, name string, opening int64) Account {
	return Account{ID: uuid.NewString(), Name: name, OwnerID: owner, BalanceInCents: opening}
}

func newTxn(accountID, name string, amount int64) Transaction {
	return Transaction{ID: uuid.NewString(), Name: name, AmountInCents: amount, AccountID: accountID}
}

func TestInMemoryStore_InsertTransactionMovesBalance(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	account := newAccount(uuid.NewString(), "Checking", 10_000)
	if err := s.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	if err := s.InsertTransaction(ctx, newTxn(account.ID, "Paycheck", 2_500)); err != nil {
		t.Fatalf("insert income: %v", err)
	}
	if err := s.InsertTransaction(ctx, newTxn(account.ID, "Groceries", -1_500)); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	got, err := s.Account(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.BalanceInCents != 11_000 {
		t.Fatalf("expected balance 11000, got %d", got.BalanceInCents)
	}

	txns, err := s.TransactionsByAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}
	if txns[0].Name != "Paycheck" || txns[1].Name != "Groceries" {
		t.Fatalf("transactions out of commit order: %+v", txns)
	}
}

func TestInMemoryStore_DeleteTransactionReversesBalance(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	account := newAccount(uuid.NewString(), "Checking", 0)
	if err := s.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	txn := newTxn(account.ID, "Rent", -90_000)
	if err := s.InsertTransaction(ctx, txn); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.DeleteTransaction(ctx, txn.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.Account(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if got.BalanceInCents != 0 {
		t.Fatalf("expected balance restored to 0, got %d", got.BalanceInCents)
	}
	if _, err := s.Transaction(ctx, txn.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInMemoryStore_AccountsByOwnerInsertionOrder(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	owner := uuid.NewString()

	savings := newAccount(owner, "Savings", 0)
	checking := newAccount(owner, "Checking", 0)
	stranger := newAccount(uuid.NewString(), "Not Yours", 0)
	for _, a := range []Account{savings, checking, stranger} {
		if err := s.CreateAccount(ctx, a); err != nil {
			t.Fatalf("create account: %v", err)
		}
	}

	accounts, err := s.AccountsByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Name != "Savings" || accounts[1].Name != "Checking" {
		t.Fatalf("accounts out of insertion order: %+v", accounts)
	}

	if accounts, err := s.AccountsByOwner(ctx, uuid.NewString()); err != nil || len(accounts) != 0 {
		t.Fatalf("expected empty list for unknown owner, got %v %v", accounts, err)
	}
}

func TestInMemoryStore_TransferPairMaintainsTotal(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	owner := uuid.NewString()

	from := newAccount(owner, "Checking", 10_000)
	to := newAccount(owner, "Savings", 500)
	if err := s.CreateAccount(ctx, from); err != nil {
		t.Fatalf("create from: %v", err)
	}
	if err := s.CreateAccount(ctx, to); err != nil {
		t.Fatalf("create to: %v", err)
	}

	debit := newTxn(from.ID, "Transfer to Savings", -1_500)
	credit := newTxn(to.ID, "Transfer from Checking", 1_500)
	if err := s.InsertTransferPair(ctx, debit, credit); err != nil {
		t.Fatalf("transfer pair: %v", err)
	}

	gotFrom, _ := s.Account(ctx, from.ID)
	gotTo, _ := s.Account(ctx, to.ID)
	if gotFrom.BalanceInCents != 8_500 {
		t.Fatalf("expected from balance 8500, got %d", gotFrom.BalanceInCents)
	}
	if gotTo.BalanceInCents != 2_000 {
		t.Fatalf("expected to balance 2000, got %d", gotTo.BalanceInCents)
	}
	if total := gotFrom.BalanceInCents + gotTo.BalanceInCents; total != 10_500 {
		t.Fatalf("money created or destroyed, total=%d", total)
	}
}

func TestInMemoryStore_TransferPairRejectsSameAccount(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	account := newAccount(uuid.NewString(), "Checking", 1_000)
	if err := s.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}

	debit := newTxn(account.ID, "loop", -100)
	credit := newTxn(account.ID, "loop", 100)
	if err := s.InsertTransferPair(ctx, debit, credit); err != ErrSameAccount {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}
}

func TestInMemoryStore_TransferPairMissingAccount(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	from := newAccount(uuid.NewString(), "Checking", 1_000)
	if err := s.CreateAccount(ctx, from); err != nil {
		t.Fatalf("create account: %v", err)
	}

	debit := newTxn(from.ID, "Transfer", -100)
	credit := newTxn(uuid.NewString(), "Transfer", 100)
	if err := s.InsertTransferPair(ctx, debit, credit); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	got, _ := s.Account(ctx, from.ID)
	if got.BalanceInCents != 1_000 {
		t.Fatalf("failed pair must not touch the source balance, got %d", got.BalanceInCents)
	}
	if txns, _ := s.TransactionsByAccount(ctx, from.ID); len(txns) != 0 {
		t.Fatalf("failed pair must not persist a debit, got %d transactions", len(txns))
	}
}

func TestInMemoryStore_ConcurrentOpposingTransfers(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	owner := uuid.NewString()

	a := newAccount(owner, "A", 100_000)
	b := newAccount(owner, "B", 100_000)
	if err := s.CreateAccount(ctx, a); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := s.CreateAccount(ctx, b); err != nil {
		t.Fatalf("create b: %v", err)
	}

	// Opposite-direction transfers exercise the fixed lock ordering.
	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fromID, toID := a.ID, b.ID
			if i%2 == 1 {
				fromID, toID = b.ID, a.ID
			}
			debit := newTxn(fromID, fmt.Sprintf("out-%d", i), -500)
			credit := newTxn(toID, fmt.Sprintf("in-%d", i), 500)
			if err := s.InsertTransferPair(ctx, debit, credit); err != nil {
				t.Errorf("transfer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	gotA, _ := s.Account(ctx, a.ID)
	gotB, _ := s.Account(ctx, b.ID)
	if total := gotA.BalanceInCents + gotB.BalanceInCents; total != 200_000 {
		t.Fatalf("ledger not balanced after concurrency, total=%d", total)
	}
}

func TestInMemoryStore_DeleteAccountCascades(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	account := newAccount(uuid.NewString(), "Checking", 0)
	if err := s.CreateAccount(ctx, account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	txn := newTxn(account.ID, "Coffee", -450)
	if err := s.InsertTransaction(ctx, txn); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.DeleteAccount(ctx, account.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	if _, err := s.Account(ctx, account.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for deleted account, got %v", err)
	}
	if _, err := s.Transaction(ctx, txn.ID); err != ErrNotFound {
		t.Fatalf("expected transactions to be cascade-deleted, got %v", err)
	}
}

func TestInMemoryStore_PurgeAll(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	owner := uuid.NewString()

	if err := s.CreateAccount(ctx, newAccount(owner, "Checking", 0)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.PurgeAll(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if accounts, _ := s.AccountsByOwner(ctx, owner); len(accounts) != 0 {
		t.Fatalf("expected no accounts after purge, got %d", len(accounts))
	}
}

package ledger

import (
	"context"
	"sync"
)

type accountState struct {
	mu      sync.Mutex
	account Account
	txns    []Transaction
}

// inMemoryStore serializes mutations per account: the map-level RWMutex only
// guards the account index, while each account carries its own mutex guarding
// balance and transaction history. Mutations hold the map read-lock for their
// duration, so account deletion (which takes the write lock) cannot interleave
// with an in-flight posting. Pair operations lock both accounts in ascending
// ID order.
type inMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*accountState
	order    []string
}

// NewInMemoryStore creates a concurrency-safe in-memory ledger store. It
// backs unit tests and dev-mode runs without a database.
func NewInMemoryStore() Store {
	return &inMemoryStore{accounts: make(map[string]*accountState)}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, account Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = &accountState{account: account}
	s.order = append(s.order, account.ID)
	return nil
}

func (s *inMemoryStore) Account(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.account, nil
}

func (s *inMemoryStore) AccountsByOwner(_ context.Context, ownerID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := []Account{}
	for _, id := range s.order {
		st, ok := s.accounts[id]
		if !ok {
			continue
		}
		st.mu.Lock()
		if st.account.OwnerID == ownerID {
			accounts = append(accounts, st.account)
		}
		st.mu.Unlock()
	}
	return accounts, nil
}

func (s *inMemoryStore) DeleteAccount(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, id)
	for i, accountID := range s.order {
		if accountID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *inMemoryStore) InsertTransaction(_ context.Context, txn Transaction) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[txn.AccountID]
	if !ok {
		return ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.txns = append(st.txns, txn)
	st.account.BalanceInCents += txn.AmountInCents
	return nil
}

func (s *inMemoryStore) Transaction(_ context.Context, id string) (Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.accounts {
		st.mu.Lock()
		for _, txn := range st.txns {
			if txn.ID == id {
				st.mu.Unlock()
				return txn, nil
			}
		}
		st.mu.Unlock()
	}
	return Transaction{}, ErrNotFound
}

func (s *inMemoryStore) TransactionsByAccount(_ context.Context, accountID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	txns := make([]Transaction, len(st.txns))
	copy(txns, st.txns)
	return txns, nil
}

func (s *inMemoryStore) DeleteTransaction(_ context.Context, id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.accounts {
		st.mu.Lock()
		for i, txn := range st.txns {
			if txn.ID == id {
				st.txns = append(st.txns[:i], st.txns[i+1:]...)
				st.account.BalanceInCents -= txn.AmountInCents
				st.mu.Unlock()
				return nil
			}
		}
		st.mu.Unlock()
	}
	return ErrNotFound
}

func (s *inMemoryStore) InsertTransferPair(_ context.Context, debit, credit Transaction) error {
	if debit.AccountID == credit.AccountID {
		return ErrSameAccount
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	from, ok := s.accounts[debit.AccountID]
	if !ok {
		return ErrNotFound
	}
	to, ok := s.accounts[credit.AccountID]
	if !ok {
		return ErrNotFound
	}

	first, second := from, to
	if credit.AccountID < debit.AccountID {
		first, second = to, from
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	from.txns = append(from.txns, debit)
	from.account.BalanceInCents += debit.AmountInCents
	to.txns = append(to.txns, credit)
	to.account.BalanceInCents += credit.AmountInCents
	return nil
}

func (s *inMemoryStore) PurgeAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]*accountState)
	s.order = nil
	return nil
}

package ledger

import "time"

// Account is a named money container owned by exactly one identity. The
// owner reference is immutable after creation. BalanceInCents is a cached
// write-through value: every transaction insert or delete adjusts it within
// the same atomic store operation, so it always equals the opening balance
// plus the signed sum of the account's transactions.
type Account struct {
	ID             string
	Name           string
	OwnerID        string
	BalanceInCents int64
	CreatedAt      time.Time
}

// ResourceID implements authz.Resource.
func (a Account) ResourceID() string { return a.ID }

// ResourceOwnerID implements authz.Resource.
func (a Account) ResourceOwnerID() string { return a.OwnerID }

// ResourceKind implements authz.Resource.
func (a Account) ResourceKind() string { return "account" }

// Transaction is a signed, immutable ledger entry attached to one account.
// Positive amounts are income, negative amounts are expenses. Transfers are
// modeled as exactly two transactions of the same magnitude and opposite
// sign.
type Transaction struct {
	ID            string
	Name          string
	AmountInCents int64
	ToFrom        string
	AccountID     string
	CreatedAt     time.Time
}

package identity

import "time"

// User represents a registered identity that can own ledger accounts.
// HashedPassword only ever holds a bcrypt hash; the raw password is
// discarded immediately after hashing.
type User struct {
	ID             string
	FullName       string
	Email          string
	Username       string
	HashedPassword []byte
	TokenVersion   int
	CreatedAt      time.Time
}

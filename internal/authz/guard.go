package authz

import (
	"log/slog"

	"github.com/coinkeep/coinkeep/internal/identity"
)

// Resource is anything gated by ownership. Ownership is carried as the
// owning identity's immutable ID, never its username, since usernames can
// be rotated.
type Resource interface {
	ResourceID() string
	ResourceOwnerID() string
	ResourceKind() string
}

// Guard decides allow/deny by ownership. It must be consulted before every
// ledger mutation and before every disclosure of account or transaction
// detail. Denials are logged with full detail for the audit trail; callers
// surface them as "not found" so unauthorized and nonexistent resources are
// indistinguishable to the caller.
type Guard struct {
	logger *slog.Logger
}

// NewGuard builds a guard that writes denial events to the given logger.
func NewGuard(logger *slog.Logger) *Guard {
	return &Guard{logger: logger}
}

// Authorize reports whether the caller owns the resource. A nil caller is
// never authorized.
func (g *Guard) Authorize(caller *identity.User, res Resource) bool {
	if caller == nil || res == nil {
		return false
	}
	if caller.ID == res.ResourceOwnerID() {
		return true
	}
	g.logger.Warn("authorization denied",
		slog.String("caller_id", caller.ID),
		slog.String("caller_username", caller.Username),
		slog.String("resource_kind", res.ResourceKind()),
		slog.String("resource_id", res.ResourceID()),
		slog.String("owner_id", res.ResourceOwnerID()))
	return false
}

package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinkeep/coinkeep/internal/identity"
	"github.com/coinkeep/coinkeep/internal/logging"
)

type fakeResource struct {
	id    string
	owner string
}

func (r fakeResource) ResourceID() string      { return r.id }
func (r fakeResource) ResourceOwnerID() string { return r.owner }
func (r fakeResource) ResourceKind() string    { return "fake" }

func TestAuthorize(t *testing.T) {
	guard := NewGuard(logging.Discard())

	owner := &identity.User{ID: "owner-id", Username: "owner"}
	other := &identity.User{ID: "other-id", Username: "other"}
	res := fakeResource{id: "res-1", owner: "owner-id"}

	assert.True(t, guard.Authorize(owner, res))
	assert.False(t, guard.Authorize(other, res))
	assert.False(t, guard.Authorize(nil, res), "absent caller is never authorized")
	assert.False(t, guard.Authorize(owner, nil))
}

func TestAuthorizeComparesIDNotUsername(t *testing.T) {
	guard := NewGuard(logging.Discard())

	// Same username but different identity: usernames rotate, so ownership
	// must be decided on the immutable ID.
	impostor := &identity.User{ID: "impostor-id", Username: "owner"}
	res := fakeResource{id: "res-1", owner: "owner-id"}

	assert.False(t, guard.Authorize(impostor, res))
}

package identity

import (
	"context"
	"time"

	id "custodia/pkg/domain"
)

// Store is the system of record for identities. Implementations must
// serialize concurrent CreateIfUnregistered/Touch calls per address.
type Store interface {
	// FindByAddress returns the identity at addr or sentinel.ErrNotFound.
	FindByAddress(ctx context.Context, addr id.Address) (*Identity, error)
	// CreateIfUnregistered persists ident unless a registered identity already
	// occupies the address, in which case it returns sentinel.ErrConflict.
	// A provisional (unregistered) identity at the address is replaced.
	CreateIfUnregistered(ctx context.Context, ident *Identity) error
	// Touch updates LastSeenAt. Touching an unknown address is a no-op.
	Touch(ctx context.Context, addr id.Address, at time.Time) error
}

package identity

import (
	"context"
	"sync"
	"time"

	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in a map guarded by one mutex. Register and
// touch traffic is light enough that per-address striping is not worth it here;
// the single lock still gives the per-address serialization the contract needs.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[id.Address]*Identity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{identities: make(map[id.Address]*Identity)}
}

func (s *InMemoryStore) FindByAddress(_ context.Context, addr id.Address) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ident, ok := s.identities[addr]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *ident
	return &copied, nil
}

func (s *InMemoryStore) CreateIfUnregistered(_ context.Context, ident *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.identities[ident.Address]; ok && existing.Registered {
		return sentinel.ErrConflict
	}
	copied := *ident
	s.identities[ident.Address] = &copied
	return nil
}

func (s *InMemoryStore) Touch(_ context.Context, addr id.Address, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ident, ok := s.identities[addr]; ok {
		ident.LastSeenAt = at
	}
	return nil
}

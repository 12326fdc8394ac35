package identity

import (
	"strings"

	id "custodia/pkg/domain"
)

// RoleAssigner decides the role granted to an address at registration time.
// The mapping is static configuration, never derived from behavior.
type RoleAssigner interface {
	RoleFor(addr id.Address) Role
}

// AllowListAssigner grants Admin or Officer to allow-listed addresses and
// Public to everyone else.
type AllowListAssigner struct {
	admins   map[id.Address]struct{}
	officers map[id.Address]struct{}
}

// NewAllowListAssigner builds an assigner from raw address strings; entries
// are lowercased so membership checks match canonical addresses.
func NewAllowListAssigner(admins, officers []string) *AllowListAssigner {
	a := &AllowListAssigner{
		admins:   make(map[id.Address]struct{}, len(admins)),
		officers: make(map[id.Address]struct{}, len(officers)),
	}
	for _, s := range admins {
		a.admins[id.Address(strings.ToLower(s))] = struct{}{}
	}
	for _, s := range officers {
		a.officers[id.Address(strings.ToLower(s))] = struct{}{}
	}
	return a
}

func (a *AllowListAssigner) RoleFor(addr id.Address) Role {
	if _, ok := a.admins[addr]; ok {
		return RoleAdmin
	}
	if _, ok := a.officers[addr]; ok {
		return RoleOfficer
	}
	return RolePublic
}

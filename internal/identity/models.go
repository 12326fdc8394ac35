package identity

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Role is the access tier assigned to an identity at registration.
// Immutable afterwards except by an out-of-band administrative override.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOfficer Role = "officer"
	RolePublic  Role = "public"
)

var validRoles = map[Role]bool{
	RoleAdmin:   true,
	RoleOfficer: true,
	RolePublic:  true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(s))
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown role")
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}

// CanSubmit reports whether the role may create evidence records.
func (r Role) CanSubmit() bool {
	return r == RoleAdmin || r == RoleOfficer
}

// Identity is a registered or provisional principal keyed by account address.
// A provisional identity (Registered == false) exists only to support the
// needs-registration handshake and carries no profile.
type Identity struct {
	Address      id.Address
	Role         Role
	Registered   bool
	Name         string
	Department   string
	BadgeNumber  string
	Email        string
	RegisteredAt time.Time
	LastSeenAt   time.Time
}

// Profile carries the registration attributes supplied by the caller.
// Sparse profiles are filled with role-derived defaults, matching the
// behavior officers expect from the intake desk.
type Profile struct {
	Name        string
	Department  string
	BadgeNumber string
	Email       string
}

// withDefaults fills missing profile fields based on role and address.
func (p Profile) withDefaults(role Role, addr id.Address) Profile {
	out := p
	if out.Name == "" {
		title := strings.ToUpper(role.String()[:1]) + role.String()[1:]
		out.Name = fmt.Sprintf("%s %s", title, addr.String()[:6])
	}
	if out.Department == "" {
		if role == RoleAdmin {
			out.Department = "Central Bureau"
		} else {
			out.Department = "Police Department"
		}
	}
	if out.BadgeNumber == "" && role != RolePublic {
		prefix := "PD"
		if role == RoleAdmin {
			prefix = "CBI"
		}
		out.BadgeNumber = fmt.Sprintf("%s%04d", prefix, rand.Intn(10000))
	}
	return out
}

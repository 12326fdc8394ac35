package handler

import (
	"time"

	"custodia/internal/identity"
	"custodia/internal/session"
)

// ConnectResponse is the HTTP response for POST /auth/connect.
//
// NeedsRegistration marks the handshake outcome for unknown addresses; in
// that case the other fields are empty and the status is 401.
type ConnectResponse struct {
	NeedsRegistration bool              `json:"needs_registration,omitempty"`
	Token             string            `json:"token,omitempty"`
	Session           *SessionResponse  `json:"session,omitempty"`
	Identity          *IdentityResponse `json:"identity,omitempty"`
}

// MeResponse is the HTTP response for GET /auth/me.
type MeResponse struct {
	Session  *SessionResponse  `json:"session"`
	Identity *IdentityResponse `json:"identity"`
}

// SessionResponse is the session portion of handshake responses.
type SessionResponse struct {
	ID           string     `json:"id"`
	Address      string     `json:"address"`
	Status       string     `json:"status"`
	DeviceName   string     `json:"device_name,omitempty"`
	ClientIP     string     `json:"client_ip,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	TerminatedAt *time.Time `json:"terminated_at,omitempty"`
}

// IdentityResponse is the directory portion of handshake responses.
type IdentityResponse struct {
	Address      string    `json:"address"`
	Role         string    `json:"role"`
	Name         string    `json:"name"`
	Department   string    `json:"department"`
	BadgeNumber  string    `json:"badge_number"`
	Email        string    `json:"email,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

// FromSession converts a domain session to its HTTP form.
func FromSession(sess *session.Session) *SessionResponse {
	if sess == nil {
		return nil
	}
	return &SessionResponse{
		ID:           sess.ID.String(),
		Address:      sess.Address.String(),
		Status:       string(sess.Status),
		DeviceName:   sess.DeviceName,
		ClientIP:     sess.ClientIP,
		CreatedAt:    sess.CreatedAt,
		ExpiresAt:    sess.ExpiresAt,
		TerminatedAt: sess.TerminatedAt,
	}
}

// FromIdentity converts a directory identity to its HTTP form.
func FromIdentity(ident *identity.Identity) *IdentityResponse {
	if ident == nil {
		return nil
	}
	return &IdentityResponse{
		Address:      ident.Address.String(),
		Role:         ident.Role.String(),
		Name:         ident.Name,
		Department:   ident.Department,
		BadgeNumber:  ident.BadgeNumber,
		Email:        ident.Email,
		RegisteredAt: ident.RegisteredAt,
		LastSeenAt:   ident.LastSeenAt,
	}
}

package session

import (
	"time"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Status tracks the session lifecycle. A caller without a session is
// anonymous; Establish moves them to authenticated and Terminate is the only
// exit. Terminated sessions are kept for the custody log.
type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusAuthenticated Status = "authenticated"
	StatusTerminated    Status = "terminated"
)

// Session binds an authenticated address to a bearer token lifetime.
type Session struct {
	ID           id.SessionID `json:"id"`
	Address      id.Address   `json:"address"`
	Status       Status       `json:"status"`
	DeviceName   string       `json:"device_name,omitempty"`
	ClientIP     string       `json:"client_ip,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	ExpiresAt    time.Time    `json:"expires_at"`
	TerminatedAt *time.Time   `json:"terminated_at,omitempty"`
}

// CanUse reports whether the session still authenticates requests at now.
func (s *Session) CanUse(now time.Time) error {
	if s.Status == StatusTerminated {
		return dErrors.New(dErrors.CodeInvariantViolation, "session is terminated")
	}
	if !now.Before(s.ExpiresAt) {
		return dErrors.New(dErrors.CodeInvariantViolation, "session has expired")
	}
	return nil
}

// CanTerminate reports whether Terminate would change state.
func (s *Session) CanTerminate() error {
	if s.Status == StatusTerminated {
		return dErrors.New(dErrors.CodeInvariantViolation, "session is already terminated")
	}
	return nil
}

// ApplyTermination moves the session to its terminal state.
func (s *Session) ApplyTermination(now time.Time) {
	s.Status = StatusTerminated
	s.TerminatedAt = &now
}

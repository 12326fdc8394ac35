package session

import (
	"context"

	id "custodia/pkg/domain"
)

// Store persists sessions. Execute runs validate and mutate while holding
// the record's lock (mutex in memory, WATCH transaction in Redis) so
// concurrent terminations of the same session serialize.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, session *Session) error
	// FindByID returns the session or sentinel.ErrNotFound.
	FindByID(ctx context.Context, sessionID id.SessionID) (*Session, error)
	// Execute atomically validates and mutates the session at sessionID.
	// A validate error aborts the mutation and is returned unchanged.
	// Returns the session as of after the mutation.
	Execute(ctx context.Context, sessionID id.SessionID,
		validate func(*Session) error, mutate func(*Session)) (*Session, error)
}

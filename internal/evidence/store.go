package evidence

import (
	"context"

	id "custodia/pkg/domain"
)

// Store is the system of record for evidence. Execute runs validate and
// mutate while holding the record's own lock so concurrent reviews of one
// record serialize without blocking unrelated records.
type Store interface {
	// Create publishes a fully constructed record. The record becomes
	// visible to readers atomically; sentinel.ErrConflict on a duplicate id.
	Create(ctx context.Context, record *Evidence) error
	// FindByID returns the record or sentinel.ErrNotFound.
	FindByID(ctx context.Context, evidenceID id.EvidenceID) (*Evidence, error)
	// List returns all records in insertion order.
	List(ctx context.Context) ([]*Evidence, error)
	// Execute atomically validates and mutates the record at evidenceID.
	// A validate error aborts the mutation and is returned unchanged.
	Execute(ctx context.Context, evidenceID id.EvidenceID,
		validate func(*Evidence) error, mutate func(*Evidence)) (*Evidence, error)
	// Delete hard-removes the record; sentinel.ErrNotFound when absent.
	Delete(ctx context.Context, evidenceID id.EvidenceID) error
}

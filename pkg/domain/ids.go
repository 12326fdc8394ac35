package domain

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	dErrors "custodia/pkg/domain-errors"
)

// SessionID identifies one authenticated session.
type SessionID uuid.UUID

// NewSessionID returns a random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID constructs a SessionID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, not a UUID, or the
// nil UUID; no other errors are expected.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session ID cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session ID must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session ID cannot be the nil UUID")
	}
	return SessionID(parsed), nil
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// MarshalText renders the canonical UUID form for JSON and storage codecs.
func (id SessionID) MarshalText() ([]byte, error) {
	return []byte(uuid.UUID(id).String()), nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// EvidenceID identifies one evidence record. ULIDs keep store iteration in
// insertion order, which list queries rely on.
type EvidenceID string

var (
	evidenceEntropyMu sync.Mutex
	evidenceEntropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewEvidenceID returns a lexicographically sortable evidence identifier.
func NewEvidenceID() EvidenceID {
	evidenceEntropyMu.Lock()
	defer evidenceEntropyMu.Unlock()
	return EvidenceID(ulid.MustNew(ulid.Timestamp(time.Now()), evidenceEntropy).String())
}

// ParseEvidenceID constructs an EvidenceID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not a canonical
// ULID; no other errors are expected.
func ParseEvidenceID(s string) (EvidenceID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "evidence ID cannot be empty")
	}
	if _, err := ulid.ParseStrict(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "evidence ID must be a valid ULID")
	}
	return EvidenceID(s), nil
}

func (id EvidenceID) String() string {
	return string(id)
}

func (id EvidenceID) IsNil() bool {
	return id == ""
}

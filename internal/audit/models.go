package audit

import (
	"context"
	"time"

	id "custodia/pkg/domain"
)

// Event is emitted from domain logic to capture one custody-relevant action.
// Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time  `json:"timestamp"`
	Actor      id.Address `json:"actor"`
	Action     string     `json:"action"`
	EvidenceID string     `json:"evidence_id,omitempty"`
	CaseID     string     `json:"case_id,omitempty"`
	Decision   string     `json:"decision,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	RequestID  string     `json:"request_id,omitempty"`
	Device     string     `json:"device,omitempty"`
	ClientIP   string     `json:"client_ip,omitempty"`
}

// CustodyEvent names for the actions the registry records.
type CustodyEvent string

const (
	// Identity and session events
	EventIdentityRegistered CustodyEvent = "identity_registered"
	EventSessionEstablished CustodyEvent = "session_established"
	EventSessionTerminated  CustodyEvent = "session_terminated"

	// Evidence lifecycle events
	EventEvidenceSubmitted CustodyEvent = "evidence_submitted"
	EventEvidenceAnchored  CustodyEvent = "evidence_anchored"
	EventEvidenceApproved  CustodyEvent = "evidence_approved"
	EventEvidenceRejected  CustodyEvent = "evidence_rejected"
	EventEvidenceAssigned  CustodyEvent = "evidence_assigned"
	EventEvidenceEdited    CustodyEvent = "evidence_edited"
	EventEvidenceDeleted   CustodyEvent = "evidence_deleted"
)

// Store is the append-only persistence contract for custody events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByActor(ctx context.Context, actor id.Address) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

package evidence

import (
	"errors"
	"strings"
	"time"

	"custodia/internal/upstream"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	platformstrings "custodia/pkg/platform/strings"
)

// ErrInvalidTransition reports a status change the state machine forbids.
// Services translate it to a conflict at the API boundary.
var ErrInvalidTransition = errors.New("invalid lifecycle transition")

// Status is the review state of an evidence record. Pending is the only
// entry point; Approved and Rejected are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseDecision constructs a review decision from external input. Only
// terminal states are accepted; Pending is never a review target.
func ParseDecision(s string) (Status, error) {
	switch Status(strings.ToLower(s)) {
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "decision must be approved or rejected")
	}
}

// Priority is the triage level assigned at submission.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	switch p := Priority(strings.ToLower(s)); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "priority must be low, medium or high")
	}
}

// Action enumerates the mutations the policy engine gates.
type Action string

const (
	ActionSubmit Action = "submit"
	ActionReview Action = "review"
	ActionAssign Action = "assign"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// Metadata describes the submitted artifact. The registry validates it but
// never interprets it.
type Metadata struct {
	Description     string    `json:"description"`
	FileName        string    `json:"file_name"`
	FileSize        int64     `json:"file_size"`
	FileType        string    `json:"file_type"`
	CapturedAt      time.Time `json:"captured_at"`
	Location        string    `json:"location,omitempty"`
	DeviceInfo      string    `json:"device_info,omitempty"`
	AdditionalNotes string    `json:"additional_notes,omitempty"`
}

const minDescriptionLength = 10

// Validate checks the submission metadata and reports every failing field
// by name in a single validation error.
func (m Metadata) Validate() error {
	var fields []string
	if len(strings.TrimSpace(m.Description)) < minDescriptionLength {
		fields = append(fields, "description")
	}
	if strings.TrimSpace(m.FileName) == "" {
		fields = append(fields, "file_name")
	}
	if m.FileSize <= 0 {
		fields = append(fields, "file_size")
	}
	if strings.TrimSpace(m.FileType) == "" {
		fields = append(fields, "file_type")
	}
	if len(fields) > 0 {
		return dErrors.Newf(dErrors.CodeValidation,
			"invalid metadata fields: %s", strings.Join(fields, ", "))
	}
	return nil
}

// Evidence is the aggregate root for one submitted artifact.
//
// Invariants:
//   - SubmittedBy, ContentHash, ContentID, AnchorID and CreatedAt are
//     write-once; AnchorID is present iff creation succeeded
//   - Status moves only Pending -> Approved or Pending -> Rejected
//   - ReviewedBy/ReviewedAt are set exactly on the terminal transition
//   - Enrichment is advisory and never feeds access or lifecycle decisions
type Evidence struct {
	ID          id.EvidenceID        `json:"id"`
	CaseID      string               `json:"case_id"`
	SubmittedBy id.Address           `json:"submitted_by"`
	ContentHash string               `json:"content_hash,omitempty"`
	ContentID   string               `json:"content_id,omitempty"`
	AnchorID    string               `json:"anchor_id,omitempty"`
	Status      Status               `json:"status"`
	Priority    Priority             `json:"priority"`
	Tags        []string             `json:"tags,omitempty"`
	AssignedTo  id.Address           `json:"assigned_to,omitempty"`
	ReviewedBy  id.Address           `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time           `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Metadata    Metadata             `json:"metadata"`
	Enrichment  *upstream.Enrichment `json:"enrichment,omitempty"`
}

// NewEvidence constructs a Pending record after all collaborator calls
// succeeded. Callers validate metadata before reaching for collaborators.
func NewEvidence(evidenceID id.EvidenceID, caseID string, submittedBy id.Address,
	contentHash, contentID, anchorID string, priority Priority, tags []string,
	metadata Metadata, now time.Time) (*Evidence, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "case id cannot be empty")
	}
	if contentHash == "" || contentID == "" || anchorID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation,
			"evidence cannot be created without content and anchor handles")
	}
	if priority == "" {
		priority = PriorityMedium
	}
	return &Evidence{
		ID:          evidenceID,
		CaseID:      caseID,
		SubmittedBy: submittedBy,
		ContentHash: contentHash,
		ContentID:   contentID,
		AnchorID:    anchorID,
		Status:      StatusPending,
		Priority:    priority,
		Tags:        platformstrings.DedupeAndTrimLower(tags),
		CreatedAt:   now,
		Metadata:    metadata,
	}, nil
}

// IsTerminal reports whether the record reached a final review state.
func (e *Evidence) IsTerminal() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected
}

// CanReview checks the Pending -> decision transition.
// Use with ApplyReview in Execute callbacks.
func (e *Evidence) CanReview(decision Status) error {
	if decision != StatusApproved && decision != StatusRejected {
		return ErrInvalidTransition
	}
	if e.Status != StatusPending {
		return ErrInvalidTransition
	}
	return nil
}

// ApplyReview moves the record to its terminal state and stamps the
// reviewer. Call CanReview first.
func (e *Evidence) ApplyReview(decision Status, reviewer id.Address, now time.Time) {
	e.Status = decision
	e.ReviewedBy = reviewer
	e.ReviewedAt = &now
}

// CanAssign checks assignment. Allowed in any state; assignment never
// touches Status.
func (e *Evidence) CanAssign() error {
	return nil
}

func (e *Evidence) ApplyAssign(assignee id.Address) {
	e.AssignedTo = assignee
}

// EditRequest carries the mutable fields of a Pending record. Nil fields
// stay untouched.
type EditRequest struct {
	CaseID   *string
	Metadata *Metadata
	Priority *Priority
	Tags     *[]string
}

// CanEdit checks that the record is still Pending; terminal records are
// immutable.
func (e *Evidence) CanEdit() error {
	if e.Status != StatusPending {
		return ErrInvalidTransition
	}
	return nil
}

func (e *Evidence) ApplyEdit(req EditRequest) {
	if req.CaseID != nil {
		e.CaseID = *req.CaseID
	}
	if req.Metadata != nil {
		e.Metadata = *req.Metadata
	}
	if req.Priority != nil {
		e.Priority = *req.Priority
	}
	if req.Tags != nil {
		e.Tags = platformstrings.DedupeAndTrimLower(*req.Tags)
	}
}

// ApplyEnrichment attaches the advisory analysis.
func (e *Evidence) ApplyEnrichment(analysis *upstream.Enrichment) {
	e.Enrichment = analysis
}

package handler

import (
	"time"

	"custodia/internal/evidence"
	"custodia/internal/upstream"
)

// EvidenceResponse is the HTTP form of one custody record. Fields withheld by
// the access policy for the caller's role are simply omitted.
type EvidenceResponse struct {
	ID          string               `json:"id"`
	CaseID      string               `json:"case_id"`
	SubmittedBy string               `json:"submitted_by"`
	ContentHash string               `json:"content_hash,omitempty"`
	ContentID   string               `json:"content_id,omitempty"`
	AnchorID    string               `json:"anchor_id,omitempty"`
	Status      string               `json:"status"`
	Priority    string               `json:"priority"`
	Tags        []string             `json:"tags,omitempty"`
	AssignedTo  string               `json:"assigned_to,omitempty"`
	ReviewedBy  string               `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time           `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	Metadata    evidence.Metadata    `json:"metadata"`
	Enrichment  *upstream.Enrichment `json:"enrichment,omitempty"`
}

// ListResponse is the HTTP response for GET /evidence.
type ListResponse struct {
	Evidence []*EvidenceResponse `json:"evidence"`
	Count    int                 `json:"count"`
}

// FromEvidence converts a domain record to its HTTP form.
func FromEvidence(record *evidence.Evidence) *EvidenceResponse {
	if record == nil {
		return nil
	}
	return &EvidenceResponse{
		ID:          record.ID.String(),
		CaseID:      record.CaseID,
		SubmittedBy: record.SubmittedBy.String(),
		ContentHash: record.ContentHash,
		ContentID:   record.ContentID,
		AnchorID:    record.AnchorID,
		Status:      string(record.Status),
		Priority:    string(record.Priority),
		Tags:        record.Tags,
		AssignedTo:  record.AssignedTo.String(),
		ReviewedBy:  record.ReviewedBy.String(),
		ReviewedAt:  record.ReviewedAt,
		CreatedAt:   record.CreatedAt,
		Metadata:    record.Metadata,
		Enrichment:  record.Enrichment,
	}
}

// FromEvidenceList converts a list of domain records.
func FromEvidenceList(records []*evidence.Evidence) *ListResponse {
	out := make([]*EvidenceResponse, 0, len(records))
	for _, record := range records {
		out = append(out, FromEvidence(record))
	}
	return &ListResponse{Evidence: out, Count: len(out)}
}

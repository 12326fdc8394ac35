package handler

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"custodia/internal/evidence"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// SubmitRequest is the HTTP request body for POST /evidence. Content arrives
// base64-encoded per the JSON byte slice convention.
type SubmitRequest struct {
	CaseID   string            `json:"case_id"`
	Content  []byte            `json:"content"`
	Metadata evidence.Metadata `json:"metadata"`
	Priority string            `json:"priority"`
	Tags     []string          `json:"tags,omitempty"`

	// Parsed values (populated by Validate)
	parsedPriority evidence.Priority
}

// Validate validates and parses the request. Metadata field checks stay in
// the domain layer so the response names every failing field at once.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.CaseID = strings.TrimSpace(r.CaseID)
	if r.CaseID == "" {
		return dErrors.New(dErrors.CodeValidation, "case_id is required")
	}
	if !govalidator.StringLength(r.CaseID, "1", "64") {
		return dErrors.New(dErrors.CodeValidation, "case_id must be at most 64 characters")
	}
	if len(r.Content) == 0 {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}

	priority, err := evidence.ParsePriority(r.Priority)
	if err != nil {
		return err
	}
	r.parsedPriority = priority

	return nil
}

// ToDomain converts the validated request into its service form.
func (r *SubmitRequest) ToDomain() evidence.SubmitRequest {
	return evidence.SubmitRequest{
		CaseID:   r.CaseID,
		Content:  r.Content,
		Metadata: r.Metadata,
		Priority: r.parsedPriority,
		Tags:     r.Tags,
	}
}

// ReviewRequest is the HTTP request body for POST /evidence/{id}/review.
type ReviewRequest struct {
	Decision string `json:"decision"`

	parsedDecision evidence.Status
}

// Validate validates and parses the request.
func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	decision, err := evidence.ParseDecision(r.Decision)
	if err != nil {
		return err
	}
	r.parsedDecision = decision
	return nil
}

// ParsedDecision returns the validated terminal decision.
func (r *ReviewRequest) ParsedDecision() evidence.Status {
	return r.parsedDecision
}

// AssignRequest is the HTTP request body for POST /evidence/{id}/assign.
type AssignRequest struct {
	Assignee string `json:"assignee"`

	parsedAssignee id.Address
}

// Validate validates and parses the request.
func (r *AssignRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	addr, err := id.ParseAddress(strings.TrimSpace(r.Assignee))
	if err != nil {
		return err
	}
	r.parsedAssignee = addr
	return nil
}

// ParsedAssignee returns the validated assignee address.
func (r *AssignRequest) ParsedAssignee() id.Address {
	return r.parsedAssignee
}

// EditRequest is the HTTP request body for PATCH /evidence/{id}. Absent
// fields keep their stored values.
type EditRequest struct {
	CaseID   *string            `json:"case_id,omitempty"`
	Metadata *evidence.Metadata `json:"metadata,omitempty"`
	Priority *string            `json:"priority,omitempty"`
	Tags     *[]string          `json:"tags,omitempty"`

	parsedPriority *evidence.Priority
}

// Validate validates and parses the request.
func (r *EditRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.CaseID == nil && r.Metadata == nil && r.Priority == nil && r.Tags == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be supplied")
	}

	if r.CaseID != nil {
		trimmed := strings.TrimSpace(*r.CaseID)
		if trimmed == "" {
			return dErrors.New(dErrors.CodeValidation, "case_id cannot be empty")
		}
		if !govalidator.StringLength(trimmed, "1", "64") {
			return dErrors.New(dErrors.CodeValidation, "case_id must be at most 64 characters")
		}
		r.CaseID = &trimmed
	}

	if r.Priority != nil {
		priority, err := evidence.ParsePriority(*r.Priority)
		if err != nil {
			return err
		}
		r.parsedPriority = &priority
	}

	return nil
}

// ToDomain converts the validated request into its service form.
func (r *EditRequest) ToDomain() evidence.EditRequest {
	return evidence.EditRequest{
		CaseID:   r.CaseID,
		Metadata: r.Metadata,
		Priority: r.parsedPriority,
		Tags:     r.Tags,
	}
}

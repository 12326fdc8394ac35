package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/audit"
	"custodia/internal/identity"
	"custodia/internal/platform/metrics"
	"custodia/internal/upstream"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

const tracerName = "custodia/evidence"

// Caller identifies the authenticated principal behind a request. The
// transport layer resolves it from the session before calling in.
type Caller struct {
	Address id.Address
	Role    identity.Role
}

// AccessPolicy gates every read and write. The policy engine implements it;
// the service itself holds no role logic.
type AccessPolicy interface {
	Visible(role identity.Role, viewer id.Address, record *Evidence) bool
	Mutable(role identity.Role, action Action) bool
	Mask(role identity.Role, record *Evidence) *Evidence
	ListVisible(role identity.Role, viewer id.Address, records []*Evidence) []*Evidence
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// SubmitRequest carries one submission. Content is the raw artifact bytes;
// the registry stores only their digest and the collaborator handles.
type SubmitRequest struct {
	CaseID   string
	Content  []byte
	Metadata Metadata
	Priority Priority
	Tags     []string
}

// Service is the evidence lifecycle controller. It validates transitions,
// stamps reviewers and drives the content store and anchor ledger during
// submission.
type Service struct {
	store          Store
	policy         AccessPolicy
	content        upstream.ContentStore
	anchors        upstream.AnchorLedger
	enricher       upstream.Enricher
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithEnricher attaches the advisory analysis collaborator. Enrichment is
// best effort and optional.
func WithEnricher(enricher upstream.Enricher) Option {
	return func(s *Service) {
		s.enricher = enricher
	}
}

// New constructs a Service.
func New(store Store, policy AccessPolicy, content upstream.ContentStore,
	anchors upstream.AnchorLedger, opts ...Option) *Service {
	s := &Service{store: store, policy: policy, content: content, anchors: anchors}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit creates a Pending record. Metadata is validated before any
// collaborator call; the record persists only after both the content store
// and the anchor ledger succeeded, so a failed submission leaves no trace
// in the registry. A content artifact orphaned by an anchor failure is not
// cleaned up here; the whole submission is retryable.
func (s *Service) Submit(ctx context.Context, caller Caller, req SubmitRequest) (*Evidence, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "evidence.submit",
		trace.WithAttributes(attribute.String("case_id", req.CaseID)))
	defer span.End()

	if !s.policy.Mutable(caller.Role, ActionSubmit) {
		s.denied(ctx, caller, ActionSubmit)
		return nil, dErrors.New(dErrors.CodeForbidden, "role may not submit evidence")
	}
	if err := req.Metadata.Validate(); err != nil {
		return nil, err
	}
	if len(req.Content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid metadata fields: content")
	}
	priority := req.Priority
	if priority == "" {
		priority = PriorityMedium
	}

	sum := sha256.Sum256(req.Content)
	contentHash := hex.EncodeToString(sum[:])

	contentID, err := s.storeContent(ctx, req.Content)
	if err != nil {
		return nil, err
	}
	anchorID, err := s.anchor(ctx, contentHash)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	record, err := NewEvidence(id.NewEvidenceID(), req.CaseID, caller.Address,
		contentHash, contentID, anchorID, priority, req.Tags, req.Metadata, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist evidence")
	}

	record = s.enrich(ctx, record)

	s.logAudit(ctx, caller, audit.Event{
		Action:     string(audit.EventEvidenceSubmitted),
		EvidenceID: record.ID.String(),
		CaseID:     record.CaseID,
	})
	s.logAudit(ctx, caller, audit.Event{
		Action:     string(audit.EventEvidenceAnchored),
		EvidenceID: record.ID.String(),
		CaseID:     record.CaseID,
	})
	if s.metrics != nil {
		s.metrics.IncrementEvidenceSubmitted()
	}
	return record, nil
}

func (s *Service) storeContent(ctx context.Context, content []byte) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "evidence.store_content")
	defer span.End()

	contentID, err := s.content.Put(ctx, content)
	if err != nil {
		s.upstreamFailure(ctx, "content_store", err)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "content store unavailable")
	}
	return contentID, nil
}

func (s *Service) anchor(ctx context.Context, contentHash string) (string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "evidence.anchor")
	defer span.End()

	anchorID, err := s.anchors.Anchor(ctx, contentHash)
	if err != nil {
		s.upstreamFailure(ctx, "anchor_ledger", err)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "anchor ledger unavailable")
	}
	return anchorID, nil
}

// enrich runs the advisory analysis after creation and attaches the result.
// Every failure is absorbed; the record simply goes out without one.
func (s *Service) enrich(ctx context.Context, record *Evidence) *Evidence {
	if s.enricher == nil {
		return record
	}
	analysis, err := s.enricher.Enrich(ctx, record.Metadata.Description, record.Metadata.FileType)
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "enrichment unavailable",
				"error", err, "evidence_id", record.ID.String())
		}
		return record
	}
	enriched, err := s.store.Execute(ctx, record.ID,
		func(record *Evidence) error { return nil },
		func(record *Evidence) { record.ApplyEnrichment(analysis) },
	)
	if err != nil {
		return record
	}
	return enriched
}

// Get returns a single record masked for the caller. Records the caller
// may not see read as not found rather than forbidden, so existence is not
// leaked.
func (s *Service) Get(ctx context.Context, caller Caller, evidenceID id.EvidenceID) (*Evidence, error) {
	record, err := s.store.FindByID(ctx, evidenceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "evidence not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evidence")
	}
	if !s.policy.Visible(caller.Role, caller.Address, record) {
		return nil, dErrors.New(dErrors.CodeNotFound, "evidence not found")
	}
	return s.policy.Mask(caller.Role, record), nil
}

// List returns the records visible to the caller, masked, in insertion
// order.
func (s *Service) List(ctx context.Context, caller Caller) ([]*Evidence, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list evidence")
	}
	return s.policy.ListVisible(caller.Role, caller.Address, records), nil
}

// Review applies a terminal decision to a Pending record. Reviewing a
// terminal record fails with conflict; two concurrent reviews serialize in
// the store and the loser gets the same conflict.
func (s *Service) Review(ctx context.Context, caller Caller, evidenceID id.EvidenceID, decision Status) (*Evidence, error) {
	if !s.policy.Mutable(caller.Role, ActionReview) {
		s.denied(ctx, caller, ActionReview)
		return nil, dErrors.New(dErrors.CodeForbidden, "role may not review evidence")
	}

	now := requestcontext.Now(ctx)
	record, err := s.store.Execute(ctx, evidenceID,
		func(record *Evidence) error {
			return record.CanReview(decision)
		},
		func(record *Evidence) {
			record.ApplyReview(decision, caller.Address, now)
		},
	)
	if err != nil {
		return nil, s.translateMutationErr(err)
	}

	action := audit.EventEvidenceApproved
	if decision == StatusRejected {
		action = audit.EventEvidenceRejected
	}
	s.logAudit(ctx, caller, audit.Event{
		Action:     string(action),
		EvidenceID: record.ID.String(),
		CaseID:     record.CaseID,
		Decision:   string(decision),
	})
	if s.metrics != nil {
		s.metrics.IncrementEvidenceReviewed(string(decision))
	}
	return record, nil
}

// Assign sets the reviewing assignee. Allowed in any state and never
// touches the status.
func (s *Service) Assign(ctx context.Context, caller Caller, evidenceID id.EvidenceID, assignee id.Address) (*Evidence, error) {
	if !s.policy.Mutable(caller.Role, ActionAssign) {
		s.denied(ctx, caller, ActionAssign)
		return nil, dErrors.New(dErrors.CodeForbidden, "role may not assign evidence")
	}

	record, err := s.store.Execute(ctx, evidenceID,
		func(record *Evidence) error {
			return record.CanAssign()
		},
		func(record *Evidence) {
			record.ApplyAssign(assignee)
		},
	)
	if err != nil {
		return nil, s.translateMutationErr(err)
	}

	s.logAudit(ctx, caller, audit.Event{
		Action:     string(audit.EventEvidenceAssigned),
		EvidenceID: record.ID.String(),
		CaseID:     record.CaseID,
		Reason:     assignee.String(),
	})
	return record, nil
}

// Edit changes caseId, metadata, priority or tags of a Pending record.
// Replacement metadata is validated like a submission's.
func (s *Service) Edit(ctx context.Context, caller Caller, evidenceID id.EvidenceID, req EditRequest) (*Evidence, error) {
	if !s.policy.Mutable(caller.Role, ActionEdit) {
		s.denied(ctx, caller, ActionEdit)
		return nil, dErrors.New(dErrors.CodeForbidden, "role may not edit evidence")
	}
	if req.Metadata != nil {
		if err := req.Metadata.Validate(); err != nil {
			return nil, err
		}
	}
	if req.CaseID != nil && *req.CaseID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid metadata fields: case_id")
	}

	record, err := s.store.Execute(ctx, evidenceID,
		func(record *Evidence) error {
			return record.CanEdit()
		},
		func(record *Evidence) {
			record.ApplyEdit(req)
		},
	)
	if err != nil {
		return nil, s.translateMutationErr(err)
	}

	s.logAudit(ctx, caller, audit.Event{
		Action:     string(audit.EventEvidenceEdited),
		EvidenceID: record.ID.String(),
		CaseID:     record.CaseID,
	})
	return record, nil
}

// Delete hard-removes the record. The custody trail keeps the deletion
// event even though the record itself is gone.
func (s *Service) Delete(ctx context.Context, caller Caller, evidenceID id.EvidenceID) error {
	if !s.policy.Mutable(caller.Role, ActionDelete) {
		s.denied(ctx, caller, ActionDelete)
		return dErrors.New(dErrors.CodeForbidden, "role may not delete evidence")
	}

	if err := s.store.Delete(ctx, evidenceID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "evidence not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete evidence")
	}

	s.logAudit(ctx, caller, audit.Event{
		Action:     string(audit.EventEvidenceDeleted),
		EvidenceID: evidenceID.String(),
	})
	return nil
}

func (s *Service) translateMutationErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "evidence not found")
	case errors.Is(err, ErrInvalidTransition):
		return dErrors.New(dErrors.CodeConflict, "evidence state does not allow this transition")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update evidence")
	}
}

func (s *Service) denied(ctx context.Context, caller Caller, action Action) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "policy denial",
			"actor", caller.Address.String(), "role", caller.Role.String(), "action", string(action))
	}
	if s.metrics != nil {
		s.metrics.IncrementPolicyDenial(string(action))
	}
}

func (s *Service) upstreamFailure(ctx context.Context, collaborator string, err error) {
	if s.logger != nil {
		s.logger.ErrorContext(ctx, "upstream collaborator failed",
			"collaborator", collaborator, "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementUpstreamFailure(collaborator)
	}
}

func (s *Service) logAudit(ctx context.Context, caller Caller, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"event", event.Action, "actor", caller.Address.String(),
			"evidence_id", event.EvidenceID, "log_type", "audit")
	}
	if s.auditPublisher == nil {
		return
	}
	event.Actor = caller.Address
	event.RequestID = requestcontext.RequestID(ctx)
	event.Device = requestcontext.DeviceName(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	_ = s.auditPublisher.Emit(ctx, event)
}

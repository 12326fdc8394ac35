package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/evidence"
	"custodia/internal/identity"
	"custodia/internal/platform/middleware"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/evidence-mocks.go -package=mocks

// Service defines the evidence lifecycle operations the handler depends on.
type Service interface {
	Submit(ctx context.Context, caller evidence.Caller, req evidence.SubmitRequest) (*evidence.Evidence, error)
	Get(ctx context.Context, caller evidence.Caller, evidenceID id.EvidenceID) (*evidence.Evidence, error)
	List(ctx context.Context, caller evidence.Caller) ([]*evidence.Evidence, error)
	Review(ctx context.Context, caller evidence.Caller, evidenceID id.EvidenceID, decision evidence.Status) (*evidence.Evidence, error)
	Assign(ctx context.Context, caller evidence.Caller, evidenceID id.EvidenceID, assignee id.Address) (*evidence.Evidence, error)
	Edit(ctx context.Context, caller evidence.Caller, evidenceID id.EvidenceID, req evidence.EditRequest) (*evidence.Evidence, error)
	Delete(ctx context.Context, caller evidence.Caller, evidenceID id.EvidenceID) error
}

// Directory resolves registered identities for the current caller.
type Directory interface {
	Resolve(ctx context.Context, addr id.Address) (*identity.Identity, error)
}

// Handler wires the evidence endpoints to the lifecycle controller. It builds
// the caller from the session context; the service and policy engine decide
// what that caller may do.
type Handler struct {
	service   Service
	directory Directory
	logger    *slog.Logger
}

// New constructs an evidence handler with its dependencies.
func New(service Service, directory Directory, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		directory: directory,
		logger:    logger,
	}
}

// Register mounts evidence endpoints on the router. All of them require a
// live session.
func (h *Handler) Register(r chi.Router) {
	r.Post("/evidence", h.HandleSubmit)
	r.Get("/evidence", h.HandleList)
	r.Route("/evidence/{evidenceID}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Patch("/", h.HandleEdit)
		r.Delete("/", h.HandleDelete)
		r.Post("/review", h.HandleReview)
		r.Post("/assign", h.HandleAssign)
	})
}

// caller resolves the authenticated address to a role-bearing caller. A
// session whose identity vanished from the directory is treated as
// unauthenticated.
func (h *Handler) caller(ctx context.Context) (evidence.Caller, error) {
	addr := middleware.GetAddress(ctx)
	ident, err := h.directory.Resolve(ctx, addr)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return evidence.Caller{}, dErrors.New(dErrors.CodeUnauthorized, "identity is not registered")
		}
		return evidence.Caller{}, err
	}
	return evidence.Caller{Address: addr, Role: ident.Role}, nil
}

func evidenceIDParam(r *http.Request) (id.EvidenceID, error) {
	return id.ParseEvidenceID(chi.URLParam(r, "evidenceID"))
}

// HandleSubmit handles POST /evidence requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller, err := h.caller(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Submit(ctx, caller, req.ToDomain())
	if err != nil {
		h.logger.ErrorContext(ctx, "evidence submission failed",
			"request_id", requestID,
			"case_id", req.CaseID,
			"submitted_by", caller.Address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence submitted",
		"request_id", requestID,
		"evidence_id", record.ID,
		"case_id", record.CaseID,
		"submitted_by", caller.Address,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromEvidence(record))
}

// HandleList handles GET /evidence requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := h.caller(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.List(ctx, caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvidenceList(records))
}

// HandleGet handles GET /evidence/{evidenceID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := h.caller(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidenceID, err := evidenceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	record, err := h.service.Get(ctx, caller, evidenceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromEvidence(record))
}

// HandleReview handles POST /evidence/{evidenceID}/review requests.
func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, err := h.caller(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidenceID, err := evidenceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReviewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Review(ctx, caller, evidenceID, req.ParsedDecision())
	if err != nil {
		h.logger.WarnContext(ctx, "evidence review failed",
			"request_id", requestID,
			"evidence_id", evidenceID,
			"decision", req.Decision,
			"reviewer", caller.Address,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence reviewed",
		"request_id", requestID,
		"evidence_id", evidenceID,
		"decision", req.Decision,
		"reviewer", caller.Address,
	)
	httputil.WriteJSON(w, http.StatusOK, FromEvidence(record))
}

// HandleAssign handles POST /evidence/{evidenceID}/assign requests.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, err := h.caller(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidenceID, err := evidenceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[AssignRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Assign(ctx, caller, evidenceID, req.ParsedAssignee())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence assigned",
		"request_id", requestID,
		"evidence_id", evidenceID,
		"assignee", req.Assignee,
	)
	httputil.WriteJSON(w, http.StatusOK, FromEvidence(record))
}

// HandleEdit handles PATCH /evidence/{evidenceID} requests.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, err := h.caller(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidenceID, err := evidenceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[EditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Edit(ctx, caller, evidenceID, req.ToDomain())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence edited",
		"request_id", requestID,
		"evidence_id", evidenceID,
		"edited_by", caller.Address,
	)
	httputil.WriteJSON(w, http.StatusOK, FromEvidence(record))
}

// HandleDelete handles DELETE /evidence/{evidenceID} requests.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, err := h.caller(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	evidenceID, err := evidenceIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, caller, evidenceID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "evidence deleted",
		"request_id", requestID,
		"evidence_id", evidenceID,
		"deleted_by", caller.Address,
	)
	w.WriteHeader(http.StatusNoContent)
}

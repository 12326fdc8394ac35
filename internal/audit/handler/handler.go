package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/audit"
	"custodia/internal/identity"
	"custodia/internal/platform/middleware"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Store defines the custody trail queries the handler depends on.
type Store interface {
	ListByActor(ctx context.Context, actor id.Address) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Directory resolves registered identities for the current caller.
type Directory interface {
	Resolve(ctx context.Context, addr id.Address) (*identity.Identity, error)
}

// AccessPolicy answers whether a role may read the custody trail. The
// policy engine implements it.
type AccessPolicy interface {
	AuditReadable(role identity.Role) bool
}

// Handler exposes the custody trail to administrators.
type Handler struct {
	store     Store
	directory Directory
	access    AccessPolicy
	logger    *slog.Logger
}

// New constructs an audit handler with its dependencies.
func New(store Store, directory Directory, access AccessPolicy, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		directory: directory,
		access:    access,
		logger:    logger,
	}
}

// Register mounts the audit endpoints on the router. All of them require a
// live session; the policy engine additionally gates them by role.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit", h.HandleListEvents)
}

// HandleListEvents handles GET /admin/audit requests. Supports ?actor= to
// filter by acting address and ?limit= to bound the unfiltered listing.
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	addr := middleware.GetAddress(ctx)
	ident, err := h.directory.Resolve(ctx, addr)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "identity is not registered"))
			return
		}
		httputil.WriteError(w, err)
		return
	}
	if !h.access.AuditReadable(ident.Role) {
		h.logger.WarnContext(ctx, "audit access denied",
			"request_id", requestID,
			"address", addr,
			"role", ident.Role,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "audit trail requires the admin role"))
		return
	}

	var events []audit.Event
	if rawActor := r.URL.Query().Get("actor"); rawActor != "" {
		actor, err := id.ParseAddress(rawActor)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		events, err = h.store.ListByActor(ctx, actor)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing custody events failed"))
			return
		}
	} else {
		limit, err := limitParam(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		events, err = h.store.ListRecent(ctx, limit)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "listing custody events failed"))
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{Events: events, Count: len(events)})
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, nil
}

// ListResponse is the HTTP response for GET /admin/audit.
type ListResponse struct {
	Events []audit.Event `json:"events"`
	Count  int           `json:"count"`
}

package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/identity"
	"custodia/internal/platform/middleware"
	"custodia/internal/session"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/session-mocks.go -package=mocks

// Service defines the session operations the handler depends on.
type Service interface {
	Establish(ctx context.Context, req session.EstablishRequest) (*session.EstablishResult, error)
	Terminate(ctx context.Context, sessionID id.SessionID) error
	Get(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
}

// Directory resolves registered identities for the current caller.
type Directory interface {
	Resolve(ctx context.Context, addr id.Address) (*identity.Identity, error)
}

// Handler wires the connect/disconnect endpoints to the session manager.
type Handler struct {
	service   Service
	directory Directory
	logger    *slog.Logger
}

// New constructs a session handler with its dependencies.
func New(service Service, directory Directory, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		directory: directory,
		logger:    logger,
	}
}

// RegisterPublic mounts the endpoints that run without a session.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/connect", h.HandleConnect)
}

// RegisterProtected mounts the endpoints that require a live session.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/disconnect", h.HandleDisconnect)
	r.Get("/auth/me", h.HandleMe)
}

// HandleConnect handles POST /auth/connect requests. Unknown addresses get a
// 401 with needs_registration set so clients know to retry with a profile.
func (h *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ConnectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Establish(ctx, session.EstablishRequest{
		Address: req.ParsedAddress(),
		Profile: req.ParsedProfile(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "session establishment failed",
			"request_id", requestID,
			"address", req.ParsedAddress(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	if result.NeedsRegistration {
		h.logger.InfoContext(ctx, "connect requires registration",
			"request_id", requestID,
			"address", req.ParsedAddress(),
		)
		httputil.WriteJSON(w, http.StatusUnauthorized, ConnectResponse{NeedsRegistration: true})
		return
	}

	h.logger.InfoContext(ctx, "session established",
		"request_id", requestID,
		"address", req.ParsedAddress(),
		"session_id", result.Session.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, ConnectResponse{
		Token:    result.Token,
		Session:  FromSession(result.Session),
		Identity: FromIdentity(result.Identity),
	})
}

// HandleDisconnect handles POST /auth/disconnect requests.
func (h *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	sessionID := middleware.GetSessionID(ctx)

	if err := h.service.Terminate(ctx, sessionID); err != nil {
		h.logger.ErrorContext(ctx, "session termination failed",
			"request_id", requestID,
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session terminated",
		"request_id", requestID,
		"session_id", sessionID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me requests.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	sessionID := middleware.GetSessionID(ctx)
	addr := middleware.GetAddress(ctx)

	sess, err := h.service.Get(ctx, sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ident, err := h.directory.Resolve(ctx, addr)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "identity is not registered"))
			return
		}
		h.logger.ErrorContext(ctx, "identity resolution failed",
			"request_id", requestID,
			"address", addr,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, MeResponse{
		Session:  FromSession(sess),
		Identity: FromIdentity(ident),
	})
}

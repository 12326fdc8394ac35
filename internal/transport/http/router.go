// Package httptransport assembles the HTTP surface: middleware chain, public
// handshake routes and the session-protected API.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "custodia/internal/audit/handler"
	evidencehandler "custodia/internal/evidence/handler"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
	sessionhandler "custodia/internal/session/handler"
)

// Dependencies collects everything the router mounts. All fields are
// required unless noted.
type Dependencies struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Tokens   middleware.TokenValidator
	Sessions middleware.SessionVerifier

	SessionHandler  *sessionhandler.Handler
	EvidenceHandler *evidencehandler.Handler
	AuditHandler    *audithandler.Handler

	// RequestTimeout bounds each request; zero means 30s.
	RequestTimeout time.Duration
	// ConnectRatePerSecond and ConnectRateBurst throttle the unauthenticated
	// handshake per client IP; zero means 5/10.
	ConnectRatePerSecond int
	ConnectRateBurst     int
}

// NewRouter wires all endpoints behind the shared middleware chain. The
// handshake runs rate limited but unauthenticated; everything else sits
// behind session verification.
func NewRouter(deps Dependencies) http.Handler {
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ratePerSecond := deps.ConnectRatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	burst := deps.ConnectRateBurst
	if burst <= 0 {
		burst = 10
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(ratePerSecond, burst))
		r.Use(middleware.Device)
		deps.SessionHandler.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(deps.Tokens, deps.Sessions, deps.Logger))
		deps.SessionHandler.RegisterProtected(r)
		deps.EvidenceHandler.Register(r)
		deps.AuditHandler.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

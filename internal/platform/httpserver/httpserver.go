package httpserver

import (
	"net/http"
	"time"
)

// New builds the registry's HTTP server. Read-header timeout guards against
// slow-loris connects; per-request deadlines come from the router's timeout
// middleware instead.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

package testutil

import (
	"context"
	"net/http"

	id "custodia/pkg/domain"
	"custodia/pkg/requestcontext"
)

// WithAddress adds an authenticated account address to the request context.
// This simulates what the session middleware would do for authenticated requests.
func WithAddress(req *http.Request, address string) *http.Request {
	if addr, err := id.ParseAddress(address); err == nil {
		return req.WithContext(requestcontext.WithAddress(req.Context(), addr))
	}
	return req
}

// WithSession adds both address and session ID to the request context.
// This is the typical state for an authenticated request.
// Invalid values are silently ignored.
func WithSession(req *http.Request, address, sessionID string) *http.Request {
	ctx := req.Context()
	if address != "" {
		if addr, err := id.ParseAddress(address); err == nil {
			ctx = requestcontext.WithAddress(ctx, addr)
		}
	}
	if sessionID != "" {
		if sid, err := id.ParseSessionID(sessionID); err == nil {
			ctx = requestcontext.WithSessionID(ctx, sid)
		}
	}
	return req.WithContext(ctx)
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), key, value))
}

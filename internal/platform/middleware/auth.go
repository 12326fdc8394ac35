package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/httputil"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// SessionClaims represents the claims we expect from the token validator.
type SessionClaims struct {
	Address   string
	SessionID string
}

// TokenValidator defines the interface for validating session bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*SessionClaims, error)
}

// SessionVerifier confirms a session is still live. A token can outlive its
// session (explicit disconnect), so the store is the authority.
type SessionVerifier interface {
	Verify(ctx context.Context, sessionID id.SessionID) error
}

// RequireSession validates the bearer token and confirms the session has not
// been terminated, then attaches address and session ID to the context.
func RequireSession(validator TokenValidator, sessions SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			tokenString, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || tokenString == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			addr, err := id.ParseAddress(claims.Address)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
				return
			}
			sessionID, err := id.ParseSessionID(claims.SessionID)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims"))
				return
			}

			if err := sessions.Verify(ctx, sessionID); err != nil {
				if errors.Is(err, sentinel.ErrExpired) || errors.Is(err, sentinel.ErrNotFound) {
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session expired"))
					return
				}
				logger.ErrorContext(ctx, "session verification failed",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "session verification failed"))
				return
			}

			ctx = requestcontext.WithAddress(ctx, addr)
			ctx = requestcontext.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAddress retrieves the authenticated account address from the context.
func GetAddress(ctx context.Context) id.Address {
	return requestcontext.Address(ctx)
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) id.SessionID {
	return requestcontext.SessionID(ctx)
}

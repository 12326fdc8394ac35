package middleware

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"custodia/pkg/requestcontext"
)

// Device derives a human-readable device name from the User-Agent and attaches
// it, with the client IP, to the request context. The session manager records
// both on the custody log.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if name := deviceDisplayName(r.Header.Get("User-Agent")); name != "" {
			ctx = requestcontext.WithDeviceName(ctx, name)
		}
		if ip := clientIP(r); ip != "" {
			ctx = requestcontext.WithClientIP(ctx, ip)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func deviceDisplayName(uaHeader string) string {
	if uaHeader == "" {
		return ""
	}
	ua := useragent.New(uaHeader)
	browser, _ := ua.Browser()
	parts := make([]string, 0, 2)
	if browser != "" {
		parts = append(parts, browser)
	}
	if osInfo := ua.OSInfo().Name; osInfo != "" {
		parts = append(parts, "on "+osInfo)
	}
	if len(parts) == 0 {
		return "Unknown device"
	}
	return strings.Join(parts, " ")
}

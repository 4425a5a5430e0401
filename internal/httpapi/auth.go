package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// authExempt lists routes that never require a token: probes, metrics,
// and the welcome page.
func authExempt(path string) bool {
	switch path {
	case "/", "/health", "/metrics":
		return true
	}
	return strings.HasPrefix(path, "/swagger")
}

// authMiddleware gates requests on a bearer token. An empty configured
// key disables the gate entirely, matching the original deployment
// behavior where VOXSCRIBE_API_KEY is optional.
func authMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authExempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "auth", "missing authentication token")
				return
			}
			token := auth
			if scheme, rest, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
				token = rest
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeError(w, http.StatusUnauthorized, "auth", "invalid authentication token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

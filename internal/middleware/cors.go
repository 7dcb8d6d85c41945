// Package middleware provides HTTP middleware for the designtrace API.
package middleware

import (
	"net/http"
	"strings"

	"github.com/mohsaqr/designtrace/internal/identity"
)

// CORS returns middleware that handles cross-origin requests from the
// design-builder frontend. The ingest path authenticates with the session
// cookie, so credentials are only ever allowed for explicitly listed
// origins, never for wildcard matches.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowedHeaders := strings.Join([]string{"Content-Type", identity.TabHeaderName}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			wildcard := false
			explicit := false
			for _, o := range allowedOrigins {
				switch {
				case o == "*":
					wildcard = true
				case o == origin:
					explicit = true
				}
			}

			if origin != "" && (wildcard || explicit) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
				if explicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

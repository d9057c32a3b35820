// internal/middleware/cors.go
//
// Cross-origin policy for the form API.
//
// The site's frontend may be served from a different origin than the API
// (a static host in front, the relay behind).  CORS admits exactly the
// configured frontend origin, with credentials, for the verbs the form
// endpoints use.  With no frontend configured the policy admits only
// same-origin requests, which browsers never preflight.

package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS returns the cross-origin wrapper for frontendURL.  An empty URL
// yields a pass-through.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	origin := strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if origin == "" {
		return func(h http.Handler) http.Handler { return h }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

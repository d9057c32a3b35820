// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts.
//
// Production hardening recommends:
//
//   • ReadHeaderTimeout – abort slow-loris headers (5 s)
//   • ReadTimeout       – cap body upload time (15 s)
//   • WriteTimeout      – cap total response time; must outlast one SMTP
//                         session, so it is derived from the mail timeout
//   • IdleTimeout       – close keep-alives on idle clients (60 s)
//
// This helper centralises those defaults so cmd/web doesn’t repeat boilerplate.
//

package server

import (
	"net/http"
	"time"
)

// writeSlack is added to the delivery timeout so a slow relay still gets
// its answer written back.
const writeSlack = 15 * time.Second

// New constructs an *http.Server with sensible defaults.  deliveryTimeout
// is the SMTP session bound; zero means 30 s.
func New(addr string, handler http.Handler, deliveryTimeout time.Duration) *http.Server {
	if deliveryTimeout <= 0 {
		deliveryTimeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      deliveryTimeout + writeSlack,
		IdleTimeout:       60 * time.Second,
	}
}

package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true)(okHandler)

	r := httptest.NewRequest(http.MethodGet, "http://digix.example/api/health?x=1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusPermanentRedirect, w.Code)
	assert.Equal(t, "https://digix.example/api/health?x=1", w.Header().Get("Location"))

	for _, host := range []string{"localhost:3000", "127.0.0.1:3000", "[::1]:3000"} {
		r = httptest.NewRequest(http.MethodGet, "/", nil)
		r.Host = host
		w = httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code, host)
	}

	r = httptest.NewRequest(http.MethodGet, "http://digix.example/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestForceHTTPS_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	ForceHTTPS(false)(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://digix.example/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurity(t *testing.T) {
	w := httptest.NewRecorder()
	Security(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	Security(okHandler).ServeHTTP(w, r)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestCORS(t *testing.T) {
	h := CORS("https://digix.example/")(okHandler)

	r := httptest.NewRequest(http.MethodOptions, "/api/contact", nil)
	r.Header.Set("Origin", "https://digix.example")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "https://digix.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	r = httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Empty(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	CORS("")(okHandler).ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

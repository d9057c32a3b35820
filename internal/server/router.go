// internal/server/router.go
//
// Router assembly.
//
// Context
// -------
// NewRouter builds the one chi tree the process serves:
//
//	RequestID → client metadata (requestinfo) → access log → Recover
//	  → Security → ForceHTTPS → CORS → RequestSize
//	    /api/*     components (forms: contact, register, consultation, health)
//	    /metrics   optional Prometheus handler
//	    /*         static frontend with index.html fallback (when configured)
//
// The panic handler answers with the same JSON envelope the form API uses,
// so a client never has to parse two error shapes.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/yanizio/formrelay/internal/component"
	"github.com/yanizio/formrelay/internal/logger"
	"github.com/yanizio/formrelay/internal/middleware"
	"github.com/yanizio/formrelay/internal/requestinfo"
)

// APIPrefix is where components are mounted.
const APIPrefix = "/api"

// RouterConfig gathers what NewRouter needs.
type RouterConfig struct {
	Log          *zap.SugaredLogger
	ForceHTTPS   bool
	FrontendURL  string       // CORS origin; empty disables CORS.
	MaxBodyBytes int64        // Request body cap; zero means 10 MiB.
	StaticDir    string       // Frontend root; empty disables static serving.
	Metrics      http.Handler // Served at /metrics when non-nil.
	Components   []component.Component
}

// NewRouter assembles middleware, components, and static serving.
func NewRouter(cfg RouterConfig) chi.Router {
	log := cfg.Log
	if log == nil {
		log = zap.S()
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 10 << 20
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestinfo.Enrich(log))
	r.Use(accessLog)
	r.Use(Recover)
	r.Use(middleware.Security)
	r.Use(middleware.ForceHTTPS(cfg.ForceHTTPS))
	r.Use(middleware.CORS(cfg.FrontendURL))
	r.Use(chimw.RequestSize(maxBody))

	component.Mount(r, APIPrefix, log, cfg.Components...)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.NotFound(notFound(cfg.StaticDir))
	return r
}

/*──────────────────────────── middleware ───────────────────────────────────*/

// Recover converts a panic into a JSON 500 and logs the stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.FromContext(r.Context()).Errorw("panic serving request",
				"panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]any{
				"success": false,
				"message": "Internal server error",
			})
		}()
		next.ServeHTTP(w, r)
	})
}

// accessLog writes one line per request through the request-scoped logger.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.FromContext(r.Context()).Infow("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}

/*──────────────────────────── static frontend ──────────────────────────────*/

// notFound serves files from dir, falling back to index.html for GET and
// HEAD requests outside the API.  Without a dir, or for API paths, it
// answers with a JSON 404.
func notFound(dir string) http.HandlerFunc {
	var files http.Handler
	if dir != "" {
		files = http.FileServer(http.Dir(dir))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		isAPI := r.URL.Path == APIPrefix || strings.HasPrefix(r.URL.Path, APIPrefix+"/")
		if files == nil || isAPI || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]any{"success": false, "message": "Not found"})
			return
		}

		clean := path.Clean("/" + r.URL.Path)
		if fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && !fi.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	}
}

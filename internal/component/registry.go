// internal/component/registry.go
//
// Component mounting.
//
// Each concrete component lives under components/<name>, is constructed
// explicitly in cmd/web with its dependencies, and registers its routes on
// a chi router.  Mount gives every component its own route group under a
// shared prefix so the API surface stays in one place.

package component

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Component contract.
//
// Routes() registers paths relative to the mount prefix, e.g.:
//
//	r.Post("/contact", c.handleContact)
//	r.Get("/health", c.handleHealth)
type Component interface {
	Name() string
	Routes(r chi.Router)
}

// Mount registers each component under prefix in its own group, so
// component middleware stays local.  Route sets must not overlap.
func Mount(r chi.Router, prefix string, log *zap.SugaredLogger, cs ...Component) {
	if log == nil {
		log = zap.S()
	}
	r.Route(prefix, func(sub chi.Router) {
		for _, c := range cs {
			sub.Group(c.Routes)
			log.Infow("component mounted", "component", c.Name(), "prefix", prefix)
		}
	})
}

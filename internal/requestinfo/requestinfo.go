//
//  internal/requestinfo/requestinfo.go
//
//  Lightweight types and helpers that collect per-request metadata
//  (user-agent fingerprint, client IP, geolocation, and timestamp).  The
//  forms component copies this into the notification footer so staff can
//  see where a submission came from.  These structs are inert and safe to
//  log.
//
//  Dependencies
//  • internal/ua                       (UA parsing over avct/uasurfer)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"

	"github.com/yanizio/formrelay/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Geo holds IP-based geolocation hints.
// These are best-effort and may be empty if the DB has no match.
type Geo struct {
	IP         net.IP // Client address chosen by clientIP.
	CountryISO string // "PK", "US", "FR", ...
	Country    string // English country name.
	City       string // "Lahore", "Paris", ...
}

// RequestInfo is attached to the request context by Enrich.
type RequestInfo struct {
	UA        ua.Info
	Geo       Geo
	Timestamp time.Time
}

// Location renders "City, Country" from whatever the lookup found.
func (ri *RequestInfo) Location() string {
	var parts []string
	if ri.Geo.City != "" {
		parts = append(parts, ri.Geo.City)
	}
	switch {
	case ri.Geo.Country != "":
		parts = append(parts, ri.Geo.Country)
	case ri.Geo.CountryISO != "":
		parts = append(parts, ri.Geo.CountryISO)
	}
	return strings.Join(parts, ", ")
}

// IP returns the client address as text, or "" when unknown.
func (ri *RequestInfo) IP() string {
	if ri.Geo.IP == nil {
		return ""
	}
	return ri.Geo.IP.String()
}

//
//  -----------------------------
//  Package-level state
//  -----------------------------
//

// cityLookup is the slice of *geoip2.Reader we use; tests substitute a
// fake.
type cityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

type geoHolder struct{ r cityLookup }

// geoDB is the shared MaxMind handle.  Reads are safe for concurrent use.
var geoDB atomic.Pointer[geoHolder]

// InitGeo opens a GeoLite2-City database.  An empty path disables
// geolocation.  The returned close function releases the file.
func InitGeo(dbPath string) (func() error, error) {
	if dbPath == "" {
		geoDB.Store(nil)
		return func() error { return nil }, nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	geoDB.Store(&geoHolder{r: r})
	return func() error {
		geoDB.Store(nil)
		return r.Close()
	}, nil
}

//
//  -----------------------------
//  Public helper: FromContext
//  -----------------------------
//

type ctxKey struct{} // unexported, collision-proof

// FromContext returns the pointer previously stored by Enrich.
// It returns nil if the middleware has not run.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// NewContext returns ctx carrying ri.
func NewContext(ctx context.Context, ri *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, ri)
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// lookupGeo returns best-effort Geo data using the shared reader.
func lookupGeo(ip net.IP) Geo {
	h := geoDB.Load()
	if h == nil || ip == nil || ip.IsLoopback() || ip.IsPrivate() {
		return Geo{IP: ip}
	}
	rec, err := h.r.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		Country:    rec.Country.Names["en"],
		City:       rec.City.Names["en"],
	}
}

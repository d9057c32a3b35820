package requestinfo

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/formrelay/internal/logger"
)

type fakeCity map[string]*geoip2.City

func (f fakeCity) City(ip net.IP) (*geoip2.City, error) {
	if rec, ok := f[ip.String()]; ok {
		return rec, nil
	}
	return nil, errors.New("not found")
}

func withGeo(t *testing.T, f fakeCity) {
	t.Helper()
	geoDB.Store(&geoHolder{r: f})
	t.Cleanup(func() { geoDB.Store(nil) })
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r).String())

	r.Header.Set("X-Real-Ip", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(r).String())

	r.Header.Set("X-Forwarded-For", "garbage, 203.0.113.7, 10.0.0.2")
	assert.Equal(t, "203.0.113.7", clientIP(r).String())
}

func TestEnrich_AttachesInfoAndLogger(t *testing.T) {
	rec := &geoip2.City{}
	rec.Country.IsoCode = "PK"
	rec.Country.Names = map[string]string{"en": "Pakistan"}
	rec.City.Names = map[string]string{"en": "Lahore"}
	withGeo(t, fakeCity{"203.0.113.7": rec})

	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core).Sugar()

	var got *RequestInfo
	h := Enrich(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		logger.FromContext(r.Context()).Infow("inside")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, got)
	assert.Equal(t, "203.0.113.7", got.IP())
	assert.Equal(t, "Lahore, Pakistan", got.Location())
	assert.Equal(t, "Chrome", got.UA.Browser)

	inside := logs.FilterMessage("inside").All()
	require.Len(t, inside, 1)
	assert.Equal(t, "203.0.113.7", inside[0].ContextMap()["ip"])
}

func TestLookupGeo_SkipsPrivateAndMissing(t *testing.T) {
	withGeo(t, fakeCity{})
	g := lookupGeo(net.ParseIP("192.168.1.4"))
	assert.Empty(t, g.CountryISO)

	g = lookupGeo(net.ParseIP("198.51.100.9"))
	assert.Empty(t, g.City)
	assert.Equal(t, "198.51.100.9", g.IP.String())

	ri := &RequestInfo{Geo: Geo{CountryISO: "US"}}
	assert.Equal(t, "US", ri.Location())
}

func TestInitGeo_EmptyPathDisables(t *testing.T) {
	closeFn, err := InitGeo("")
	require.NoError(t, err)
	assert.NoError(t, closeFn())
	assert.Nil(t, geoDB.Load())

	_, err = InitGeo("/nonexistent/GeoLite2-City.mmdb")
	assert.Error(t, err)
}

func TestFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, FromContext(r.Context()))
}

package geoip

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versehub/console/config"
)

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestLookupIP_PrimaryDefaults(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.113.7", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"success","country":"Ghana","countryCode":"GH","city":"Accra","regionName":"Greater Accra","lat":5.6,"lon":-0.19}`)
	})
	cfg := config.DefaultGeoPrimary
	cfg.URL = base + "/json/{ip}"

	p, err := New(Options{Name: "primary", Config: cfg})
	require.NoError(t, err)

	loc, err := p.LookupIP(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, "Ghana", loc.Country)
	assert.Equal(t, "GH", loc.CountryCode)
	assert.Equal(t, "Accra", loc.City)
	assert.Equal(t, "Greater Accra", loc.Region)
	require.True(t, loc.HasCoordinates())
	assert.InDelta(t, 5.6, *loc.Lat, 1e-9)
	assert.InDelta(t, -0.19, *loc.Lon, 1e-9)
}

func TestLookupIP_FailureFlag(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"fail","message":"private range"}`)
	})
	cfg := config.DefaultGeoPrimary
	cfg.URL = base + "/json/{ip}"
	p, err := New(Options{Name: "primary", Config: cfg})
	require.NoError(t, err)

	_, err = p.LookupIP(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrUnsuccessful)

	_, err = p.LookupIP(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingIP)
}

func TestLookupCaller_FallbackDefaults(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"country_name":"Kenya","country_code":"KE","city":"Nairobi","region":"Nairobi County","latitude":"-1.28","longitude":"36.82"}`)
	})
	cfg := config.DefaultGeoFallback
	cfg.URL = base + "/json/"
	p, err := New(Options{Name: "fallback", Config: cfg})
	require.NoError(t, err)

	loc, err := p.LookupCaller(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Kenya", loc.Country)
	assert.Equal(t, "Nairobi", loc.City)
	require.True(t, loc.HasCoordinates())
	assert.InDelta(t, -1.28, *loc.Lat, 1e-9)

	// error payloads fail the "!error" success expression
	base = serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"error":true,"reason":"RateLimited"}`)
	})
	cfg.URL = base + "/json/"
	p, err = New(Options{Name: "fallback", Config: cfg})
	require.NoError(t, err)
	_, err = p.LookupCaller(context.Background())
	assert.ErrorIs(t, err, ErrUnsuccessful)
}

func TestReverse_EnhanceDefaults(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5.6", r.URL.Query().Get("latitude"))
		assert.Equal(t, "-0.19", r.URL.Query().Get("longitude"))
		_, _ = io.WriteString(w, `{"countryName":"Ghana","countryCode":"GH","city":"","locality":"Osu","principalSubdivision":"Greater Accra"}`)
	})
	cfg := config.DefaultGeoEnhance
	cfg.URL = base + "/reverse?latitude={lat}&longitude={lon}"
	p, err := New(Options{Name: "enhance", Config: cfg})
	require.NoError(t, err)

	loc, err := p.Reverse(context.Background(), 5.6, -0.19)
	require.NoError(t, err)
	assert.Equal(t, "Osu", loc.City)
	assert.Equal(t, "Greater Accra", loc.Region)
	assert.False(t, loc.HasCoordinates())
}

func TestFetch_StatusAndTimeout(t *testing.T) {
	base := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	})

	p, err := New(Options{Name: "x", Config: config.GeoProviderConfig{URL: base + "/limited"}})
	require.NoError(t, err)
	_, err = p.LookupCaller(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	p, err = New(Options{Name: "x", Config: config.GeoProviderConfig{URL: base + "/slow"}})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.LookupCaller(ctx)
	require.Error(t, err)
}

func TestNew_InvalidExpression(t *testing.T) {
	_, err := New(Options{Name: "bad", Config: config.GeoProviderConfig{URL: "http://x", City: "a.["}})
	require.Error(t, err)

	_, err = New(Options{Name: "empty"})
	require.Error(t, err)
}

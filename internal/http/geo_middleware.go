package httpx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/versehub/console/internal/domain/geo"
	"github.com/versehub/console/internal/service"
)

// Geo cookie names. Values are query-escaped.
const (
	CookieBrowser         = "BROWSER"
	CookieOS              = "OS"
	CookieDevice          = "DEVICE"
	CookieCountry         = "COUNTRY"
	CookieCity            = "CITY"
	CookieCountryCode     = "COUNTRY_CODE"
	CookieRegion          = "REGION"
	CookieLat             = "LAT"
	CookieLon             = "LON"
	CookieDeviceAnalytics = "DEVICE_ANALYTICS"

	DefaultGeoCookieTTL = 24 * time.Hour
)

// GeoResolverInterface is the resolver surface GeoTagging depends on.
type GeoResolverInterface interface {
	Resolve(ctx context.Context, req service.GeoRequest) (geo.Record, error)
}

// GeoTaggingOptions groups dependencies for GeoTagging.
type GeoTaggingOptions struct {
	Resolver GeoResolverInterface // Required
	Cookies  CookieSettings
	TTL      time.Duration // Optional: cookie lifetime, defaults to 24h
	Logger   *slog.Logger
}

// GeoTagging attaches a geo record to every request. A complete set of geo cookies is
// reused as-is; otherwise the record is resolved and written back as cookies.
// When the client goes away mid-resolution nothing is written and the chain stops.
func GeoTagging(opts GeoTaggingOptions) func(http.Handler) http.Handler {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultGeoCookieTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "geo_tagging")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rec, ok := recordFromCookies(r); ok {
				next.ServeHTTP(w, r.WithContext(setGeoInContext(r.Context(), rec, false)))
				return
			}

			rec, err := opts.Resolver.Resolve(r.Context(), service.GeoRequest{
				IP:        clientIP(r),
				UserAgent: r.UserAgent(),
				Edge:      edgeLocation(r.Header),
			})
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					logger.WarnContext(r.Context(), "geo resolution failed", "error", err)
				}
				return
			}

			writeGeoCookies(w, r, opts.Cookies, rec, ttl)
			next.ServeHTTP(w, r.WithContext(setGeoInContext(r.Context(), rec, true)))
		})
	}
}

// recordFromCookies rebuilds a record when every required geo cookie is present.
func recordFromCookies(r *http.Request) (geo.Record, bool) {
	var rec geo.Record
	required := []struct {
		name string
		dst  *string
	}{
		{CookieBrowser, &rec.Browser},
		{CookieOS, &rec.OS},
		{CookieDevice, &rec.Device},
		{CookieCountry, &rec.Country},
		{CookieCity, &rec.City},
	}
	for _, c := range required {
		v := unescapedCookie(r, c.name)
		if v == "" {
			return geo.Record{}, false
		}
		*c.dst = v
	}

	rec.CountryCode = unescapedCookie(r, CookieCountryCode)
	rec.Region = unescapedCookie(r, CookieRegion)
	lat, latOK := parseCoord(unescapedCookie(r, CookieLat))
	lon, lonOK := parseCoord(unescapedCookie(r, CookieLon))
	if latOK && lonOK {
		rec.Lat, rec.Lon = &lat, &lon
	}
	rec.IP = clientIP(r)
	return rec, true
}

func unescapedCookie(r *http.Request, name string) string {
	raw := cookieValue(r, name)
	if raw == "" {
		return ""
	}
	v, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return v
}

func writeGeoCookies(w http.ResponseWriter, r *http.Request, cookies CookieSettings, rec geo.Record, ttl time.Duration) {
	set := func(name, value string) {
		cookies.set(w, r, name, url.QueryEscape(value), ttl, false)
	}
	set(CookieBrowser, rec.Browser)
	set(CookieOS, rec.OS)
	set(CookieDevice, rec.Device)
	set(CookieCountry, rec.Country)
	set(CookieCity, rec.City)
	if rec.CountryCode != "" {
		set(CookieCountryCode, rec.CountryCode)
	}
	if rec.Region != "" {
		set(CookieRegion, rec.Region)
	}
	if rec.Location().HasCoordinates() {
		set(CookieLat, strconv.FormatFloat(*rec.Lat, 'f', -1, 64))
		set(CookieLon, strconv.FormatFloat(*rec.Lon, 'f', -1, 64))
	}
	if blob, err := encodeDeviceAnalytics(rec); err == nil {
		cookies.set(w, r, CookieDeviceAnalytics, blob, ttl, false)
	}
}

type deviceAnalytics struct {
	IP      string       `json:"ip,omitempty"`
	Browser string       `json:"browser"`
	Device  string       `json:"device"`
	OS      string       `json:"os"`
	Geo     geo.Location `json:"geo"`
}

// encodeDeviceAnalytics serialises the record as base64url JSON so it survives cookie quoting.
func encodeDeviceAnalytics(rec geo.Record) (string, error) {
	b, err := json.Marshal(deviceAnalytics{
		IP:      rec.IP,
		Browser: rec.Browser,
		Device:  rec.Device,
		OS:      rec.OS,
		Geo:     rec.Location(),
	})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// clientIP returns the first X-Forwarded-For entry, then X-Real-IP. The socket peer is
// deliberately ignored: behind the edge it is always the proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := normalizeIP(first); ip != "" {
			return ip
		}
	}
	return normalizeIP(r.Header.Get("X-Real-IP"))
}

func normalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	if net.ParseIP(raw) == nil {
		return ""
	}
	return raw
}

type edgeHeaderFamily struct {
	country, city, region, lat, lon string
}

var edgeFamilies = []edgeHeaderFamily{ //nolint:gochecknoglobals // read-only header table
	{"X-Vercel-IP-Country", "X-Vercel-IP-City", "X-Vercel-IP-Country-Region", "X-Vercel-IP-Latitude", "X-Vercel-IP-Longitude"},
	{"CF-IPCountry", "CF-IPCity", "CF-Region", "CF-IPLatitude", "CF-IPLongitude"},
}

// edgeLocation reads CDN-injected location headers. The first family that carries a
// country or city wins. Edge countries are ISO codes and fill both country fields.
func edgeLocation(h http.Header) geo.Location {
	for _, f := range edgeFamilies {
		country := strings.ToUpper(strings.TrimSpace(h.Get(f.country)))
		if country == "XX" || country == "T1" {
			country = ""
		}
		city := headerText(h, f.city)
		if country == "" && city == "" {
			continue
		}
		loc := geo.Location{
			Country:     country,
			CountryCode: country,
			City:        city,
			Region:      headerText(h, f.region),
		}
		lat, latOK := parseCoord(h.Get(f.lat))
		lon, lonOK := parseCoord(h.Get(f.lon))
		if latOK && lonOK {
			loc.Lat, loc.Lon = &lat, &lon
		}
		return loc
	}
	return geo.Location{}
}

func headerText(h http.Header, name string) string {
	v := strings.TrimSpace(h.Get(name))
	if u, err := url.QueryUnescape(v); err == nil {
		v = u
	}
	return v
}

func parseCoord(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

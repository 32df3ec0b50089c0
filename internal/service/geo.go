package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/versehub/console/internal/domain/geo"
	"github.com/versehub/console/internal/observability/metrics"
	"github.com/versehub/console/internal/ports"
)

// Geo resolver defaults.
const (
	DefaultGeoFallbackTimeout = 5 * time.Second
	DefaultGeoPrimaryTimeout  = 3 * time.Second

	geoCachePrefix = "geo:ip:"
)

// Provider labels used in logs and metrics.
const (
	geoProviderEdge     = "edge"
	geoProviderPrimary  = "primary"
	geoProviderFallback = "fallback"
	geoProviderEnhance  = "enhance"
)

// GeoResolverOptions groups dependencies for GeoResolver. Every provider is optional;
// a missing provider is skipped in the chain.
type GeoResolverOptions struct {
	Primary         ports.IPLocator
	Fallback        ports.CallerLocator
	Enhancer        ports.ReverseGeocoder
	Cache           ports.CacheRepository // Optional: primary lookups cached by IP
	CacheTTL        time.Duration
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
}

// GeoResolver produces a best-effort geo record for an inbound request.
type GeoResolver struct {
	primary         ports.IPLocator
	fallback        ports.CallerLocator
	enhancer        ports.ReverseGeocoder
	cache           ports.CacheRepository
	cacheTTL        time.Duration
	primaryTimeout  time.Duration
	fallbackTimeout time.Duration
	metrics         *metrics.Metrics
	logger          *slog.Logger
}

// NewGeoResolver constructs a GeoResolver.
func NewGeoResolver(opts GeoResolverOptions) *GeoResolver {
	r := &GeoResolver{
		primary:         opts.Primary,
		fallback:        opts.Fallback,
		enhancer:        opts.Enhancer,
		cache:           opts.Cache,
		cacheTTL:        opts.CacheTTL,
		primaryTimeout:  opts.PrimaryTimeout,
		fallbackTimeout: opts.FallbackTimeout,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
	}
	if r.primaryTimeout <= 0 {
		r.primaryTimeout = DefaultGeoPrimaryTimeout
	}
	if r.fallbackTimeout <= 0 {
		r.fallbackTimeout = DefaultGeoFallbackTimeout
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "geo_resolver")
	return r
}

// GeoRequest is what the resolver reads from an inbound request.
type GeoRequest struct {
	IP        string       // client address from forwarded headers; empty when absent
	UserAgent string
	Edge      geo.Location // country/city etc. injected by the CDN edge
}

// Resolve runs the lookup chain and returns a record with defaults applied.
// Provider failures degrade to Unknown/absent fields and are never returned.
// The only error is the context error when ctx ends before resolution completes;
// the caller must then discard the result.
func (r *GeoResolver) Resolve(ctx context.Context, req GeoRequest) (geo.Record, error) {
	agent := geo.ParseUserAgent(req.UserAgent)
	rec := geo.Record{
		IP:      req.IP,
		Browser: agent.Browser,
		OS:      agent.OS,
		Device:  agent.Device,
	}.Merge(req.Edge)

	if req.Edge.Country != "" && req.Edge.City != "" {
		r.metrics.GeoLookup(geoProviderEdge, metrics.ResultSkipped, nil)
		return rec.WithDefaults(), nil
	}

	loc, ok := r.lookup(ctx, req.IP)
	if err := ctx.Err(); err != nil {
		return geo.Record{}, err
	}
	if ok {
		rec = rec.Merge(loc)
	}
	return rec.WithDefaults(), nil
}

// lookup walks primary (when an IP is known), then the caller-address fallback.
func (r *GeoResolver) lookup(ctx context.Context, ip string) (geo.Location, bool) {
	if ip != "" && r.primary != nil {
		loc, err := r.lookupIP(ctx, ip)
		if err == nil {
			return loc, true
		}
		if ctx.Err() != nil {
			return geo.Location{}, false
		}
	}
	return r.lookupFallback(ctx)
}

func (r *GeoResolver) lookupIP(ctx context.Context, ip string) (geo.Location, error) {
	if loc, ok := r.cached(ctx, ip); ok {
		r.metrics.GeoLookup(geoProviderPrimary, metrics.ResultCached, nil)
		return loc, nil
	}

	pctx, cancel := context.WithTimeout(ctx, r.primaryTimeout)
	defer cancel()

	loc, err := r.primary.LookupIP(pctx, ip)
	if err != nil {
		r.metrics.GeoLookup(geoProviderPrimary, metrics.ResultError, err)
		r.logger.WarnContext(ctx, "primary geo lookup failed", "error", err)
		return geo.Location{}, err
	}
	r.metrics.GeoLookup(geoProviderPrimary, metrics.ResultSuccess, nil)
	r.store(ctx, ip, loc)
	return loc, nil
}

// lookupFallback asks the caller-address service with a bounded timeout and no retry,
// then tries the reverse-geocoding enhancement when coordinates are present.
func (r *GeoResolver) lookupFallback(ctx context.Context) (geo.Location, bool) {
	if r.fallback == nil {
		return geo.Location{}, false
	}

	fctx, cancel := context.WithTimeout(ctx, r.fallbackTimeout)
	defer cancel()

	loc, err := r.fallback.LookupCaller(fctx)
	if err != nil {
		r.metrics.GeoLookup(geoProviderFallback, metrics.ResultError, err)
		r.logger.WarnContext(ctx, "fallback geo lookup failed", "error", err)
		return geo.Location{}, false
	}
	r.metrics.GeoLookup(geoProviderFallback, metrics.ResultSuccess, nil)

	if loc.HasCoordinates() {
		if enhanced, err := r.enhance(fctx, loc); err == nil {
			return enhanced, true
		}
	}
	return loc, true
}

var errNoEnhancer = errors.New("no reverse geocoder configured")

// enhance refines base with the reverse geocoder. On error the caller keeps base unchanged.
func (r *GeoResolver) enhance(ctx context.Context, base geo.Location) (geo.Location, error) {
	if r.enhancer == nil {
		return base, errNoEnhancer
	}
	found, err := r.enhancer.Reverse(ctx, *base.Lat, *base.Lon)
	if err != nil {
		r.metrics.GeoLookup(geoProviderEnhance, metrics.ResultError, err)
		r.logger.DebugContext(ctx, "geo enhancement failed, keeping fallback result", "error", err)
		return base, err
	}
	r.metrics.GeoLookup(geoProviderEnhance, metrics.ResultSuccess, nil)
	return overlayLocation(base, found), nil
}

// overlayLocation prefers non-empty values from top. Coordinates stay with base when top has none.
func overlayLocation(base, top geo.Location) geo.Location {
	out := base
	if top.Country != "" {
		out.Country = top.Country
	}
	if top.CountryCode != "" {
		out.CountryCode = top.CountryCode
	}
	if top.City != "" {
		out.City = top.City
	}
	if top.Region != "" {
		out.Region = top.Region
	}
	if top.HasCoordinates() {
		out.Lat, out.Lon = top.Lat, top.Lon
	}
	return out
}

func (r *GeoResolver) cached(ctx context.Context, ip string) (geo.Location, bool) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return geo.Location{}, false
	}
	data, err := r.cache.Get(ctx, geoCachePrefix+ip)
	if err != nil {
		r.logger.DebugContext(ctx, "geo cache read failed", "error", err)
		return geo.Location{}, false
	}
	if len(data) == 0 {
		return geo.Location{}, false
	}
	var loc geo.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return geo.Location{}, false
	}
	return loc, true
}

func (r *GeoResolver) store(ctx context.Context, ip string, loc geo.Location) {
	if r.cache == nil || r.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, geoCachePrefix+ip, data, r.cacheTTL); err != nil {
		r.logger.DebugContext(ctx, "geo cache write failed", "error", err)
	}
}

// Package geoip implements the geolocation ports against JSON-over-HTTP lookup services.
// A provider is described entirely by configuration: a URL template plus JMESPath
// expressions selecting the success flag and each location field from the response.
package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/versehub/console/config"
	"github.com/versehub/console/internal/domain/geo"
)

const maxBody = 1 << 20

var (
	// ErrUnsuccessful is returned when the response body fails the success expression.
	ErrUnsuccessful = errors.New("geoip: provider reported failure")
	// ErrMissingIP is returned by LookupIP for templates that need an address when none is given.
	ErrMissingIP = errors.New("geoip: ip required")
)

// Options configures a Provider.
type Options struct {
	Name   string // label used in errors
	Config config.GeoProviderConfig
	Client *http.Client // Optional: timeouts come from the caller's context
}

// Provider is a configurable JSON geolocation client. It satisfies ports.IPLocator,
// ports.CallerLocator and ports.ReverseGeocoder; which one a provider serves is decided by
// the placeholders in its URL template.
type Provider struct {
	name    string
	tmpl    string
	client  *http.Client
	success jmespath.JMESPath
	fields  fieldExprs
}

type fieldExprs struct {
	country, countryCode, city, region, lat, lon jmespath.JMESPath
}

// New compiles the provider expressions. Empty field expressions are skipped at lookup time.
func New(opts Options) (*Provider, error) {
	cfg := opts.Config
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("geoip %s: url template required", opts.Name)
	}
	p := &Provider{name: opts.Name, tmpl: cfg.URL, client: opts.Client}
	if p.client == nil {
		p.client = http.DefaultClient
	}

	var err error
	compile := func(label, expr string) jmespath.JMESPath {
		if err != nil || strings.TrimSpace(expr) == "" {
			return nil
		}
		var c jmespath.JMESPath
		if c, err = jmespath.Compile(expr); err != nil {
			err = fmt.Errorf("geoip %s: %s expression %q: %w", opts.Name, label, expr, err)
		}
		return c
	}
	p.success = compile("success", cfg.Success)
	p.fields = fieldExprs{
		country:     compile("country", cfg.Country),
		countryCode: compile("country code", cfg.CountryCode),
		city:        compile("city", cfg.City),
		region:      compile("region", cfg.Region),
		lat:         compile("lat", cfg.Lat),
		lon:         compile("lon", cfg.Lon),
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LookupIP resolves an explicit address.
func (p *Provider) LookupIP(ctx context.Context, ip string) (geo.Location, error) {
	if ip == "" && strings.Contains(p.tmpl, "{ip}") {
		return geo.Location{}, ErrMissingIP
	}
	return p.fetch(ctx, strings.ReplaceAll(p.tmpl, "{ip}", url.PathEscape(ip)))
}

// LookupCaller resolves the location of the address the request originates from.
func (p *Provider) LookupCaller(ctx context.Context) (geo.Location, error) {
	return p.fetch(ctx, strings.ReplaceAll(p.tmpl, "{ip}", ""))
}

// Reverse resolves coordinates.
func (p *Provider) Reverse(ctx context.Context, lat, lon float64) (geo.Location, error) {
	u := strings.NewReplacer(
		"{lat}", strconv.FormatFloat(lat, 'f', -1, 64),
		"{lon}", strconv.FormatFloat(lon, 'f', -1, 64),
	).Replace(p.tmpl)
	return p.fetch(ctx, u)
}

func (p *Provider) fetch(ctx context.Context, target string) (geo.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return geo.Location{}, fmt.Errorf("geoip %s: build request: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return geo.Location{}, fmt.Errorf("geoip %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return geo.Location{}, fmt.Errorf("geoip %s: unexpected status %d", p.name, resp.StatusCode)
	}

	var body any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return geo.Location{}, fmt.Errorf("geoip %s: decode: %w", p.name, err)
	}
	return p.extract(body)
}

func (p *Provider) extract(body any) (geo.Location, error) {
	if p.success != nil {
		ok, err := p.success.Search(body)
		if err != nil || !truthy(ok) {
			return geo.Location{}, fmt.Errorf("%w (%s)", ErrUnsuccessful, p.name)
		}
	}

	loc := geo.Location{
		Country:     searchString(p.fields.country, body),
		CountryCode: searchString(p.fields.countryCode, body),
		City:        searchString(p.fields.city, body),
		Region:      searchString(p.fields.region, body),
	}
	lat, latOK := searchFloat(p.fields.lat, body)
	lon, lonOK := searchFloat(p.fields.lon, body)
	if latOK && lonOK {
		loc.Lat, loc.Lon = &lat, &lon
	}
	return loc, nil
}

func searchString(expr jmespath.JMESPath, body any) string {
	if expr == nil {
		return ""
	}
	v, err := expr.Search(body)
	if err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func searchFloat(expr jmespath.JMESPath, body any) (float64, bool) {
	if expr == nil {
		return 0, false
	}
	v, err := expr.Search(body)
	if err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

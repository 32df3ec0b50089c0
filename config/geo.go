package config

import (
	"strings"
	"time"
)

// GeoProviderConfig describes a JSON-over-HTTP geolocation provider.
// URL may contain {ip}, {lat} and {lon} placeholders. Field values are JMESPath expressions
// evaluated against the response body. Empty values are filled by Sanitize with the
// defaults for the provider slot.
type GeoProviderConfig struct {
	URL         string `env:"URL"`
	Success     string `env:"SUCCESS"`
	Country     string `env:"COUNTRY"`
	CountryCode string `env:"COUNTRY_CODE"`
	City        string `env:"CITY"`
	Region      string `env:"REGION"`
	Lat         string `env:"LAT"`
	Lon         string `env:"LON"`
}

func (p *GeoProviderConfig) fillFrom(def GeoProviderConfig) {
	set := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	set(&p.URL, def.URL)
	set(&p.Success, def.Success)
	set(&p.Country, def.Country)
	set(&p.CountryCode, def.CountryCode)
	set(&p.City, def.City)
	set(&p.Region, def.Region)
	set(&p.Lat, def.Lat)
	set(&p.Lon, def.Lon)
}

// Provider slot defaults.
var (
	DefaultGeoPrimary = GeoProviderConfig{
		URL:         "http://ip-api.com/json/{ip}",
		Success:     "status == 'success'",
		Country:     "country",
		CountryCode: "countryCode",
		City:        "city",
		Region:      "regionName",
		Lat:         "lat",
		Lon:         "lon",
	}
	DefaultGeoFallback = GeoProviderConfig{
		URL:         "https://ipapi.co/json/",
		Success:     "!error",
		Country:     "country_name",
		CountryCode: "country_code",
		City:        "city",
		Region:      "region",
		Lat:         "latitude",
		Lon:         "longitude",
	}
	DefaultGeoEnhance = GeoProviderConfig{
		URL:         "https://api.bigdatacloud.net/data/reverse-geocode-client?latitude={lat}&longitude={lon}&localityLanguage=en",
		Success:     "countryName",
		Country:     "countryName",
		CountryCode: "countryCode",
		City:        "city || locality",
		Region:      "principalSubdivision",
		Lat:         "latitude",
		Lon:         "longitude",
	}
)

// GeoConfig controls visitor geolocation tagging.
type GeoConfig struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`

	Primary  GeoProviderConfig `envPrefix:"PRIMARY_"`
	Fallback GeoProviderConfig `envPrefix:"FALLBACK_"`
	Enhance  GeoProviderConfig `envPrefix:"ENHANCE_"`

	// EnhanceEnabled toggles the reverse-geocoding step after a fallback lookup.
	EnhanceEnabled bool `env:"ENHANCE_ENABLED" envDefault:"true"`

	PrimaryTimeout  time.Duration `env:"PRIMARY_TIMEOUT"  envDefault:"3s"`
	FallbackTimeout time.Duration `env:"FALLBACK_TIMEOUT" envDefault:"5s"`
	CookieTTL       time.Duration `env:"COOKIE_TTL"       envDefault:"24h"`
	// CacheTTL is how long primary lookups are cached in Redis by IP. Zero disables the cache.
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

// Sanitize fills provider defaults and restores positive timeouts.
func (g *GeoConfig) Sanitize() {
	g.Primary.fillFrom(DefaultGeoPrimary)
	g.Fallback.fillFrom(DefaultGeoFallback)
	g.Enhance.fillFrom(DefaultGeoEnhance)

	if g.PrimaryTimeout <= 0 {
		g.PrimaryTimeout = 3 * time.Second
	}
	if g.FallbackTimeout <= 0 {
		g.FallbackTimeout = 5 * time.Second
	}
	if g.CookieTTL <= 0 {
		g.CookieTTL = 24 * time.Hour
	}
	if g.CacheTTL < 0 {
		g.CacheTTL = 0
	}
}

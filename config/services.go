package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeRetention runs the visitor analytics retention loop.
	ServiceModeRetention ServiceMode = "retention"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeHTTP, ServiceModeRetention}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeRetention:
			services[mode] = true
		default:
			return nil, fmt.Errorf("invalid service name: %q (valid options: http, retention)", serviceName)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// AnalyticsConfig controls visitor analytics persistence and the retention loop.
type AnalyticsConfig struct {
	// Enabled records each freshly resolved geo record as a visit in Postgres.
	Enabled bool `env:"ENABLED" envDefault:"false"`

	// RecordTimeout bounds the detached insert for one visit.
	RecordTimeout time.Duration `env:"RECORD_TIMEOUT" envDefault:"3s"`

	// RetentionMaxAge is the maximum age of a visit before the retention loop deletes it.
	RetentionMaxAge time.Duration `env:"RETENTION_MAX_AGE" envDefault:"2160h"` // 90 days

	// RetentionInterval is the retention tick interval.
	RetentionInterval time.Duration `env:"RETENTION_INTERVAL" envDefault:"1h"`

	// BatchSize is the maximum number of rows deleted per statement.
	BatchSize int `env:"RETENTION_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to analytics configuration values.
func (a *AnalyticsConfig) Sanitize() {
	if a.RecordTimeout <= 0 {
		a.RecordTimeout = 3 * time.Second
	}
	// Enforce minimum intervals to prevent excessive database load
	if a.RetentionInterval < time.Minute {
		a.RetentionInterval = time.Minute
	}
	if a.RetentionMaxAge < 24*time.Hour {
		a.RetentionMaxAge = 24 * time.Hour
	}
	if a.BatchSize <= 0 {
		a.BatchSize = 1000
	}
	if a.BatchSize > 10000 {
		a.BatchSize = 10000
	}
}

package ports

import (
	"context"

	"github.com/versehub/console/internal/domain/geo"
)

// IPLocator resolves an explicit IP address to a location.
type IPLocator interface {
	LookupIP(ctx context.Context, ip string) (geo.Location, error)
}

// CallerLocator resolves the location of the calling host without an explicit IP.
type CallerLocator interface {
	LookupCaller(ctx context.Context) (geo.Location, error)
}

// ReverseGeocoder resolves coordinates to a (usually more precise) location.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (geo.Location, error)
}

package httpx

import (
	"context"

	domainauth "github.com/versehub/console/internal/domain/auth"
	"github.com/versehub/console/internal/domain/geo"
)

// Context keys are unexported types to avoid collisions across packages.
type (
	sessionKey struct{}
	geoKey     struct{}
)

// SetSessionInContext returns a child context that carries the given session.
// If session is nil, the original ctx is returned unchanged.
func SetSessionInContext(ctx context.Context, session *domainauth.Session) context.Context {
	if session == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetUserSessionFromContext returns the user session from context and a boolean indicating presence.
func GetUserSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	if session, ok := ctx.Value(sessionKey{}).(*domainauth.Session); ok && session != nil {
		return session, true
	}
	return nil, false
}

type geoValue struct {
	record geo.Record
	fresh  bool // resolved by this request rather than rebuilt from cookies
}

func setGeoInContext(ctx context.Context, rec geo.Record, fresh bool) context.Context {
	return context.WithValue(ctx, geoKey{}, geoValue{record: rec, fresh: fresh})
}

// GeoRecordFromContext returns the geo record attached by GeoTagging.
func GeoRecordFromContext(ctx context.Context) (geo.Record, bool) {
	v, ok := ctx.Value(geoKey{}).(geoValue)
	return v.record, ok
}

func freshGeoFromContext(ctx context.Context) (geo.Record, bool) {
	v, ok := ctx.Value(geoKey{}).(geoValue)
	return v.record, ok && v.fresh
}

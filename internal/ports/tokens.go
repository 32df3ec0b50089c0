package ports

import (
	"context"
	"time"
)

// TokenPersistence is the fast local copy of the bearer credential for one client.
// Implementations are request scoped and need no locking.
type TokenPersistence interface {
	LoadToken() (string, bool)
	StoreToken(token string, ttl time.Duration)
	ClearToken()
}

// SessionTokenSource is the authoritative session provider consulted when the local copy is missing.
// An empty token with a nil error means the provider has no session.
type SessionTokenSource interface {
	SessionToken(ctx context.Context) (string, error)
}

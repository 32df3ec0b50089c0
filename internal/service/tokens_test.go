package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider is a SessionTokenSource backed by a field.
type fakeProvider struct {
	token string
	err   error
	calls int
	block bool
}

func (f *fakeProvider) SessionToken(ctx context.Context) (string, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.token, f.err
}

func signedJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenStore_SetGetRemove(t *testing.T) {
	local := NewMemoryTokens()
	store := NewTokenStore(TokenStoreOptions{Local: local})
	ctx := context.Background()

	store.SetToken("opaque-token", 0)
	tok, ok := store.GetToken(ctx)
	require.True(t, ok)
	assert.Equal(t, "opaque-token", tok)

	store.SetToken("second", time.Hour)
	tok, _ = store.GetToken(ctx)
	assert.Equal(t, "second", tok)

	store.RemoveToken()
	store.RemoveToken() // idempotent
	_, ok = store.GetToken(ctx)
	assert.False(t, ok)
}

func TestTokenStore_LocalTakesPrecedence(t *testing.T) {
	local := NewMemoryTokens()
	local.StoreToken("local", time.Hour)
	provider := &fakeProvider{token: "remote"}
	store := NewTokenStore(TokenStoreOptions{Local: local, Provider: provider})

	tok, ok := store.GetToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, "local", tok)
	assert.Zero(t, provider.calls)
}

func TestTokenStore_ProviderWriteThrough(t *testing.T) {
	local := NewMemoryTokens()
	provider := &fakeProvider{token: "remote"}
	store := NewTokenStore(TokenStoreOptions{Local: local, Provider: provider})

	tok, ok := store.GetToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, "remote", tok)

	cached, ok := local.LoadToken()
	require.True(t, ok, "provider token must be written to local persistence")
	assert.Equal(t, "remote", cached)

	// second read is served locally
	_, _ = store.GetToken(context.Background())
	assert.Equal(t, 1, provider.calls)
}

func TestTokenStore_ProviderFailureIsAbsent(t *testing.T) {
	local := NewMemoryTokens()
	store := NewTokenStore(TokenStoreOptions{Local: local, Provider: &fakeProvider{err: errors.New("redis down")}})

	tok, ok := store.GetToken(context.Background())
	assert.False(t, ok)
	assert.Empty(t, tok)
	_, cached := local.LoadToken()
	assert.False(t, cached)
}

func TestTokenStore_ProviderTimeout(t *testing.T) {
	store := NewTokenStore(TokenStoreOptions{
		Local:           NewMemoryTokens(),
		Provider:        &fakeProvider{block: true},
		ProviderTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	_, ok := store.GetToken(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestTokenStore_RemoveThenGetWithClearedProvider(t *testing.T) {
	provider := &fakeProvider{token: "remote"}
	store := NewTokenStore(TokenStoreOptions{Local: NewMemoryTokens(), Provider: provider})

	_, ok := store.GetToken(context.Background())
	require.True(t, ok)

	store.RemoveToken()
	provider.token = ""
	_, ok = store.GetToken(context.Background())
	assert.False(t, ok, "no stale credential may survive an explicit invalidation")
}

func TestTokenStore_ExpiredJWTIsAbsent(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	local := NewMemoryTokens()
	store := NewTokenStore(TokenStoreOptions{Local: local, Now: func() time.Time { return now }})

	store.SetToken(signedJWT(t, now.Add(-time.Minute)), time.Hour)
	_, ok := store.GetToken(context.Background())
	assert.False(t, ok)
	_, stillThere := local.LoadToken()
	assert.False(t, stillThere, "expired token is cleared from local persistence")

	fresh := signedJWT(t, now.Add(time.Hour))
	store.SetToken(fresh, time.Hour)
	tok, ok := store.GetToken(context.Background())
	require.True(t, ok)
	assert.Equal(t, fresh, tok)
}

func TestTokenStore_ExpiredProviderJWTNotWritten(t *testing.T) {
	now := time.Now()
	local := NewMemoryTokens()
	store := NewTokenStore(TokenStoreOptions{
		Local:    local,
		Provider: &fakeProvider{token: signedJWT(t, now.Add(-time.Hour))},
	})

	_, ok := store.GetToken(context.Background())
	assert.False(t, ok)
	_, cached := local.LoadToken()
	assert.False(t, cached)
}

func TestTokenStore_SetEmptyClears(t *testing.T) {
	local := NewMemoryTokens()
	store := NewTokenStore(TokenStoreOptions{Local: local})
	store.SetToken("x", time.Hour)
	store.SetToken("", time.Hour)
	_, ok := local.LoadToken()
	assert.False(t, ok)
}

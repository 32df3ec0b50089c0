package devauth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versehub/console/internal/ports"
)

func TestProvider_BeginAndExchange(t *testing.T) {
	prov, err := NewProvider(Config{UserID: "dev-user", Email: "dev@example.com", Name: "Dev", Groups: []string{"admins"}})
	require.NoError(t, err)

	url, state, nonce, err := prov.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/auth/sso/callback?"), url)
	assert.Contains(t, url, "state="+state)
	assert.Len(t, state, 24)
	assert.NotEmpty(t, nonce)

	id, err := prov.Exchange(context.Background(), ports.ExchangeInput{Code: "dev", State: state, Nonce: nonce})
	require.NoError(t, err)
	assert.Equal(t, "dev-user", id.SubjectID)
	assert.Equal(t, "dev@example.com", id.Email)
	assert.Equal(t, "dev-token", id.Token)
	assert.Equal(t, []string{"admins"}, id.Groups)

	// callers cannot mutate the configured groups
	id.Groups[0] = "x"
	again, err := prov.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Equal(t, []string{"admins"}, again.Groups)
}

func TestNewProvider_Validation(t *testing.T) {
	_, err := NewProvider(Config{Email: "a@b"})
	require.Error(t, err)
	_, err = NewProvider(Config{UserID: "u"})
	require.Error(t, err)
}

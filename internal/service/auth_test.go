package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versehub/console/internal/adapters/authroles"
	domainauth "github.com/versehub/console/internal/domain/auth"
	mocks "github.com/versehub/console/internal/mocks/auth"
	"github.com/versehub/console/internal/ports"
)

// mockSessionStore is a test helper for testing session store errors.
type mockSessionStore struct {
	saveFunc   func(context.Context, domainauth.Session) error
	getFunc    func(context.Context, string) (domainauth.Session, error)
	deleteFunc func(context.Context, string) error
}

func (m *mockSessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, sess)
	}
	return nil
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return domainauth.Session{}, nil
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func newSSOService(provider ports.AuthProvider, sessions ports.SessionStore) *AuthService {
	return NewAuthService(AuthServiceOptions{
		Provider: provider,
		Sessions: sessions,
		Roles:    authroles.StaticRoleMapper{AdminGroup: "admins"},
	})
}

func TestAuthService_BeginLogin_Success(t *testing.T) {
	service := newSSOService(mocks.NewMockAuthProvider(), mocks.NewMemorySessionStore())

	result, err := service.BeginLogin(context.Background(), "http://localhost:8080/auth/sso/callback")

	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", result.AuthURL)
	assert.Equal(t, "state-1", result.State)
	assert.Equal(t, "nonce-1", result.Nonce)
}

func TestAuthService_BeginLogin_Errors(t *testing.T) {
	service := newSSOService(mocks.NewMockAuthProvider(), mocks.NewMemorySessionStore())
	_, err := service.BeginLogin(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redirect URL is required")

	failing := newSSOService(&mocks.MockAuthProvider{
		BeginFunc: func(context.Context, ports.BeginInput) (string, string, string, error) {
			return "", "", "", errors.New("provider error")
		},
	}, mocks.NewMemorySessionStore())
	_, err = failing.BeginLogin(context.Background(), "http://localhost/cb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin auth flow")

	passwordOnly := NewAuthService(AuthServiceOptions{Sessions: mocks.NewMemorySessionStore()})
	_, err = passwordOnly.BeginLogin(context.Background(), "http://localhost/cb")
	assert.ErrorIs(t, err, ErrModeDisabled)
}

func TestAuthService_CompleteLogin_MapsGroupsToRole(t *testing.T) {
	provider := mocks.NewMockAuthProvider()
	provider.DefaultUser.Groups = []string{"admins"}
	sessions := mocks.NewMemorySessionStore()
	service := newSSOService(provider, sessions)

	result, err := service.CompleteLogin(context.Background(), CompleteLoginInput{Code: "c", State: "s", Nonce: "n"})

	require.NoError(t, err)
	assert.NotEmpty(t, result.Session.ID)
	assert.Equal(t, domainauth.RoleAdmin, result.Session.RoleID)
	assert.Equal(t, "mock-id-token", result.Session.Token)

	stored, err := sessions.Get(context.Background(), result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Session, stored)
}

func TestAuthService_CompleteLogin_ValidatesInput(t *testing.T) {
	service := newSSOService(mocks.NewMockAuthProvider(), mocks.NewMemorySessionStore())

	for _, in := range []CompleteLoginInput{
		{State: "s", Nonce: "n"},
		{Code: "c", Nonce: "n"},
		{Code: "c", State: "s"},
	} {
		_, err := service.CompleteLogin(context.Background(), in)
		require.Error(t, err)
	}
}

func TestAuthService_LoginWithPassword(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := mocks.NewMemorySessionStore()
	service := NewAuthService(AuthServiceOptions{
		Credentials: &mocks.MockCredentialExchanger{
			Email:    "editor@example.com",
			Password: "hunter2",
			Identity: domainauth.Identity{SubjectID: "u-7", RoleID: 2, Email: "editor@example.com", Token: "tok-7"},
		},
		Sessions: sessions,
		Now:      func() time.Time { return now },
	})

	sess, err := service.LoginWithPassword(context.Background(), ports.Credentials{Email: " editor@example.com ", Password: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, "u-7", sess.SubjectID)
	assert.Equal(t, "tok-7", sess.Token)
	assert.False(t, sess.IsAdmin())
	assert.Equal(t, now.Add(DefaultSessionTTL), sess.ExpiresAt)
	assert.Equal(t, []string{sess.ID}, sessions.IDs())

	_, err = service.LoginWithPassword(context.Background(), ports.Credentials{Email: "editor@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, mocks.ErrBadCredentials)

	_, err = service.LoginWithPassword(context.Background(), ports.Credentials{Email: "", Password: "x"})
	require.Error(t, err)
}

func TestAuthService_LoginWithPassword_RequiresToken(t *testing.T) {
	service := NewAuthService(AuthServiceOptions{
		Credentials: &mocks.MockCredentialExchanger{Email: "a@b.c", Password: "p", Identity: domainauth.Identity{SubjectID: "u"}},
		Sessions:    mocks.NewMemorySessionStore(),
	})

	_, err := service.LoginWithPassword(context.Background(), ports.Credentials{Email: "a@b.c", Password: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
}

func TestAuthService_GetSession_Expired(t *testing.T) {
	now := time.Now()
	deleted := ""
	store := &mockSessionStore{
		getFunc: func(context.Context, string) (domainauth.Session, error) {
			return domainauth.Session{ID: "old", ExpiresAt: now.Add(-time.Minute)}, nil
		},
		deleteFunc: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	service := NewAuthService(AuthServiceOptions{Sessions: store})

	_, err := service.GetSession(context.Background(), "old")
	require.Error(t, err)
	assert.Equal(t, "old", deleted)

	_, err = service.GetSession(context.Background(), "")
	require.Error(t, err)
}

func TestAuthService_Refresh(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	profiles := &mocks.MockProfileFetcher{
		Identity: domainauth.Identity{SubjectID: "u-1", RoleID: domainauth.RoleAdmin, Name: "Promoted", Token: "rotated"},
	}
	service := NewAuthService(AuthServiceOptions{Sessions: sessions, Profiles: profiles})

	orig := domainauth.Session{ID: "s1", SubjectID: "u-1", RoleID: 2, Email: "e@x", Name: "Old", Token: "t0", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sessions.Save(context.Background(), orig))

	updated, err := service.Refresh(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())
	assert.Equal(t, "Promoted", updated.Name)
	assert.Equal(t, "e@x", updated.Email)
	assert.Equal(t, "rotated", updated.Token)
	assert.Equal(t, orig.ExpiresAt, updated.ExpiresAt)

	tok, err := service.SessionToken(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "rotated", tok)
}

func TestAuthService_Refresh_KeepsRoleWhenProfileOmitsIt(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	profiles := &mocks.MockProfileFetcher{
		Identity: domainauth.Identity{SubjectID: "u-1", Name: "Renamed"},
	}
	service := NewAuthService(AuthServiceOptions{Sessions: sessions, Profiles: profiles})
	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{
		ID: "s1", SubjectID: "u-1", RoleID: domainauth.RoleAdmin, Token: "t0", ExpiresAt: time.Now().Add(time.Hour),
	}))

	updated, err := service.Refresh(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())
	assert.Equal(t, "Renamed", updated.Name)

	stored, err := sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, stored.RoleID)
}

func TestAuthService_Refresh_ProfileError(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{ID: "s1", Token: "t", ExpiresAt: time.Now().Add(time.Hour)}))
	service := NewAuthService(AuthServiceOptions{
		Sessions: sessions,
		Profiles: &mocks.MockProfileFetcher{FetchFunc: func(context.Context, string) (domainauth.Identity, error) {
			return domainauth.Identity{}, errors.New("backend down")
		}},
	})

	_, err := service.Refresh(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch profile")
}

func TestAuthService_Logout(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	service := NewAuthService(AuthServiceOptions{Sessions: sessions})
	require.NoError(t, sessions.Save(context.Background(), domainauth.Session{ID: "s1", ExpiresAt: time.Now().Add(time.Hour)}))

	require.NoError(t, service.Logout(context.Background(), "s1"))
	require.NoError(t, service.Logout(context.Background(), ""))
	assert.Empty(t, sessions.IDs())

	failing := NewAuthService(AuthServiceOptions{Sessions: &mockSessionStore{
		deleteFunc: func(context.Context, string) error { return errors.New("redis down") },
	}})
	err := failing.Logout(context.Background(), "s1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete session")
}

func TestAuthService_SessionToken(t *testing.T) {
	sessions := mocks.NewMemorySessionStore()
	service := NewAuthService(AuthServiceOptions{Sessions: sessions})

	tok, err := service.SessionToken(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, tok)

	tok, err = service.SessionToken(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, tok)

	broken := NewAuthService(AuthServiceOptions{Sessions: &mockSessionStore{
		getFunc: func(context.Context, string) (domainauth.Session, error) {
			return domainauth.Session{}, errors.New("redis down")
		},
	}})
	_, err = broken.SessionToken(context.Background(), "s1")
	require.Error(t, err)
}

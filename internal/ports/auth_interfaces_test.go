package ports_test

import (
	"testing"

	"github.com/versehub/console/internal/adapters/authroles"
	mocks "github.com/versehub/console/internal/mocks/auth"
	"github.com/versehub/console/internal/ports"
)

// This test only verifies that our mocks conform to the ports at compile time.
func TestMocksImplementPorts(t *testing.T) {
	t.Helper()

	var _ ports.AuthProvider = (*mocks.MockAuthProvider)(nil)
	var _ ports.CredentialExchanger = (*mocks.MockCredentialExchanger)(nil)
	var _ ports.ProfileFetcher = (*mocks.MockProfileFetcher)(nil)
	var _ ports.SessionStore = (*mocks.MemorySessionStore)(nil)
	var _ ports.RoleMapper = authroles.StaticRoleMapper{}
}

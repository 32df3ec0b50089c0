package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions_Embedded(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, "001_visits", versions[0])

	for _, v := range versions {
		body, err := migrationsFS.ReadFile("migrations/" + v + ".sql")
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(body), "IF NOT EXISTS"), "%s should be idempotent", v)
	}
}

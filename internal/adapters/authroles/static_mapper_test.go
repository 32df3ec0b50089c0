package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/versehub/console/internal/domain/auth"
)

func TestStaticRoleMapper(t *testing.T) {
	m := StaticRoleMapper{AdminGroup: "admins"}

	assert.Equal(t, domainauth.RoleAdmin, m.Map([]string{"editors", "admins"}))
	assert.Equal(t, domainauth.RoleStandard, m.Map([]string{"editors"}))
	assert.Equal(t, domainauth.RoleStandard, m.Map(nil))
	assert.Equal(t, domainauth.RoleStandard, StaticRoleMapper{}.Map([]string{""}))
}

package authroles

import (
	domainauth "github.com/versehub/console/internal/domain/auth"
)

// StaticRoleMapper maps IdP groups onto backend role ids by simple string membership.
// Membership in AdminGroup yields the administrator role id; anything else is a standard principal.
type StaticRoleMapper struct {
	AdminGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.RoleID {
	for _, g := range groups {
		if m.AdminGroup != "" && g == m.AdminGroup {
			return domainauth.RoleAdmin
		}
	}
	return domainauth.RoleStandard
}

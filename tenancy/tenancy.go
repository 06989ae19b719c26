// Package tenancy restricts role, assignment and grant queries to the
// caller's active tenant. Every transformer is pure: it never touches the
// store and returns a copy of its input.
package tenancy

import (
	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/role"
)

// Global is the tenant ID of roles that belong to no tenant.
const Global = ""

// Scoper applies tenant scoping rules.
type Scoper struct {
	// Enabled turns scoping on. When false every transformer returns its
	// input unchanged.
	Enabled bool

	// IncludeGlobal makes global roles visible inside every tenant.
	IncludeGlobal bool
}

// Roles restricts a role filter to the roles visible in active. With
// scoping enabled and no active tenant the result matches nothing.
func (s Scoper) Roles(filter role.ListFilter, active string) role.ListFilter {
	if !s.Enabled {
		return filter
	}
	filter.Scoped = true
	filter.TenantIDs = s.roleTenants(active)
	return filter
}

// Assignments restricts an assignment filter to the active tenant.
func (s Scoper) Assignments(filter assignment.ListFilter, active string) assignment.ListFilter {
	if !s.Enabled {
		return filter
	}
	filter.Scoped = true
	filter.TenantIDs = s.edgeTenants(active)
	return filter
}

// Grants restricts a grant filter to the active tenant.
func (s Scoper) Grants(filter grant.ListFilter, active string) grant.ListFilter {
	if !s.Enabled {
		return filter
	}
	filter.Scoped = true
	filter.TenantIDs = s.edgeTenants(active)
	return filter
}

// Permits reports whether a role owned by roleTenant is visible in active.
func (s Scoper) Permits(roleTenant, active string) bool {
	if !s.Enabled {
		return true
	}
	if active == "" {
		return false
	}
	if roleTenant == active {
		return true
	}
	return roleTenant == Global && s.IncludeGlobal
}

// EdgeTenant returns the tenant an assignment or grant made in active is
// recorded under.
func (s Scoper) EdgeTenant(active string) string {
	if !s.Enabled {
		return Global
	}
	return active
}

func (s Scoper) roleTenants(active string) []string {
	if active == "" {
		return []string{}
	}
	if s.IncludeGlobal {
		return []string{active, Global}
	}
	return []string{active}
}

func (s Scoper) edgeTenants(active string) []string {
	if active == "" {
		return []string{}
	}
	return []string{active}
}

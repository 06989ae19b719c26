// Package plugin defines lifecycle hooks for the warrant engine. Plugins
// observe checks and mutations (roles created, permissions attached,
// subjects granted) to log, count or mirror them elsewhere.
//
// Each hook is its own interface, so a plugin implements only the events
// it needs.
package plugin

import (
	"context"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// BeforeCheck is called before a check is evaluated. req is a
// *warrant.CheckRequest, passed as any to avoid an import cycle.
type BeforeCheck interface {
	OnBeforeCheck(ctx context.Context, req any) error
}

// AfterCheck is called after a check completes. req is a
// *warrant.CheckRequest and result a *warrant.CheckResult.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, result any) error
}

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is renamed.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// PermissionCreated is called after a permission is created or imported.
type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

// PermissionDeleted is called after a permission is deleted.
type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, permID id.PermissionID) error
}

// PermissionAttached is called after a permission is attached to a role.
type PermissionAttached interface {
	OnPermissionAttached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error
}

// PermissionDetached is called after a permission is detached from a role.
type PermissionDetached interface {
	OnPermissionDetached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) error
}

// RoleAssigned is called after a role is assigned to a subject.
type RoleAssigned interface {
	OnRoleAssigned(ctx context.Context, a *assignment.Assignment) error
}

// RoleUnassigned is called after a role is removed from a subject.
type RoleUnassigned interface {
	OnRoleUnassigned(ctx context.Context, a *assignment.Assignment) error
}

// PermissionGranted is called after a permission is granted to a subject.
type PermissionGranted interface {
	OnPermissionGranted(ctx context.Context, g *grant.Grant) error
}

// PermissionRevoked is called after a direct grant is removed.
type PermissionRevoked interface {
	OnPermissionRevoked(ctx context.Context, g *grant.Grant) error
}

// Shutdown is called when the engine stops.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}

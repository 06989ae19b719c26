package role

import (
	"context"

	"github.com/xraph/warrant/id"
)

// Store defines persistence operations for roles and role→permission edges.
type Store interface {
	// CreateRole persists a new role. A (name, guard, tenant) collision
	// fails with a conflict.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a role by its unique key.
	GetRoleByName(ctx context.Context, guard, tenantID, name string) (*Role, error)

	// UpdateRole persists a renamed role.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRoles removes roles, their permission edges and every
	// assignment to them, atomically.
	DeleteRoles(ctx context.Context, roleIDs []id.RoleID) error

	// ListRoles returns roles matching the filter ordered by name, with
	// PermissionCount set.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// ListRolesByPermission returns the roles matching the filter that the
	// permission is attached to, ordered by name.
	ListRolesByPermission(ctx context.Context, permID id.PermissionID, filter *ListFilter) ([]*Role, error)

	// CountRoles returns the number of roles matching the filter.
	CountRoles(ctx context.Context, filter *ListFilter) (int64, error)

	// ListRolePermissions returns the permission IDs attached to a role.
	ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error)

	// UpdatePermissionEdges adds attach and removes detach in one atomic
	// write. Adding an existing edge or removing a missing one is a no-op.
	UpdatePermissionEdges(ctx context.Context, attach, detach []Edge) error
}

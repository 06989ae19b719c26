package permission

import (
	"context"

	"github.com/xraph/warrant/id"
)

// Store defines persistence operations for permissions.
type Store interface {
	// CreatePermissions persists new permissions in one atomic write.
	// A (name, guard) collision fails the whole call.
	CreatePermissions(ctx context.Context, ps []*Permission) error

	// GetPermission retrieves a permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissionByName retrieves a permission by guard and name.
	GetPermissionByName(ctx context.Context, guard, name string) (*Permission, error)

	// DeletePermissions removes permissions together with their role edges
	// and direct grants, atomically.
	DeletePermissions(ctx context.Context, permIDs []id.PermissionID) error

	// ListPermissions returns permissions matching the filter, ordered by name.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// CountPermissions returns the number of permissions matching the filter.
	CountPermissions(ctx context.Context, filter *ListFilter) (int64, error)

	// ListPermissionsByRole returns the permissions attached to a role,
	// ordered by name.
	ListPermissionsByRole(ctx context.Context, roleID id.RoleID) ([]*Permission, error)
}

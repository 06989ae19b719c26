// Package role defines the Role entity, its permission edges and its store
// interface.
package role

import (
	"slices"
	"strings"
	"time"

	"github.com/xraph/warrant/id"
)

// Role groups permissions of a single guard. TenantID is empty for roles in
// the global bucket. Guard never changes after creation.
type Role struct {
	ID        id.RoleID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Guard     string    `json:"guard" db:"guard"`
	TenantID  string    `json:"tenant_id,omitempty" db:"tenant_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// PermissionCount is filled by ListRoles.
	PermissionCount int `json:"permission_count" db:"-"`
}

// Edge links a role to a permission.
type Edge struct {
	RoleID       id.RoleID       `json:"role_id"`
	PermissionID id.PermissionID `json:"permission_id"`
}

// ListFilter contains filters for listing roles. Results are always ordered
// by name.
type ListFilter struct {
	Guard string `json:"guard,omitempty"`

	// Scoped restricts results to TenantIDs. A scoped filter with no
	// tenant IDs matches nothing; the empty string selects global roles.
	Scoped    bool     `json:"scoped,omitempty"`
	TenantIDs []string `json:"tenant_ids,omitempty"`

	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Matches reports whether r satisfies the filter, ignoring pagination.
func (f *ListFilter) Matches(r *Role) bool {
	if f == nil {
		return true
	}
	if f.Guard != "" && r.Guard != f.Guard {
		return false
	}
	if f.Scoped && !slices.Contains(f.TenantIDs, r.TenantID) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

// Empty reports whether the filter can never match.
func (f *ListFilter) Empty() bool { return f != nil && f.Scoped && len(f.TenantIDs) == 0 }

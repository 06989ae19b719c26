package api

import "github.com/xraph/warrant/discovery"

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for an authorization check.
type CheckRequest struct {
	SubjectKind string `json:"subject_kind" validate:"required" description:"Subject type (user, api_key, service)"`
	SubjectID   string `json:"subject_id" validate:"required" description:"Subject identifier"`
	Guard       string `json:"guard,omitempty" description:"Guard the subject authenticates with (default guard when empty)"`
	TenantID    string `json:"tenant_id,omitempty" description:"Active tenant (forge scope org when empty)"`
	Permission  string `json:"permission" validate:"required" description:"Permission name"`
}

// ──────────────────────────────────────────────────
// Permission requests
// ──────────────────────────────────────────────────

// CreatePermissionRequest is the body for creating a permission.
type CreatePermissionRequest struct {
	Name  string `json:"name" validate:"required" description:"Permission name (e.g. update Post)"`
	Guard string `json:"guard,omitempty" description:"Guard (default guard when empty)"`
}

// GetPermissionRequest is the path parameter for getting a permission.
type GetPermissionRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
}

// PermissionRolesRequest lists the roles holding a permission.
type PermissionRolesRequest struct {
	PermissionID string `path:"permissionId" description:"Permission ID"`
	TenantID     string `query:"tenant_id" description:"Active tenant (forge scope org when empty)"`
}

// ListPermissionsRequest holds query parameters.
type ListPermissionsRequest struct {
	Guard     string   `query:"guard" description:"Filter by guard"`
	Search    string   `query:"search" description:"Search by name"`
	Resources []string `query:"resource" description:"Filter by resource name suffix (repeatable)"`
	Limit     int      `query:"limit" description:"Maximum results (default: 50)"`
	Offset    int      `query:"offset" description:"Results to skip"`
}

// BulkIDsRequest carries a list of IDs for bulk actions.
type BulkIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1" description:"IDs to act on"`
}

// ImportPermissionsRequest is the body for importing discovered permissions.
type ImportPermissionsRequest struct {
	Candidates []discovery.Candidate `json:"candidates" validate:"required,min=1" description:"Permissions to create"`
}

// ──────────────────────────────────────────────────
// Role requests
// ──────────────────────────────────────────────────

// CreateRoleRequest is the body for creating a role.
type CreateRoleRequest struct {
	Name     string `json:"name" validate:"required" description:"Role name"`
	Guard    string `json:"guard,omitempty" description:"Guard (default guard when empty)"`
	TenantID string `json:"tenant_id,omitempty" description:"Owning tenant; empty for the global bucket"`
}

// UpdateRoleRequest is the body for updating a role.
type UpdateRoleRequest struct {
	Name  string `json:"name,omitempty" description:"New role name"`
	Guard string `json:"guard,omitempty" description:"Must equal the current guard"`
}

// GetRoleRequest is the path parameter for getting a role.
type GetRoleRequest struct {
	RoleID string `path:"roleId" description:"Role ID"`
}

// ListRolesRequest holds query parameters for listing roles.
type ListRolesRequest struct {
	TenantID string `query:"tenant_id" description:"Active tenant (forge scope org when empty)"`
	Guard    string `query:"guard" description:"Filter by guard"`
	Search   string `query:"search" description:"Search by name"`
	Limit    int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset   int    `query:"offset" description:"Results to skip"`
}

// RolePermissionsRequest carries the permission IDs for a role edge change.
type RolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" description:"Permission IDs"`
}

// AttachToRolesRequest is the body for attaching permissions to many roles.
type AttachToRolesRequest struct {
	RoleIDs       []string `json:"role_ids" validate:"required,min=1" description:"Role IDs"`
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1" description:"Permission IDs"`
}

// ──────────────────────────────────────────────────
// Subject requests
// ──────────────────────────────────────────────────

// SubjectQuery holds the guard and tenant of a subject route.
type SubjectQuery struct {
	Guard    string `query:"guard" description:"Subject guard (default guard when empty)"`
	TenantID string `query:"tenant_id" description:"Active tenant (forge scope org when empty)"`
}

// GrantRoleRequest is the body for granting one role to a subject.
type GrantRoleRequest struct {
	RoleID   string `json:"role_id" validate:"required" description:"Role ID"`
	Guard    string `json:"guard,omitempty" description:"Subject guard"`
	TenantID string `json:"tenant_id,omitempty" description:"Active tenant"`
}

// GrantRolesRequest is the body for granting several roles at once.
type GrantRolesRequest struct {
	RoleIDs  []string `json:"role_ids" validate:"required,min=1" description:"Role IDs"`
	Guard    string   `json:"guard,omitempty" description:"Subject guard"`
	TenantID string   `json:"tenant_id,omitempty" description:"Active tenant"`
}

// GrantPermissionRequest is the body for a direct permission grant.
type GrantPermissionRequest struct {
	PermissionID string `json:"permission_id" validate:"required" description:"Permission ID"`
	Guard        string `json:"guard,omitempty" description:"Subject guard"`
	TenantID     string `json:"tenant_id,omitempty" description:"Active tenant"`
}

// BatchCheckRequest evaluates several checks in one request.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" validate:"required,min=1,dive" description:"Checks to evaluate"`
}

package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
)

// ──────────────────────────────────────────────────
// Role model
// ──────────────────────────────────────────────────

type roleModel struct {
	grove.BaseModel `grove:"table:warrant_roles"`
	ID              string    `grove:"id,pk" bson:"_id"`
	Name            string    `grove:"name" bson:"name"`
	Guard           string    `grove:"guard" bson:"guard"`
	TenantID        string    `grove:"tenant_id" bson:"tenant_id"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at" bson:"updated_at"`
}

func roleToModel(r *role.Role) *roleModel {
	return &roleModel{
		ID:        r.ID.String(),
		Name:      r.Name,
		Guard:     r.Guard,
		TenantID:  r.TenantID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func roleFromModel(m *roleModel) *role.Role {
	rid, _ := id.ParseRoleID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &role.Role{
		ID:        rid,
		Name:      m.Name,
		Guard:     m.Guard,
		TenantID:  m.TenantID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Permission model
// ──────────────────────────────────────────────────

type permissionModel struct {
	grove.BaseModel `grove:"table:warrant_permissions"`
	ID              string    `grove:"id,pk" bson:"_id"`
	Name            string    `grove:"name" bson:"name"`
	Guard           string    `grove:"guard" bson:"guard"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `grove:"updated_at" bson:"updated_at"`
}

func permissionToModel(p *permission.Permission) permissionModel {
	return permissionModel{
		ID:        p.ID.String(),
		Name:      p.Name,
		Guard:     p.Guard,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func permissionFromModel(m *permissionModel) *permission.Permission {
	pid, _ := id.ParsePermissionID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &permission.Permission{
		ID:        pid,
		Name:      m.Name,
		Guard:     m.Guard,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ──────────────────────────────────────────────────
// Role-permission edge model
// ──────────────────────────────────────────────────

type rolePermissionModel struct {
	grove.BaseModel `grove:"table:warrant_role_permissions"`
	RoleID          string `grove:"role_id,pk" bson:"role_id"`
	PermissionID    string `grove:"permission_id,pk" bson:"permission_id"`
}

func edgeToModel(e role.Edge) rolePermissionModel {
	return rolePermissionModel{RoleID: e.RoleID.String(), PermissionID: e.PermissionID.String()}
}

// ──────────────────────────────────────────────────
// Assignment model
// ──────────────────────────────────────────────────

type assignmentModel struct {
	grove.BaseModel `grove:"table:warrant_assignments"`
	ID              string    `grove:"id,pk" bson:"_id"`
	TenantID        string    `grove:"tenant_id" bson:"tenant_id"`
	RoleID          string    `grove:"role_id" bson:"role_id"`
	Guard           string    `grove:"guard" bson:"guard"`
	SubjectKind     string    `grove:"subject_kind" bson:"subject_kind"`
	SubjectID       string    `grove:"subject_id" bson:"subject_id"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
}

func assignmentToModel(a *assignment.Assignment) assignmentModel {
	return assignmentModel{
		ID:          a.ID.String(),
		TenantID:    a.TenantID,
		RoleID:      a.RoleID.String(),
		Guard:       a.Guard,
		SubjectKind: a.SubjectKind,
		SubjectID:   a.SubjectID,
		CreatedAt:   a.CreatedAt,
	}
}

func assignmentFromModel(m *assignmentModel) *assignment.Assignment {
	aid, _ := id.ParseAssignmentID(m.ID) //nolint:errcheck // stored IDs are always valid
	rid, _ := id.ParseRoleID(m.RoleID)   //nolint:errcheck // stored IDs are always valid
	return &assignment.Assignment{
		ID:          aid,
		TenantID:    m.TenantID,
		RoleID:      rid,
		Guard:       m.Guard,
		SubjectKind: m.SubjectKind,
		SubjectID:   m.SubjectID,
		CreatedAt:   m.CreatedAt,
	}
}

// ──────────────────────────────────────────────────
// Grant model
// ──────────────────────────────────────────────────

type grantModel struct {
	grove.BaseModel `grove:"table:warrant_grants"`
	ID              string    `grove:"id,pk" bson:"_id"`
	TenantID        string    `grove:"tenant_id" bson:"tenant_id"`
	PermissionID    string    `grove:"permission_id" bson:"permission_id"`
	Guard           string    `grove:"guard" bson:"guard"`
	SubjectKind     string    `grove:"subject_kind" bson:"subject_kind"`
	SubjectID       string    `grove:"subject_id" bson:"subject_id"`
	CreatedAt       time.Time `grove:"created_at" bson:"created_at"`
}

func grantToModel(g *grant.Grant) grantModel {
	return grantModel{
		ID:           g.ID.String(),
		TenantID:     g.TenantID,
		PermissionID: g.PermissionID.String(),
		Guard:        g.Guard,
		SubjectKind:  g.SubjectKind,
		SubjectID:    g.SubjectID,
		CreatedAt:    g.CreatedAt,
	}
}

func grantFromModel(m *grantModel) *grant.Grant {
	gid, _ := id.ParseGrantID(m.ID)                //nolint:errcheck // stored IDs are always valid
	pid, _ := id.ParsePermissionID(m.PermissionID) //nolint:errcheck // stored IDs are always valid
	return &grant.Grant{
		ID:           gid,
		TenantID:     m.TenantID,
		PermissionID: pid,
		Guard:        m.Guard,
		SubjectKind:  m.SubjectKind,
		SubjectID:    m.SubjectID,
		CreatedAt:    m.CreatedAt,
	}
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("roles"))

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a role in a guard, optionally owned by a tenant."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(CreateRoleRequest{}),
		forge.WithCreatedResponse(&role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/bulk-delete", a.bulkDeleteRoles,
		forge.WithSummary("Bulk delete roles"),
		forge.WithDescription("Deletes all given roles or none. Permission edges and assignments cascade."),
		forge.WithOperationID("bulkDeleteRoles"),
		forge.WithRequestSchema(BulkIDsRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/attach-permissions", a.attachPermissionsToRoles,
		forge.WithSummary("Attach permissions to roles"),
		forge.WithDescription("Attaches every permission to every role. Rejects the whole batch if any pair is invalid."),
		forge.WithOperationID("attachPermissionsToRoles"),
		forge.WithRequestSchema(AttachToRolesRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId", a.getRole,
		forge.WithSummary("Get role"),
		forge.WithDescription("Returns details of a specific role."),
		forge.WithOperationID("getRole"),
		forge.WithResponseSchema(http.StatusOK, "Role details", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId", a.updateRole,
		forge.WithSummary("Update role"),
		forge.WithDescription("Renames a role. The guard cannot change."),
		forge.WithOperationID("updateRole"),
		forge.WithRequestSchema(UpdateRoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Deletes a role with its permission edges and assignments."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles", a.listRoles,
		forge.WithSummary("List roles"),
		forge.WithDescription("Lists the roles visible in a tenant, ordered by name, with permission counts."),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role list", ListResponse[*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles/:roleId/permissions", a.listRolePermissions,
		forge.WithSummary("List role permissions"),
		forge.WithOperationID("listRolePermissions"),
		forge.WithResponseSchema(http.StatusOK, "Role permissions", []*permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/:roleId/permissions", a.assignRolePermissions,
		forge.WithSummary("Assign permissions to role"),
		forge.WithDescription("Adds permissions to a role. Already present permissions are ignored."),
		forge.WithOperationID("assignRolePermissions"),
		forge.WithRequestSchema(RolePermissionsRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.PUT("/roles/:roleId/permissions", a.syncRolePermissions,
		forge.WithSummary("Sync role permissions"),
		forge.WithDescription("Replaces the permission set of a role."),
		forge.WithOperationID("syncRolePermissions"),
		forge.WithRequestSchema(RolePermissionsRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/roles/:roleId/permissions/revoke", a.revokeRolePermissions,
		forge.WithSummary("Revoke role permissions"),
		forge.WithDescription("Removes permissions from a role. Absent permissions are ignored."),
		forge.WithOperationID("revokeRolePermissions"),
		forge.WithRequestSchema(RolePermissionsRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/roles/:roleId/members", a.listRoleMembers,
		forge.WithSummary("List role members"),
		forge.WithDescription("Lists the subjects holding a role, oldest first."),
		forge.WithOperationID("listRoleMembers"),
		forge.WithResponseSchema(http.StatusOK, "Assignments", []*assignment.Assignment{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRole(ctx forge.Context, req *CreateRoleRequest) (*role.Role, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	r, err := a.eng.CreateRole(ctx.Context(), req.Name, req.Guard, req.TenantID)
	if err != nil {
		return nil, mapError(err)
	}
	return r, ctx.JSON(http.StatusCreated, r)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*role.Role, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}
	r, err := a.eng.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) updateRole(ctx forge.Context, req *UpdateRoleRequest) (*role.Role, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}
	r, err := a.eng.UpdateRole(ctx.Context(), roleID, warrant.RoleUpdate{Name: req.Name, Guard: req.Guard})
	if err != nil {
		return nil, mapError(err)
	}
	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) deleteRole(ctx forge.Context, _ *GetRoleRequest) (*struct{}, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.eng.DeleteRole(ctx.Context(), roleID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) bulkDeleteRoles(ctx forge.Context, req *BulkIDsRequest) (*struct{}, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	ids, err := parseRoleIDs(req.IDs)
	if err != nil {
		return nil, err
	}
	if err := a.eng.DeleteRoles(ctx.Context(), ids); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoles(ctx forge.Context, req *ListRolesRequest) (*ListResponse[*role.Role], error) {
	tenant, err := tenantOf(ctx.Context(), req.TenantID)
	if err != nil {
		return nil, err
	}
	filter := role.ListFilter{
		Guard:  req.Guard,
		Search: req.Search,
		Limit:  defaultLimit(req.Limit),
		Offset: req.Offset,
	}
	roles, err := a.eng.ListRolesForTenant(ctx.Context(), tenant, filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.CountRolesForTenant(ctx.Context(), tenant, filter)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &ListResponse[*role.Role]{Items: roles, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) listRolePermissions(ctx forge.Context, _ *GetRoleRequest) ([]*permission.Permission, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}
	perms, err := a.eng.RolePermissions(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	return perms, ctx.JSON(http.StatusOK, perms)
}

func (a *API) assignRolePermissions(ctx forge.Context, req *RolePermissionsRequest) (*struct{}, error) {
	return a.changeRolePermissions(ctx, req, a.eng.AssignPermissions)
}

func (a *API) syncRolePermissions(ctx forge.Context, req *RolePermissionsRequest) (*struct{}, error) {
	return a.changeRolePermissions(ctx, req, a.eng.SyncPermissions)
}

func (a *API) revokeRolePermissions(ctx forge.Context, req *RolePermissionsRequest) (*struct{}, error) {
	return a.changeRolePermissions(ctx, req, a.eng.RevokePermissions)
}

type rolePermissionsFunc func(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error

func (a *API) changeRolePermissions(ctx forge.Context, req *RolePermissionsRequest, apply rolePermissionsFunc) (*struct{}, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}
	permIDs, err := parsePermissionIDs(req.PermissionIDs)
	if err != nil {
		return nil, err
	}
	if err := apply(ctx.Context(), roleID, permIDs); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) attachPermissionsToRoles(ctx forge.Context, req *AttachToRolesRequest) (*struct{}, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	roleIDs, err := parseRoleIDs(req.RoleIDs)
	if err != nil {
		return nil, err
	}
	permIDs, err := parsePermissionIDs(req.PermissionIDs)
	if err != nil {
		return nil, err
	}
	if err := a.eng.AttachPermissionsToRoles(ctx.Context(), roleIDs, permIDs); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoleMembers(ctx forge.Context, _ *GetRoleRequest) ([]*assignment.Assignment, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}
	members, err := a.eng.RoleMembers(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	return members, ctx.JSON(http.StatusOK, members)
}

func roleParam(ctx forge.Context) (id.RoleID, error) {
	roleID, err := id.ParseRoleID(ctx.Param("roleId"))
	if err != nil {
		return id.Nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}
	return roleID, nil
}

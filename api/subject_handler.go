package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/role"
)

const subjectPath = "/subjects/:subjectKind/:subjectId"

func (a *API) registerSubjectRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("subjects"))

	if err := g.GET(subjectPath+"/roles", a.listSubjectRoles,
		forge.WithSummary("List subject roles"),
		forge.WithDescription("Lists the roles a subject holds in its guard and tenant."),
		forge.WithOperationID("listSubjectRoles"),
		forge.WithRequestSchema(SubjectQuery{}),
		forge.WithResponseSchema(http.StatusOK, "Roles", []*role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST(subjectPath+"/roles", a.grantRole,
		forge.WithSummary("Grant role"),
		forge.WithDescription("Grants a role to a subject. Granting a held role is a no-op."),
		forge.WithOperationID("grantRole"),
		forge.WithRequestSchema(GrantRoleRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST(subjectPath+"/roles/bulk", a.grantRoles,
		forge.WithSummary("Grant roles"),
		forge.WithDescription("Grants several roles at once. Rejects the whole batch if any role is invalid."),
		forge.WithOperationID("grantRoles"),
		forge.WithRequestSchema(GrantRolesRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE(subjectPath+"/roles/:roleId", a.revokeRole,
		forge.WithSummary("Revoke role"),
		forge.WithDescription("Removes a role from a subject. Revoking an absent role is a no-op."),
		forge.WithOperationID("revokeRole"),
		forge.WithRequestSchema(SubjectQuery{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET(subjectPath+"/permissions", a.listSubjectPermissions,
		forge.WithSummary("List subject permissions"),
		forge.WithDescription("Lists the effective permission names of a subject, from roles and direct grants."),
		forge.WithOperationID("listSubjectPermissions"),
		forge.WithRequestSchema(SubjectQuery{}),
		forge.WithResponseSchema(http.StatusOK, "Permission names", NamesResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST(subjectPath+"/permissions", a.grantPermission,
		forge.WithSummary("Grant permission"),
		forge.WithDescription("Grants a permission to a subject directly, without a role."),
		forge.WithOperationID("grantPermission"),
		forge.WithRequestSchema(GrantPermissionRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.DELETE(subjectPath+"/permissions/:permissionId", a.revokePermission,
		forge.WithSummary("Revoke permission"),
		forge.WithDescription("Removes a direct grant. Roles carrying the permission are unaffected."),
		forge.WithOperationID("revokePermission"),
		forge.WithRequestSchema(SubjectQuery{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	)
}

func (a *API) listSubjectRoles(ctx forge.Context, req *SubjectQuery) ([]*role.Role, error) {
	subject, err := subjectFrom(ctx, req.Guard, req.TenantID)
	if err != nil {
		return nil, err
	}
	roles, err := a.eng.SubjectRoles(ctx.Context(), subject)
	if err != nil {
		return nil, mapError(err)
	}
	return roles, ctx.JSON(http.StatusOK, roles)
}

func (a *API) grantRole(ctx forge.Context, req *GrantRoleRequest) (*struct{}, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	roleID, err := id.ParseRoleID(req.RoleID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid role ID: %v", err))
	}
	subject, err := subjectFrom(ctx, req.Guard, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := a.eng.GrantRole(ctx.Context(), subject, roleID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) grantRoles(ctx forge.Context, req *GrantRolesRequest) (*struct{}, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	roleIDs, err := parseRoleIDs(req.RoleIDs)
	if err != nil {
		return nil, err
	}
	subject, err := subjectFrom(ctx, req.Guard, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := a.eng.GrantRoles(ctx.Context(), subject, roleIDs); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) revokeRole(ctx forge.Context, req *SubjectQuery) (*struct{}, error) {
	roleID, err := roleParam(ctx)
	if err != nil {
		return nil, err
	}
	subject, err := subjectFrom(ctx, req.Guard, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := a.eng.RevokeRole(ctx.Context(), subject, roleID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listSubjectPermissions(ctx forge.Context, req *SubjectQuery) (*NamesResponse, error) {
	subject, err := subjectFrom(ctx, req.Guard, req.TenantID)
	if err != nil {
		return nil, err
	}
	names, err := a.eng.SubjectPermissions(ctx.Context(), subject, req.Guard)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &NamesResponse{Names: names}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) grantPermission(ctx forge.Context, req *GrantPermissionRequest) (*struct{}, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	permID, err := id.ParsePermissionID(req.PermissionID)
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}
	subject, err := subjectFrom(ctx, req.Guard, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := a.eng.GrantPermission(ctx.Context(), subject, permID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) revokePermission(ctx forge.Context, req *SubjectQuery) (*struct{}, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}
	subject, err := subjectFrom(ctx, req.Guard, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := a.eng.RevokePermission(ctx.Context(), subject, permID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

package api

import (
	"fmt"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Creates a permission in a guard. Names are unique per guard."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(CreatePermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	// Static paths go before the :permissionId pattern.
	if err := g.GET("/permissions/discover", a.discoverPermissions,
		forge.WithSummary("Discover permissions"),
		forge.WithDescription("Lists permissions declared by the configured source that do not exist yet."),
		forge.WithOperationID("discoverPermissions"),
		forge.WithResponseSchema(http.StatusOK, "Missing permissions", DiscoverResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/permissions/import", a.importPermissions,
		forge.WithSummary("Import permissions"),
		forge.WithDescription("Creates the given discovered permissions, skipping existing ones."),
		forge.WithOperationID("importPermissions"),
		forge.WithRequestSchema(ImportPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusCreated, "Created permissions", ImportResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/permissions/bulk-delete", a.bulkDeletePermissions,
		forge.WithSummary("Bulk delete permissions"),
		forge.WithDescription("Deletes all given permissions or none. Role edges and grants cascade."),
		forge.WithOperationID("bulkDeletePermissions"),
		forge.WithRequestSchema(BulkIDsRequest{}),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId", a.getPermission,
		forge.WithSummary("Get permission"),
		forge.WithOperationID("getPermission"),
		forge.WithResponseSchema(http.StatusOK, "Permission details", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/permissions/:permissionId/roles", a.listPermissionRoles,
		forge.WithSummary("List permission roles"),
		forge.WithDescription("Lists the roles visible in the active tenant that hold the permission."),
		forge.WithOperationID("listPermissionRoles"),
		forge.WithRequestSchema(PermissionRolesRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Roles holding the permission", []*role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithDescription("Deletes a permission and every edge that references it."),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithDescription("Lists permissions ordered by name."),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListPermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission list", ListResponse[*permission.Permission]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *CreatePermissionRequest) (*permission.Permission, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	p, err := a.eng.CreatePermission(ctx.Context(), req.Name, req.Guard)
	if err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}
	p, err := a.eng.GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}
	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePermission(ctx forge.Context, _ *GetPermissionRequest) (*struct{}, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}
	if err := a.eng.DeletePermission(ctx.Context(), permID); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissionRoles(ctx forge.Context, req *PermissionRolesRequest) ([]*role.Role, error) {
	permID, err := id.ParsePermissionID(ctx.Param("permissionId"))
	if err != nil {
		return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID: %v", err))
	}
	tenant, err := tenantOf(ctx.Context(), req.TenantID)
	if err != nil {
		return nil, err
	}
	roles, err := a.eng.PermissionRoles(ctx.Context(), permID, tenant)
	if err != nil {
		return nil, mapError(err)
	}
	return roles, ctx.JSON(http.StatusOK, roles)
}

func (a *API) bulkDeletePermissions(ctx forge.Context, req *BulkIDsRequest) (*struct{}, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	ids, err := parsePermissionIDs(req.IDs)
	if err != nil {
		return nil, err
	}
	if err := a.eng.DeletePermissions(ctx.Context(), ids); err != nil {
		return nil, mapError(err)
	}
	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListPermissionsRequest) (*ListResponse[*permission.Permission], error) {
	filter := permission.ListFilter{
		Guard:     req.Guard,
		Search:    req.Search,
		Resources: req.Resources,
		Limit:     defaultLimit(req.Limit),
		Offset:    req.Offset,
	}
	perms, err := a.eng.ListPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.eng.CountPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &ListResponse[*permission.Permission]{Items: perms, Total: total, Limit: filter.Limit, Offset: filter.Offset}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) discoverPermissions(ctx forge.Context, _ *struct{}) (*DiscoverResponse, error) {
	candidates, err := a.eng.DiscoverPermissions(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}
	resources, err := a.eng.DiscoveredResources(ctx.Context())
	if err != nil {
		return nil, mapError(err)
	}
	resp := &DiscoverResponse{Candidates: candidates, Resources: resources}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) importPermissions(ctx forge.Context, req *ImportPermissionsRequest) (*ImportResponse, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	created, err := a.eng.ImportPermissions(ctx.Context(), req.Candidates)
	if err != nil {
		return nil, mapError(err)
	}
	resp := &ImportResponse{Created: created}
	return resp, ctx.JSON(http.StatusCreated, resp)
}

package api

import (
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/permission"
)

func (a *API) registerPermissionRoutes(router forge.Router) error {
	g := router.Group(a.prefix(), forge.WithGroupTags("permissions"))

	if err := g.POST("/permissions", a.createPermission,
		forge.WithSummary("Create permission"),
		forge.WithDescription("Creates a new permission. Names are unique."),
		forge.WithOperationID("createPermission"),
		forge.WithRequestSchema(PermissionRequest{}),
		forge.WithCreatedResponse(&permission.Permission{}),
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

	if err := g.PUT("/permissions/:permissionId", a.updatePermission,
		forge.WithSummary("Update permission"),
		forge.WithOperationID("updatePermission"),
		forge.WithRequestSchema(PermissionRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated permission", &permission.Permission{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/permissions/:permissionId", a.deletePermission,
		forge.WithSummary("Delete permission"),
		forge.WithDescription("Deletes a permission and detaches it from every role."),
		forge.WithOperationID("deletePermission"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.GET("/permissions", a.listPermissions,
		forge.WithSummary("List permissions"),
		forge.WithDescription("Lists one page of permissions, or all of them with all=true."),
		forge.WithOperationID("listPermissions"),
		forge.WithRequestSchema(ListRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Permission page", &PageResponse[*permission.Permission]{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createPermission(ctx forge.Context, req *PermissionRequest) (*permission.Permission, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validatePayload(req); err != nil {
		return nil, err
	}

	p := &permission.Permission{
		ID:          id.NewPermissionID(),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := a.store.CreatePermission(ctx.Context(), p); err != nil {
		return nil, fail(ctx, err)
	}

	a.plugins.EmitPermissionCreated(ctx.Context(), p)

	return p, ctx.JSON(http.StatusCreated, p)
}

func (a *API) getPermission(ctx forge.Context, _ *GetPermissionRequest) (*permission.Permission, error) {
	permID, err := parseID("permission", ctx.Param("permissionId"), id.ParsePermissionID)
	if err != nil {
		return nil, err
	}

	p, err := a.store.GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) updatePermission(ctx forge.Context, req *PermissionRequest) (*permission.Permission, error) {
	permID, err := parseID("permission", ctx.Param("permissionId"), id.ParsePermissionID)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validatePayload(req); err != nil {
		return nil, err
	}

	p, err := a.store.GetPermission(ctx.Context(), permID)
	if err != nil {
		return nil, mapError(err)
	}
	p.Name = req.Name
	p.Description = req.Description

	if err := a.store.UpdatePermission(ctx.Context(), p); err != nil {
		return nil, fail(ctx, err)
	}

	a.plugins.EmitPermissionUpdated(ctx.Context(), p)

	return p, ctx.JSON(http.StatusOK, p)
}

func (a *API) deletePermission(ctx forge.Context, _ *GetPermissionRequest) (*struct{}, error) {
	permID, err := parseID("permission", ctx.Param("permissionId"), id.ParsePermissionID)
	if err != nil {
		return nil, err
	}

	if err := a.store.DeletePermission(ctx.Context(), permID); err != nil {
		return nil, mapError(err)
	}

	a.plugins.EmitPermissionDeleted(ctx.Context(), permID)

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listPermissions(ctx forge.Context, req *ListRequest) (*PageResponse[*permission.Permission], error) {
	filter := &permission.ListFilter{
		Search:    strings.TrimSpace(req.Search),
		SortBy:    req.SortBy,
		Direction: req.Direction,
	}

	if req.All {
		perms, err := a.store.ListPermissions(ctx.Context(), filter)
		if err != nil {
			return nil, mapError(err)
		}
		if perms == nil {
			perms = []*permission.Permission{}
		}
		return nil, ctx.JSON(http.StatusOK, perms)
	}

	q, limit, offset := pageWindow(req)
	filter.Limit, filter.Offset = limit, offset

	perms, err := a.store.ListPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.store.CountPermissions(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := newPageResponse(perms, q, total)
	return resp, ctx.JSON(http.StatusOK, resp)
}

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/gatekeeper"
	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/role"
)

func (a *API) registerRoleRoutes(router forge.Router) error {
	g := router.Group(a.prefix(), forge.WithGroupTags("roles"))

	if err := g.POST("/roles", a.createRole,
		forge.WithSummary("Create role"),
		forge.WithDescription("Creates a new role with an optional permission set."),
		forge.WithOperationID("createRole"),
		forge.WithRequestSchema(RoleRequest{}),
		forge.WithCreatedResponse(&role.Role{}),
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
		forge.WithDescription("Updates a role. System roles cannot be modified."),
		forge.WithOperationID("updateRole"),
		forge.WithRequestSchema(RoleRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &role.Role{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.DELETE("/roles/:roleId", a.deleteRole,
		forge.WithSummary("Delete role"),
		forge.WithDescription("Deletes a role and removes it from every user."),
		forge.WithOperationID("deleteRole"),
		forge.WithNoContentResponse(),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.GET("/roles", a.listRoles,
		forge.WithSummary("List roles"),
		forge.WithDescription("Lists one page of roles, or all of them with all=true."),
		forge.WithOperationID("listRoles"),
		forge.WithRequestSchema(ListRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Role page", &PageResponse[*role.Role]{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.PUT("/roles/:roleId/permissions", a.setRolePermissions,
		forge.WithSummary("Set role permissions"),
		forge.WithDescription("Replaces a role's permission set."),
		forge.WithOperationID("setRolePermissions"),
		forge.WithRequestSchema(SetRolePermissionsRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Updated role", &role.Role{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) createRole(ctx forge.Context, req *RoleRequest) (*role.Role, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validatePayload(req); err != nil {
		return nil, err
	}
	permIDs, err := parseIDs("permission", req.PermissionIDs, id.PrefixPermission)
	if err != nil {
		return nil, err
	}
	if err := a.checkPermissions(ctx.Context(), permIDs); err != nil {
		return nil, mapError(err)
	}

	r := &role.Role{
		ID:            id.NewRoleID(),
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: permIDs,
	}
	if err := a.store.CreateRole(ctx.Context(), r); err != nil {
		return nil, fail(ctx, err)
	}

	a.plugins.EmitRoleCreated(ctx.Context(), r)
	a.plugins.EmitRolePermissionsChanged(ctx.Context(), r.ID, r.PermissionIDs, nil)

	return r, ctx.JSON(http.StatusCreated, r)
}

func (a *API) getRole(ctx forge.Context, _ *GetRoleRequest) (*role.Role, error) {
	roleID, err := parseID("role", ctx.Param("roleId"), id.ParseRoleID)
	if err != nil {
		return nil, err
	}

	r, err := a.store.GetRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) updateRole(ctx forge.Context, req *RoleRequest) (*role.Role, error) {
	roleID, err := parseID("role", ctx.Param("roleId"), id.ParseRoleID)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := a.validatePayload(req); err != nil {
		return nil, err
	}

	r, err := a.mutableRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	r.Name = req.Name
	r.Description = req.Description

	if err := a.store.UpdateRole(ctx.Context(), r); err != nil {
		return nil, fail(ctx, err)
	}
	a.plugins.EmitRoleUpdated(ctx.Context(), r)

	if req.PermissionIDs != nil {
		if r, err = a.replacePermissions(ctx.Context(), r, req.PermissionIDs); err != nil {
			return nil, err
		}
	}

	return r, ctx.JSON(http.StatusOK, r)
}

func (a *API) deleteRole(ctx forge.Context, _ *GetRoleRequest) (*struct{}, error) {
	roleID, err := parseID("role", ctx.Param("roleId"), id.ParseRoleID)
	if err != nil {
		return nil, err
	}

	if _, err := a.mutableRole(ctx.Context(), roleID); err != nil {
		return nil, mapError(err)
	}
	if err := a.store.DeleteRole(ctx.Context(), roleID); err != nil {
		return nil, mapError(err)
	}

	a.plugins.EmitRoleDeleted(ctx.Context(), roleID)

	return nil, ctx.NoContent(http.StatusNoContent)
}

func (a *API) listRoles(ctx forge.Context, req *ListRequest) (*PageResponse[*role.Role], error) {
	filter := &role.ListFilter{
		Search:    strings.TrimSpace(req.Search),
		SortBy:    req.SortBy,
		Direction: req.Direction,
	}

	if req.All {
		roles, err := a.store.ListRoles(ctx.Context(), filter)
		if err != nil {
			return nil, mapError(err)
		}
		if roles == nil {
			roles = []*role.Role{}
		}
		return nil, ctx.JSON(http.StatusOK, roles)
	}

	q, limit, offset := pageWindow(req)
	filter.Limit, filter.Offset = limit, offset

	roles, err := a.store.ListRoles(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}
	total, err := a.store.CountRoles(ctx.Context(), filter)
	if err != nil {
		return nil, mapError(err)
	}

	resp := newPageResponse(roles, q, total)
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) setRolePermissions(ctx forge.Context, req *SetRolePermissionsRequest) (*role.Role, error) {
	roleID, err := parseID("role", ctx.Param("roleId"), id.ParseRoleID)
	if err != nil {
		return nil, err
	}
	if err := a.validatePayload(req); err != nil {
		return nil, err
	}

	r, err := a.mutableRole(ctx.Context(), roleID)
	if err != nil {
		return nil, mapError(err)
	}
	if r, err = a.replacePermissions(ctx.Context(), r, req.PermissionIDs); err != nil {
		return nil, err
	}

	return r, ctx.JSON(http.StatusOK, r)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// mutableRole loads a role and rejects system roles.
func (a *API) mutableRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := a.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if r.IsSystem {
		return nil, fmt.Errorf("role %q: %w", r.Name, gatekeeper.ErrSystemRoleImmutable)
	}
	return r, nil
}

// replacePermissions swaps r's permission set for raw, emits the diff and
// returns the reloaded role.
func (a *API) replacePermissions(ctx context.Context, r *role.Role, raw []string) (*role.Role, error) {
	permIDs, err := parseIDs("permission", raw, id.PrefixPermission)
	if err != nil {
		return nil, err
	}
	if err := a.store.SetRolePermissions(ctx, r.ID, permIDs); err != nil {
		return nil, mapError(err)
	}
	updated, err := a.store.GetRole(ctx, r.ID)
	if err != nil {
		return nil, mapError(err)
	}

	added, removed := diffIDs(r.PermissionIDs, updated.PermissionIDs)
	a.plugins.EmitRolePermissionsChanged(ctx, r.ID, added, removed)
	return updated, nil
}

// checkPermissions verifies every id names an existing permission.
func (a *API) checkPermissions(ctx context.Context, permIDs []id.PermissionID) error {
	for _, permID := range permIDs {
		if _, err := a.store.GetPermission(ctx, permID); err != nil {
			return err
		}
	}
	return nil
}

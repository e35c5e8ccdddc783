package gatekeeper

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/selection"
)

// EditRole loads the role with roleID and the full permission list in
// parallel and returns an editor seeded with the role's current
// permissions. Stale permission ids on the role are kept and labelled as
// unknown.
func (c *Console) EditRole(ctx context.Context, roleID string) (*selection.Editor, error) {
	var (
		r     role.Role
		perms []permission.Permission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		r, err = c.Roles.Get(gctx, roleID)
		return err
	})
	g.Go(func() error {
		var err error
		perms, err = loadAll[permission.Permission](gctx, c, KindPermissions)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gatekeeper: edit role %s: %w", roleID, err)
	}
	return selection.NewEditor(&r, perms), nil
}

// SaveRole dispatches a role update carrying the editor's selected
// permissions. Ids that no longer name a permission are dropped.
func (c *Console) SaveRole(ctx context.Context, ed *selection.Editor) (role.Role, error) {
	return c.Roles.Update(ctx, ed.RoleID(), ed.Payload())
}

// SetRolePermissions replaces the permission set of the role with roleID
// without touching its name or description.
func (c *Console) SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string) (role.Role, error) {
	return c.Roles.mutate(ctx, lifecycle.OpUpdate, func(ctx context.Context, out *role.Role) error {
		return c.transport.SetRolePermissions(ctx, roleID, permissionIDs, out)
	})
}

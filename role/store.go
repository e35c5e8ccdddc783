package role

import (
	"context"

	"github.com/xraph/gatekeeper/id"
)

// Store defines persistence operations for roles. Roles returned by Get and
// List carry their PermissionIDs.
type Store interface {
	// CreateRole persists a new role together with its permission set.
	CreateRole(ctx context.Context, r *Role) error

	// GetRole retrieves a role by ID.
	GetRole(ctx context.Context, roleID id.RoleID) (*Role, error)

	// GetRoleByName retrieves a role by its unique name.
	GetRoleByName(ctx context.Context, name string) (*Role, error)

	// UpdateRole persists name and description changes. The permission set
	// is left untouched; use SetRolePermissions for that.
	UpdateRole(ctx context.Context, r *Role) error

	// DeleteRole removes a role and its permission links.
	DeleteRole(ctx context.Context, roleID id.RoleID) error

	// ListRoles returns roles matching the filter.
	ListRoles(ctx context.Context, filter *ListFilter) ([]*Role, error)

	// CountRoles returns the number of roles matching the filter.
	CountRoles(ctx context.Context, filter *ListFilter) (int64, error)

	// ListRolePermissions returns the permission IDs attached to a role.
	ListRolePermissions(ctx context.Context, roleID id.RoleID) ([]id.PermissionID, error)

	// SetRolePermissions replaces a role's permission set.
	SetRolePermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error
}

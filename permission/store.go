package permission

import (
	"context"

	"github.com/xraph/gatekeeper/id"
)

// Store defines persistence operations for permissions.
type Store interface {
	// CreatePermission persists a new permission. A duplicate name fails
	// with gatekeeper.ErrDuplicatePermission.
	CreatePermission(ctx context.Context, p *Permission) error

	// GetPermission retrieves a permission by ID.
	GetPermission(ctx context.Context, permID id.PermissionID) (*Permission, error)

	// GetPermissionByName retrieves a permission by its unique name.
	GetPermissionByName(ctx context.Context, name string) (*Permission, error)

	// UpdatePermission persists name and description changes.
	UpdatePermission(ctx context.Context, p *Permission) error

	// DeletePermission removes a permission and detaches it from every role.
	DeletePermission(ctx context.Context, permID id.PermissionID) error

	// ListPermissions returns permissions matching the filter.
	ListPermissions(ctx context.Context, filter *ListFilter) ([]*Permission, error)

	// CountPermissions returns the number of permissions matching the filter,
	// ignoring Limit and Offset.
	CountPermissions(ctx context.Context, filter *ListFilter) (int64, error)
}

// Package plugin defines the plugin system for gatekeeper.
// Plugins are notified of lifecycle events (role created, permissions
// changed, user locked, console operation failed, etc.) and can react with
// logging, metrics, audit trails, and so on.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import (
	"context"

	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/user"
)

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Role lifecycle hooks
// ──────────────────────────────────────────────────

// RoleCreated is called after a role is created.
type RoleCreated interface {
	OnRoleCreated(ctx context.Context, r *role.Role) error
}

// RoleUpdated is called after a role is updated.
type RoleUpdated interface {
	OnRoleUpdated(ctx context.Context, r *role.Role) error
}

// RoleDeleted is called after a role is deleted.
type RoleDeleted interface {
	OnRoleDeleted(ctx context.Context, roleID id.RoleID) error
}

// RolePermissionsChanged is called after a role's permission set is
// replaced, with the ids that were added and removed.
type RolePermissionsChanged interface {
	OnRolePermissionsChanged(ctx context.Context, roleID id.RoleID, added, removed []id.PermissionID) error
}

// ──────────────────────────────────────────────────
// Permission lifecycle hooks
// ──────────────────────────────────────────────────

// PermissionCreated is called after a permission is created.
type PermissionCreated interface {
	OnPermissionCreated(ctx context.Context, p *permission.Permission) error
}

// PermissionUpdated is called after a permission is updated.
type PermissionUpdated interface {
	OnPermissionUpdated(ctx context.Context, p *permission.Permission) error
}

// PermissionDeleted is called after a permission is deleted.
type PermissionDeleted interface {
	OnPermissionDeleted(ctx context.Context, permID id.PermissionID) error
}

// ──────────────────────────────────────────────────
// User lifecycle hooks
// ──────────────────────────────────────────────────

// UserCreated is called after a user is created.
type UserCreated interface {
	OnUserCreated(ctx context.Context, u *user.User) error
}

// UserUpdated is called after a user is updated.
type UserUpdated interface {
	OnUserUpdated(ctx context.Context, u *user.User) error
}

// UserDeleted is called after a user is deleted.
type UserDeleted interface {
	OnUserDeleted(ctx context.Context, userID id.UserID) error
}

// UserLocked is called after a user account is locked.
type UserLocked interface {
	OnUserLocked(ctx context.Context, userID id.UserID) error
}

// UserUnlocked is called after a user account is unlocked.
type UserUnlocked interface {
	OnUserUnlocked(ctx context.Context, userID id.UserID) error
}

// PasswordReset is called after a password reset is requested for a user.
type PasswordReset interface {
	OnPasswordReset(ctx context.Context, userID id.UserID) error
}

// ──────────────────────────────────────────────────
// Console operation hooks
// ──────────────────────────────────────────────────

// OperationSucceeded is called when a console request settles successfully.
type OperationSucceeded interface {
	OnOperationSucceeded(ctx context.Context, kind string, op lifecycle.Operation) error
}

// OperationFailed is called when a console request settles with an error.
type OperationFailed interface {
	OnOperationFailed(ctx context.Context, kind string, op lifecycle.Operation, cause error) error
}

// OperationSuperseded is called when a console request's result is dropped
// because a newer request for the same operation was issued.
type OperationSuperseded interface {
	OnOperationSuperseded(ctx context.Context, kind string, op lifecycle.Operation) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}

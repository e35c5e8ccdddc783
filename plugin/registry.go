package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/gatekeeper/id"
	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/user"
)

// Named entry types pair a hook with the plugin name for logging.

type roleCreatedEntry struct {
	name string
	hook RoleCreated
}
type roleUpdatedEntry struct {
	name string
	hook RoleUpdated
}
type roleDeletedEntry struct {
	name string
	hook RoleDeleted
}
type rolePermissionsChangedEntry struct {
	name string
	hook RolePermissionsChanged
}
type permissionCreatedEntry struct {
	name string
	hook PermissionCreated
}
type permissionUpdatedEntry struct {
	name string
	hook PermissionUpdated
}
type permissionDeletedEntry struct {
	name string
	hook PermissionDeleted
}
type userCreatedEntry struct {
	name string
	hook UserCreated
}
type userUpdatedEntry struct {
	name string
	hook UserUpdated
}
type userDeletedEntry struct {
	name string
	hook UserDeleted
}
type userLockedEntry struct {
	name string
	hook UserLocked
}
type userUnlockedEntry struct {
	name string
	hook UserUnlocked
}
type passwordResetEntry struct {
	name string
	hook PasswordReset
}
type operationSucceededEntry struct {
	name string
	hook OperationSucceeded
}
type operationFailedEntry struct {
	name string
	hook OperationFailed
}
type operationSupersededEntry struct {
	name string
	hook OperationSuperseded
}
type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered plugins and dispatches lifecycle events.
// It type-caches plugins at registration time so emit calls iterate
// only over plugins implementing the relevant hook. Register all plugins
// before the first emit.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	roleCreated            []roleCreatedEntry
	roleUpdated            []roleUpdatedEntry
	roleDeleted            []roleDeletedEntry
	rolePermissionsChanged []rolePermissionsChangedEntry
	permissionCreated      []permissionCreatedEntry
	permissionUpdated      []permissionUpdatedEntry
	permissionDeleted      []permissionDeletedEntry
	userCreated            []userCreatedEntry
	userUpdated            []userUpdatedEntry
	userDeleted            []userDeletedEntry
	userLocked             []userLockedEntry
	userUnlocked           []userUnlockedEntry
	passwordReset          []passwordResetEntry
	operationSucceeded     []operationSucceededEntry
	operationFailed        []operationFailedEntry
	operationSuperseded    []operationSupersededEntry
	shutdown               []shutdownEntry
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin and type-asserts it into all applicable
// hook caches. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)
	name := p.Name()

	if h, ok := p.(RoleCreated); ok {
		r.roleCreated = append(r.roleCreated, roleCreatedEntry{name, h})
	}
	if h, ok := p.(RoleUpdated); ok {
		r.roleUpdated = append(r.roleUpdated, roleUpdatedEntry{name, h})
	}
	if h, ok := p.(RoleDeleted); ok {
		r.roleDeleted = append(r.roleDeleted, roleDeletedEntry{name, h})
	}
	if h, ok := p.(RolePermissionsChanged); ok {
		r.rolePermissionsChanged = append(r.rolePermissionsChanged, rolePermissionsChangedEntry{name, h})
	}
	if h, ok := p.(PermissionCreated); ok {
		r.permissionCreated = append(r.permissionCreated, permissionCreatedEntry{name, h})
	}
	if h, ok := p.(PermissionUpdated); ok {
		r.permissionUpdated = append(r.permissionUpdated, permissionUpdatedEntry{name, h})
	}
	if h, ok := p.(PermissionDeleted); ok {
		r.permissionDeleted = append(r.permissionDeleted, permissionDeletedEntry{name, h})
	}
	if h, ok := p.(UserCreated); ok {
		r.userCreated = append(r.userCreated, userCreatedEntry{name, h})
	}
	if h, ok := p.(UserUpdated); ok {
		r.userUpdated = append(r.userUpdated, userUpdatedEntry{name, h})
	}
	if h, ok := p.(UserDeleted); ok {
		r.userDeleted = append(r.userDeleted, userDeletedEntry{name, h})
	}
	if h, ok := p.(UserLocked); ok {
		r.userLocked = append(r.userLocked, userLockedEntry{name, h})
	}
	if h, ok := p.(UserUnlocked); ok {
		r.userUnlocked = append(r.userUnlocked, userUnlockedEntry{name, h})
	}
	if h, ok := p.(PasswordReset); ok {
		r.passwordReset = append(r.passwordReset, passwordResetEntry{name, h})
	}
	if h, ok := p.(OperationSucceeded); ok {
		r.operationSucceeded = append(r.operationSucceeded, operationSucceededEntry{name, h})
	}
	if h, ok := p.(OperationFailed); ok {
		r.operationFailed = append(r.operationFailed, operationFailedEntry{name, h})
	}
	if h, ok := p.(OperationSuperseded); ok {
		r.operationSuperseded = append(r.operationSuperseded, operationSupersededEntry{name, h})
	}
	if h, ok := p.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// ──────────────────────────────────────────────────
// Role event emitters
// ──────────────────────────────────────────────────

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleCreated {
		if err := e.hook.OnRoleCreated(ctx, rl); err != nil {
			r.logHookError("OnRoleCreated", e.name, err)
		}
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleUpdated {
		if err := e.hook.OnRoleUpdated(ctx, rl); err != nil {
			r.logHookError("OnRoleUpdated", e.name, err)
		}
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	for _, e := range r.roleDeleted {
		if err := e.hook.OnRoleDeleted(ctx, roleID); err != nil {
			r.logHookError("OnRoleDeleted", e.name, err)
		}
	}
}

// EmitRolePermissionsChanged notifies all plugins that implement
// RolePermissionsChanged. Nothing is emitted for an empty diff.
func (r *Registry) EmitRolePermissionsChanged(ctx context.Context, roleID id.RoleID, added, removed []id.PermissionID) {
	if len(added) == 0 && len(removed) == 0 {
		return
	}
	for _, e := range r.rolePermissionsChanged {
		if err := e.hook.OnRolePermissionsChanged(ctx, roleID, added, removed); err != nil {
			r.logHookError("OnRolePermissionsChanged", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Permission event emitters
// ──────────────────────────────────────────────────

// EmitPermissionCreated notifies all plugins that implement PermissionCreated.
func (r *Registry) EmitPermissionCreated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionCreated {
		if err := e.hook.OnPermissionCreated(ctx, p); err != nil {
			r.logHookError("OnPermissionCreated", e.name, err)
		}
	}
}

// EmitPermissionUpdated notifies all plugins that implement PermissionUpdated.
func (r *Registry) EmitPermissionUpdated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionUpdated {
		if err := e.hook.OnPermissionUpdated(ctx, p); err != nil {
			r.logHookError("OnPermissionUpdated", e.name, err)
		}
	}
}

// EmitPermissionDeleted notifies all plugins that implement PermissionDeleted.
func (r *Registry) EmitPermissionDeleted(ctx context.Context, permID id.PermissionID) {
	for _, e := range r.permissionDeleted {
		if err := e.hook.OnPermissionDeleted(ctx, permID); err != nil {
			r.logHookError("OnPermissionDeleted", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// User event emitters
// ──────────────────────────────────────────────────

// EmitUserCreated notifies all plugins that implement UserCreated.
func (r *Registry) EmitUserCreated(ctx context.Context, u *user.User) {
	for _, e := range r.userCreated {
		if err := e.hook.OnUserCreated(ctx, u); err != nil {
			r.logHookError("OnUserCreated", e.name, err)
		}
	}
}

// EmitUserUpdated notifies all plugins that implement UserUpdated.
func (r *Registry) EmitUserUpdated(ctx context.Context, u *user.User) {
	for _, e := range r.userUpdated {
		if err := e.hook.OnUserUpdated(ctx, u); err != nil {
			r.logHookError("OnUserUpdated", e.name, err)
		}
	}
}

// EmitUserDeleted notifies all plugins that implement UserDeleted.
func (r *Registry) EmitUserDeleted(ctx context.Context, userID id.UserID) {
	for _, e := range r.userDeleted {
		if err := e.hook.OnUserDeleted(ctx, userID); err != nil {
			r.logHookError("OnUserDeleted", e.name, err)
		}
	}
}

// EmitUserLocked notifies all plugins that implement UserLocked.
func (r *Registry) EmitUserLocked(ctx context.Context, userID id.UserID) {
	for _, e := range r.userLocked {
		if err := e.hook.OnUserLocked(ctx, userID); err != nil {
			r.logHookError("OnUserLocked", e.name, err)
		}
	}
}

// EmitUserUnlocked notifies all plugins that implement UserUnlocked.
func (r *Registry) EmitUserUnlocked(ctx context.Context, userID id.UserID) {
	for _, e := range r.userUnlocked {
		if err := e.hook.OnUserUnlocked(ctx, userID); err != nil {
			r.logHookError("OnUserUnlocked", e.name, err)
		}
	}
}

// EmitPasswordReset notifies all plugins that implement PasswordReset.
func (r *Registry) EmitPasswordReset(ctx context.Context, userID id.UserID) {
	for _, e := range r.passwordReset {
		if err := e.hook.OnPasswordReset(ctx, userID); err != nil {
			r.logHookError("OnPasswordReset", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Console operation emitters
// ──────────────────────────────────────────────────

// EmitOperationSucceeded notifies all plugins that implement OperationSucceeded.
func (r *Registry) EmitOperationSucceeded(ctx context.Context, kind string, op lifecycle.Operation) {
	for _, e := range r.operationSucceeded {
		if err := e.hook.OnOperationSucceeded(ctx, kind, op); err != nil {
			r.logHookError("OnOperationSucceeded", e.name, err)
		}
	}
}

// EmitOperationFailed notifies all plugins that implement OperationFailed.
func (r *Registry) EmitOperationFailed(ctx context.Context, kind string, op lifecycle.Operation, cause error) {
	for _, e := range r.operationFailed {
		if err := e.hook.OnOperationFailed(ctx, kind, op, cause); err != nil {
			r.logHookError("OnOperationFailed", e.name, err)
		}
	}
}

// EmitOperationSuperseded notifies all plugins that implement OperationSuperseded.
func (r *Registry) EmitOperationSuperseded(ctx context.Context, kind string, op lifecycle.Operation) {
	for _, e := range r.operationSuperseded {
		if err := e.hook.OnOperationSuperseded(ctx, kind, op); err != nil {
			r.logHookError("OnOperationSuperseded", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Shutdown emitter
// ──────────────────────────────────────────────────

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a warning when a lifecycle hook returns an error.
// Hook errors are never propagated to the caller.
func (r *Registry) logHookError(hook, pluginName string, err error) {
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}

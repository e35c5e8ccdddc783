package gatekeeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"
	"golang.org/x/sync/singleflight"

	"github.com/xraph/gatekeeper/coordinator"
	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/pagination"
	"github.com/xraph/gatekeeper/permission"
	"github.com/xraph/gatekeeper/plugin"
	"github.com/xraph/gatekeeper/role"
	"github.com/xraph/gatekeeper/transport"
	"github.com/xraph/gatekeeper/user"
)

// Entity kinds. They double as API path segments and coordinator keys.
const (
	KindRoles       = transport.KindRoles
	KindPermissions = transport.KindPermissions
	KindUsers       = transport.KindUsers
)

// Transport is the subset of the API client the console needs.
// *transport.Client implements it.
type Transport interface {
	List(ctx context.Context, kind string, q pagination.Query, out any) error
	ListAll(ctx context.Context, kind string, out any) error
	Get(ctx context.Context, kind, id string, out any) error
	Create(ctx context.Context, kind string, in, out any) error
	Update(ctx context.Context, kind, id string, in, out any) error
	Delete(ctx context.Context, kind, id string) error
	Action(ctx context.Context, kind, id, action string, out any) error
	SetRolePermissions(ctx context.Context, roleID string, permissionIDs []string, out any) error
	CheckAvailability(ctx context.Context, req user.AvailabilityRequest) (*user.Availability, error)
}

var _ Transport = (*transport.Client)(nil)

// Console is the client-side state engine of the administration screens.
// It owns one lifecycle store and one pagination adapter per entity kind
// and routes every request through a shared latest-wins coordinator.
type Console struct {
	transport Transport
	cache     Cache
	plugins   *plugin.Registry
	logger    *slog.Logger
	config    Config
	clock     clock.Clock
	validate  *validator.Validate

	coord     *coordinator.Coordinator
	debouncer *coordinator.Debouncer
	flight    singleflight.Group

	// Roles is the role list, detail and mutation state.
	Roles *Resource[role.Role, role.Input]
	// Permissions is the permission list, detail and mutation state.
	Permissions *Resource[permission.Permission, permission.Input]
	// Users is the user state, including account actions.
	Users *UserResource
}

// NewConsole creates a Console with the given options.
func NewConsole(opts ...Option) (*Console, error) {
	c := &Console{
		logger: slog.Default(),
		config: DefaultConfig(),
		clock:  clock.WallClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		return nil, errors.New("gatekeeper: transport is required")
	}
	if c.validate == nil {
		c.validate = newValidator()
	}
	c.fillConfigDefaults()

	coordOpts := []coordinator.Option{coordinator.WithLogger(c.logger)}
	if c.plugins != nil {
		coordOpts = append(coordOpts, coordinator.WithObserver(&pluginObserver{plugins: c.plugins}))
	}
	c.coord = coordinator.New(coordOpts...)
	c.debouncer = coordinator.NewDebouncer(c.clock, c.config.DebounceDelay)

	c.Roles = newResource[role.Role, role.Input](c, KindRoles, roleKey, roleSearchFields, roleSortKey)
	c.Permissions = newResource[permission.Permission, permission.Input](c, KindPermissions, permissionKey, permissionSearchFields, permissionSortKey)
	c.Users = &UserResource{
		Resource: newResource[user.User, user.Input](c, KindUsers, userKey, userSearchFields, userSortKey),
	}
	return c, nil
}

func (c *Console) fillConfigDefaults() {
	def := DefaultConfig()
	if c.config.PageSize <= 0 {
		c.config.PageSize = def.PageSize
	}
	if c.config.SuccessClearDelay <= 0 {
		c.config.SuccessClearDelay = def.SuccessClearDelay
	}
	if c.config.DebounceDelay <= 0 {
		c.config.DebounceDelay = def.DebounceDelay
	}
}

// Config returns the effective configuration.
func (c *Console) Config() Config { return c.config }

// Plugins returns the plugin registry (may be nil).
func (c *Console) Plugins() *plugin.Registry { return c.plugins }

// Close stops pending timers and notifies plugins of shutdown.
func (c *Console) Close(ctx context.Context) error {
	c.debouncer.Stop()
	c.Roles.store.Close()
	c.Permissions.store.Close()
	c.Users.store.Close()
	if c.plugins != nil {
		c.plugins.EmitShutdown(ctx)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Snapshots
// ──────────────────────────────────────────────────

// loadAll returns the full collection of kind. Concurrent loads of the same
// kind share one request, and the encoded result is cached for SnapshotTTL.
//
// The shared request runs with the context of whichever caller started it.
// If that caller is cancelled, a caller that joined the request and is still
// live starts a fresh one instead of inheriting the cancellation.
func loadAll[T any](ctx context.Context, c *Console, kind string) ([]T, error) {
	var (
		v   any
		err error
	)
	for attempt := 0; attempt < maxSnapshotAttempts; attempt++ {
		v, err, _ = c.flight.Do(kind, func() (any, error) {
			return c.snapshot(ctx, kind)
		})
		if err == nil || ctx.Err() != nil || !isContextErr(err) {
			break
		}
		c.flight.Forget(kind)
		c.logger.Debug("gatekeeper: shared snapshot load was cancelled, retrying",
			"kind", kind, "attempt", attempt+1)
	}
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(v.([]byte), &items); err != nil {
		return nil, fmt.Errorf("gatekeeper: decode %s snapshot: %w", kind, err)
	}
	return items, nil
}

// maxSnapshotAttempts bounds how often a live caller restarts a shared load
// that another caller's cancellation ended.
const maxSnapshotAttempts = 3

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (c *Console) snapshot(ctx context.Context, kind string) ([]byte, error) {
	key := snapshotKey(kind)
	if c.cache != nil {
		if raw, ok := c.cache.Get(ctx, key); ok {
			return raw, nil
		}
	}
	var raw json.RawMessage
	if err := c.transport.ListAll(ctx, kind, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = json.RawMessage("[]")
	}
	if c.cache != nil && c.config.SnapshotTTL > 0 {
		c.cache.Set(ctx, key, raw, c.config.SnapshotTTL)
	}
	return raw, nil
}

// invalidate drops the cached snapshot of kind after a mutation.
func (c *Console) invalidate(kind string) {
	if c.cache == nil {
		return
	}
	c.cache.Delete(context.Background(), snapshotKey(kind))
}

// ──────────────────────────────────────────────────
// Plugin bridge
// ──────────────────────────────────────────────────

type pluginObserver struct {
	plugins *plugin.Registry
}

var _ coordinator.Observer = (*pluginObserver)(nil)

func (o *pluginObserver) Succeeded(key coordinator.Key) {
	o.plugins.EmitOperationSucceeded(context.Background(), key.Kind, key.Op)
}

func (o *pluginObserver) Failed(key coordinator.Key, err error) {
	o.plugins.EmitOperationFailed(context.Background(), key.Kind, key.Op, err)
}

func (o *pluginObserver) Superseded(key coordinator.Key) {
	o.plugins.EmitOperationSuperseded(context.Background(), key.Kind, key.Op)
}

// ──────────────────────────────────────────────────
// Per-kind accessors
// ──────────────────────────────────────────────────

func roleKey(r role.Role) string { return r.ID.String() }
func permissionKey(p permission.Permission) string { return p.ID.String() }
func userKey(u user.User) string { return u.ID.String() }

func roleSearchFields(r role.Role) []string { return []string{r.Name, r.Description} }

func permissionSearchFields(p permission.Permission) []string {
	return []string{p.Name, p.Description}
}

func userSearchFields(u user.User) []string { return []string{u.Username, u.Email, u.FullName} }

// sortTime renders timestamps so that string order is chronological.
func sortTime(t time.Time) string { return t.UTC().Format("20060102150405.000000000") }

func roleSortKey(r role.Role, field string) string {
	switch field {
	case "name":
		return r.Name
	case "description":
		return r.Description
	case "updatedAt":
		return sortTime(r.UpdatedAt)
	default:
		return sortTime(r.CreatedAt)
	}
}

func permissionSortKey(p permission.Permission, field string) string {
	switch field {
	case "name":
		return p.Name
	case "description":
		return p.Description
	case "updatedAt":
		return sortTime(p.UpdatedAt)
	default:
		return sortTime(p.CreatedAt)
	}
}

func userSortKey(u user.User, field string) string {
	switch field {
	case "username":
		return u.Username
	case "email":
		return u.Email
	case "fullName":
		return u.FullName
	case "updatedAt":
		return sortTime(u.UpdatedAt)
	default:
		return sortTime(u.CreatedAt)
	}
}

// keyOp builds the coordinator key for an operation on kind.
func keyOp(kind string, op lifecycle.Operation) coordinator.Key {
	return coordinator.Key{Kind: kind, Op: op}
}

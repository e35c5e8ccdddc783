// Package extension provides a Forge extension entry point for gatekeeper.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/gatekeeper/api"
	"github.com/xraph/gatekeeper/plugin"
	"github.com/xraph/gatekeeper/store"
	"github.com/xraph/gatekeeper/store/memory"
	"github.com/xraph/gatekeeper/store/mongo"
	"github.com/xraph/gatekeeper/store/postgres"
	"github.com/xraph/gatekeeper/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "gatekeeper"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Role, permission and user administration API"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the gatekeeper API as a Forge extension.
type Extension struct {
	config     Config
	store      store.Store
	registry   *plugin.Registry
	apiHandler *api.API
	logger     *slog.Logger
	plugins    []plugin.Plugin
	// injected marks a store resolved from the DI container.
	injected bool
}

// New creates a gatekeeper Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Store returns the resolved persistence backend.
func (e *Extension) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Extension) Plugins() *plugin.Registry { return e.registry }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It resolves the store, registers
// it in the DI container when the extension built it, and optionally
// registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if !e.providesStore() {
		return nil
	}
	if err := vessel.Provide(fapp.Container(), func() (store.Store, error) {
		return e.store, nil
	}); err != nil {
		return fmt.Errorf("gatekeeper: register store in container: %w", err)
	}

	return nil
}

// providesStore reports whether the store is owned by the extension. A store
// taken from the container is already registered there.
func (e *Extension) providesStore() bool {
	return e.store != nil && !e.injected
}

func (e *Extension) init(fapp forge.App) error {
	if e.store == nil {
		s, err := e.resolveStore(fapp)
		if err != nil {
			return err
		}
		e.store = s
		e.injected = e.config.Driver == ""
	}

	e.registry = plugin.NewRegistry(e.logger)
	for _, x := range e.plugins {
		e.registry.Register(x)
	}

	e.apiHandler = api.New(e.store,
		api.WithPlugins(e.registry),
		api.WithLogger(e.logger),
		api.WithRouter(fapp.Router()),
		api.WithBasePath(e.config.BasePath),
	)

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(fapp.Router()); err != nil {
			return fmt.Errorf("gatekeeper: register routes: %w", err)
		}
	}

	return nil
}

// resolveStore builds the store named by Config.Driver. Without a driver it
// falls back to a store.Store already in the container.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	switch e.config.Driver {
	case "":
		s, err := forge.Inject[store.Store](fapp.Container())
		if err != nil {
			return nil, fmt.Errorf("gatekeeper: no store configured: %w", err)
		}
		return s, nil
	case DriverMemory:
		return memory.New(), nil
	}

	db, err := forge.Inject[*grove.DB](fapp.Container())
	if err != nil {
		return nil, fmt.Errorf("gatekeeper: resolve grove database for %s: %w", e.config.Driver, err)
	}
	return NewStore(e.config.Driver, db)
}

// NewStore builds a grove-backed store for driver.
func NewStore(driver string, db *grove.DB) (store.Store, error) {
	switch driver {
	case DriverSQLite:
		return sqlite.New(db), nil
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverMongo:
		return mongo.New(db), nil
	case DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("gatekeeper: unknown store driver %q", driver)
}

// Start runs migrations if enabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.store == nil {
		return errors.New("gatekeeper: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("gatekeeper: migration failed: %w", err)
		}
	}

	e.logger.Info("gatekeeper: started", "driver", e.config.Driver)
	return nil
}

// Stop notifies plugins and closes the store.
func (e *Extension) Stop(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	if e.registry != nil {
		e.registry.EmitShutdown(ctx)
	}
	return e.store.Close()
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("gatekeeper: no store configured")
	}
	return e.store.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all gatekeeper API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}

// Package api provides the HTTP handlers behind the gatekeeper console:
// CRUD for roles, permissions and users under /v1.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xraph/forge"

	"github.com/xraph/gatekeeper/plugin"
	"github.com/xraph/gatekeeper/store"
)

// API wires all gatekeeper HTTP handlers together.
type API struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	validate *validator.Validate
	router   forge.Router
	basePath string
}

// Option configures an API.
type Option func(*API)

// WithPlugins sets the registry that receives entity lifecycle events.
func WithPlugins(r *plugin.Registry) Option { return func(a *API) { a.plugins = r } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(a *API) { a.logger = l } }

// WithRouter sets the Forge router routes are registered into.
func WithRouter(r forge.Router) Option { return func(a *API) { a.router = r } }

// WithBasePath mounts the /v1 routes under prefix, e.g. "/gatekeeper".
func WithBasePath(prefix string) Option {
	return func(a *API) { a.basePath = strings.TrimRight(prefix, "/") }
}

// New creates an API over a store.
func New(s store.Store, opts ...Option) *API {
	a := &API{
		store:    s,
		logger:   slog.Default(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.plugins == nil {
		a.plugins = plugin.NewRegistry(a.logger)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	if a.router == nil {
		a.router = forge.NewRouter()
	}
	if err := a.RegisterRoutes(a.router); err != nil {
		panic("gatekeeper: register routes: " + err.Error())
	}
	return a.router.Handler()
}

// RegisterRoutes registers all API routes into the given Forge router.
func (a *API) RegisterRoutes(router forge.Router) error {
	registerers := []func(forge.Router) error{
		a.registerPermissionRoutes,
		a.registerRoleRoutes,
		a.registerUserRoutes,
	}
	for _, fn := range registerers {
		if err := fn(router); err != nil {
			return err
		}
	}
	return nil
}

// prefix returns the path all route groups hang under.
func (a *API) prefix() string { return a.basePath + "/v1" }

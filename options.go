package gatekeeper

import (
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"

	"github.com/xraph/gatekeeper/plugin"
)

// Option is a functional option for the Console.
type Option func(*Console)

// WithTransport sets the API client.
func WithTransport(t Transport) Option { return func(c *Console) { c.transport = t } }

// WithCache sets the snapshot cache used in client pagination mode.
func WithCache(ch Cache) Option { return func(c *Console) { c.cache = ch } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(c *Console) { c.logger = l } }

// WithConfig sets the console configuration.
func WithConfig(cfg Config) Option { return func(c *Console) { c.config = cfg } }

// WithClock sets the clock driving auto-clear and debounce timers.
func WithClock(clk clock.Clock) Option { return func(c *Console) { c.clock = clk } }

// WithValidator replaces the payload validator.
func WithValidator(v *validator.Validate) Option { return func(c *Console) { c.validate = v } }

// WithPlugin registers a plugin with the console.
func WithPlugin(x plugin.Plugin) Option {
	return func(c *Console) {
		if c.plugins == nil {
			c.plugins = plugin.NewRegistry(c.logger)
		}
		c.plugins.Register(x)
	}
}

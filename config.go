package gatekeeper

import (
	"time"

	"github.com/xraph/gatekeeper/coordinator"
	"github.com/xraph/gatekeeper/lifecycle"
	"github.com/xraph/gatekeeper/pagination"
)

// Config holds configuration for the Console.
type Config struct {
	// Mode is the pagination mode used by every list unless overridden in
	// KindModes. Defaults to server mode.
	Mode pagination.Mode `json:"mode,omitempty"`

	// KindModes overrides Mode per entity kind ("roles", "permissions",
	// "users").
	KindModes map[string]pagination.Mode `json:"kind_modes,omitempty"`

	// PageSize is the initial page size of every list. Defaults to 10.
	PageSize int `json:"page_size,omitempty"`

	// SuccessClearDelay is how long success and error signals stay visible.
	// Defaults to 2s.
	SuccessClearDelay time.Duration `json:"success_clear_delay,omitempty"`

	// DebounceDelay is the quiet period before a server-side search or an
	// availability check is sent. Defaults to 500ms.
	DebounceDelay time.Duration `json:"debounce_delay,omitempty"`

	// SnapshotTTL is how long full-collection snapshots stay in the cache.
	// Zero means no caching.
	SnapshotTTL time.Duration `json:"snapshot_ttl,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:              pagination.ServerMode,
		PageSize:          pagination.DefaultSize,
		SuccessClearDelay: lifecycle.DefaultClearDelay,
		DebounceDelay:     coordinator.DefaultDebounceDelay,
		SnapshotTTL:       5 * time.Minute,
	}
}

// ModeFor returns the pagination mode for kind.
func (c Config) ModeFor(kind string) pagination.Mode {
	if m, ok := c.KindModes[kind]; ok && m != "" {
		return m
	}
	if c.Mode == "" {
		return pagination.ServerMode
	}
	return c.Mode
}

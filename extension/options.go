package extension

import (
	"log/slog"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/plugin"
	"github.com/xraph/warrant/store"
)

// ExtOption configures the warrant Forge extension.
type ExtOption func(*Extension)

// WithConfig replaces the whole extension configuration. File
// configuration is still overlaid at Register.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) { e.config = cfg }
}

// WithEngineConfig sets the guards and tenancy settings of the engine.
func WithEngineConfig(cfg warrant.Config) ExtOption {
	return func(e *Extension) { e.config.Engine = cfg }
}

// WithStore uses s instead of resolving a store from the container.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) { e.store = s }
}

// WithGroveDriver builds the store from the container's grove.DB with the
// named driver. It takes precedence over WithStore.
func WithGroveDriver(driver string) ExtOption {
	return func(e *Extension) { e.config.GroveDriver = driver }
}

// WithCache sets the check result cache, for example cache.NewRedis.
func WithCache(c warrant.Cache) ExtOption {
	return func(e *Extension) { e.cache = c }
}

// WithDiscoveryFile reads permission declarations from a YAML file.
func WithDiscoveryFile(path string) ExtOption {
	return func(e *Extension) { e.config.DiscoveryFile = path }
}

// WithEngineOptions appends raw engine options. They are applied after
// the ones the extension derives, so they win.
func WithEngineOptions(opts ...warrant.Option) ExtOption {
	return func(e *Extension) { e.engineOpts = append(e.engineOpts, opts...) }
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) { e.plugins = append(e.plugins, x) }
}

// WithLogger sets the logger shared by the engine and its plugins.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) { e.logger = l }
}

// WithBasePath mounts the HTTP routes under path.
func WithBasePath(path string) ExtOption {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithDisableRoutes skips HTTP route registration.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate skips store migration on Start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig makes Register fail without a configuration section.
func WithRequireConfig() ExtOption {
	return func(e *Extension) { e.config.RequireConfig = true }
}

package warrant

import (
	"log/slog"

	"github.com/xraph/warrant/discovery"
	"github.com/xraph/warrant/plugin"
	"github.com/xraph/warrant/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithCache sets the check result cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithDiscovery sets the source DiscoverPermissions reads declarations from.
func WithDiscovery(src discovery.Source) Option { return func(e *Engine) { e.source = src } }

// WithNamer overrides how discovered permissions are named.
func WithNamer(n discovery.Namer) Option { return func(e *Engine) { e.namer = n } }

// WithPlugin registers a plugin with the engine. Plugins are registered in
// option order once every option has been applied.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) { e.pending = append(e.pending, x) }
}

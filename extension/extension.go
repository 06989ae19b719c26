// Package extension provides a Forge extension entry point for warrant.
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

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/api"
	"github.com/xraph/warrant/discovery"
	"github.com/xraph/warrant/plugin"
	"github.com/xraph/warrant/store"
	"github.com/xraph/warrant/store/mongo"
	"github.com/xraph/warrant/store/postgres"
	"github.com/xraph/warrant/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "warrant"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Guard-partitioned, tenant-aware roles and permissions"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts warrant as a Forge extension.
type Extension struct {
	config     Config
	eng        *warrant.Engine
	apiHandler *api.API
	logger     *slog.Logger
	store      store.Store
	cache      warrant.Cache
	engineOpts []warrant.Option
	plugins    []plugin.Plugin
}

// New creates a warrant Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
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

// Engine returns the underlying warrant engine.
func (e *Extension) Engine() *warrant.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.init(fapp); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*warrant.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("warrant: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(fapp forge.App) error {
	if err := e.config.load(fapp.Config()); err != nil {
		return err
	}

	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	s, err := e.resolveStore(fapp)
	if err != nil {
		return err
	}

	eng, err := warrant.NewEngine(e.engineOptions(logger, s)...)
	if err != nil {
		return fmt.Errorf("warrant: create engine: %w", err)
	}
	e.eng = eng

	router := fapp.Router()
	if prefix := e.config.routePrefix(); prefix != "" {
		router = router.Group(prefix)
	}
	e.apiHandler = api.New(eng, router)

	if !e.config.DisableRoutes {
		if err := e.apiHandler.RegisterRoutes(router); err != nil {
			return fmt.Errorf("warrant: register routes: %w", err)
		}
	}

	logger.Info("warrant extension initialized",
		slog.String("base_path", e.config.routePrefix()),
		slog.String("grove_driver", e.config.GroveDriver),
		slog.Bool("tenancy", e.config.Engine.TenancyEnabled),
	)
	return nil
}

// resolveStore picks the store: a grove driver first, then an explicit
// WithStore, then a store.Store registered in the container. A nil store
// makes NewEngine fail.
func (e *Extension) resolveStore(fapp forge.App) (store.Store, error) {
	if e.config.GroveDriver != "" {
		db, err := forge.Inject[*grove.DB](fapp.Container())
		if err != nil {
			return nil, fmt.Errorf("warrant: resolve grove database: %w", err)
		}
		return storeForDriver(e.config.GroveDriver, db)
	}
	if e.store != nil {
		return e.store, nil
	}
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil {
		return s, nil
	}
	return nil, nil
}

// engineOptions derives the engine options from the extension config.
// Options passed through WithEngineOptions come last.
func (e *Extension) engineOptions(logger *slog.Logger, s store.Store) []warrant.Option {
	opts := []warrant.Option{
		warrant.WithLogger(logger),
		warrant.WithConfig(e.config.Engine),
	}
	if s != nil {
		opts = append(opts, warrant.WithStore(s))
	}
	if e.cache != nil {
		opts = append(opts, warrant.WithCache(e.cache))
	}
	if e.config.DiscoveryFile != "" {
		opts = append(opts, warrant.WithDiscovery(discovery.File{Path: e.config.DiscoveryFile}))
	}
	for _, x := range e.plugins {
		opts = append(opts, warrant.WithPlugin(x))
	}
	return append(opts, e.engineOpts...)
}

// storeForDriver builds the store matching a grove driver name.
func storeForDriver(driver string, db *grove.DB) (store.Store, error) {
	switch driver {
	case "postgres", "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo", "mongodb":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("warrant: unsupported grove driver %q", driver)
	}
}

// Start begins the warrant engine and runs migrations if enabled.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("warrant: extension not initialized")
	}

	if !e.config.DisableMigrate {
		s := e.eng.Store()
		if s != nil {
			if err := s.Migrate(ctx); err != nil {
				return fmt.Errorf("warrant: migration failed: %w", err)
			}
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the warrant engine.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	return e.eng.Stop(ctx)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("warrant: extension not initialized")
	}
	s := e.eng.Store()
	if s == nil {
		return errors.New("warrant: no store configured")
	}
	return s.Ping(ctx)
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all warrant API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}

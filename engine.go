package warrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/warrant/discovery"
	"github.com/xraph/warrant/guard"
	"github.com/xraph/warrant/plugin"
	"github.com/xraph/warrant/store"
	"github.com/xraph/warrant/tenancy"
)

// Engine is the authorization core. It validates and writes permissions,
// roles, assignments and grants through the store, answers checks, and
// fires plugin hooks.
type Engine struct {
	store   store.Store
	cache   Cache
	plugins *plugin.Registry
	pending []plugin.Plugin
	logger  *slog.Logger
	config  Config
	source  discovery.Source
	namer   discovery.Namer

	guards *guard.Registry
	scoper tenancy.Scoper
	locks  *keyedLocks
	fills  singleflight.Group

	// fillMu orders cache fills against invalidations. gen counts
	// invalidations; a fill whose evaluation started under an older gen
	// is dropped.
	fillMu sync.RWMutex
	gen    uint64
}

// NewEngine creates a new engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
		locks:  newKeyedLocks(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		return nil, errors.New("warrant: store is required")
	}
	if len(e.pending) > 0 {
		e.plugins = plugin.NewRegistry(e.logger)
		for _, x := range e.pending {
			e.plugins.Register(x)
		}
		e.pending = nil
	}
	if strings.TrimSpace(e.config.DefaultGuard) == "" {
		e.config.DefaultGuard = DefaultConfig().DefaultGuard
	}
	e.guards = guard.NewRegistry(e.config.DefaultGuard, e.config.Guards...)
	e.scoper = tenancy.Scoper{
		Enabled:       e.config.TenancyEnabled,
		IncludeGlobal: e.config.IncludeGlobalRoles,
	}
	return e, nil
}

// Store returns the underlying composite store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Guards lists the configured guards, sorted.
func (e *Engine) Guards() []string { return e.guards.List() }

// DefaultGuard returns the guard used when none is given.
func (e *Engine) DefaultGuard() string { return e.guards.Default() }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop notifies plugins of shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

func (e *Engine) resolveGuard(g string) (string, error) {
	g = e.guards.Resolve(strings.TrimSpace(g))
	if !e.guards.Has(g) {
		return "", fmt.Errorf("%w: %q", ErrUnknownGuard, g)
	}
	return g, nil
}

func (e *Engine) normalizeSubject(s Subject) (Subject, error) {
	s.ID = strings.TrimSpace(s.ID)
	s.Kind = SubjectKind(strings.TrimSpace(string(s.Kind)))
	s.Tenant = strings.TrimSpace(s.Tenant)
	if s.ID == "" || s.Kind == "" {
		return s, ErrEmptySubject
	}
	g, err := e.resolveGuard(s.Guard)
	if err != nil {
		return s, err
	}
	s.Guard = g
	return s, nil
}

// translate maps backend sentinels onto the engine's error kinds.
func translate(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %w", notFound, err)
	case errors.Is(err, store.ErrConflict):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}
	return err
}

func (e *Engine) invalidateAll(ctx context.Context) {
	if e.cache == nil {
		return
	}
	e.fillMu.Lock()
	defer e.fillMu.Unlock()
	e.gen++
	e.cache.InvalidateAll(ctx)
}

func (e *Engine) invalidateSubject(ctx context.Context, s Subject) {
	if e.cache == nil {
		return
	}
	e.fillMu.Lock()
	defer e.fillMu.Unlock()
	e.gen++
	e.cache.InvalidateSubject(ctx, e.scoper.EdgeTenant(s.Tenant), s.Kind, s.ID)
}

func (e *Engine) generation() uint64 {
	e.fillMu.RLock()
	defer e.fillMu.RUnlock()
	return e.gen
}

// fill caches result unless an invalidation ran since gen was read.
func (e *Engine) fill(ctx context.Context, gen uint64, tenant string, req *CheckRequest, result *CheckResult) {
	e.fillMu.RLock()
	defer e.fillMu.RUnlock()
	if e.gen != gen {
		return
	}
	e.cache.Set(ctx, tenant, req, result)
}

func now() time.Time { return time.Now().UTC() }

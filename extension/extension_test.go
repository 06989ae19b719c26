package extension

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/confy"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/cache"
	"github.com/xraph/warrant/store/memory"
)

func TestNewDefaults(t *testing.T) {
	s := memory.New()
	e := New(WithStore(s), WithDisableRoutes(), WithGroveDriver("sqlite"), WithCache(cache.NewMemory()))
	if e.Name() != ExtensionName {
		t.Fatalf("expected name %q, got %q", ExtensionName, e.Name())
	}
	if !e.config.DisableRoutes {
		t.Fatal("expected routes disabled")
	}
	if e.config.GroveDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", e.config.GroveDriver)
	}
	if e.config.Engine.DefaultGuard != "web" {
		t.Fatalf("expected default guard web, got %q", e.config.Engine.DefaultGuard)
	}
	if e.store != s {
		t.Fatal("expected explicit store to be kept")
	}
	if e.config.routePrefix() != "/warrant" {
		t.Fatalf("expected default prefix /warrant, got %q", e.config.routePrefix())
	}
}

func TestEngineOptionsBuildEngine(t *testing.T) {
	cfg := warrant.DefaultConfig()
	cfg.TenancyEnabled = true
	e := New(WithEngineConfig(cfg), WithCache(cache.NewMemory()))

	eng, err := warrant.NewEngine(e.engineOptions(slog.Default(), memory.New())...)
	if err != nil {
		t.Fatal(err)
	}
	if !eng.Config().TenancyEnabled {
		t.Fatal("expected engine config from the extension")
	}

	if _, err := warrant.NewEngine(e.engineOptions(slog.Default(), nil)...); err == nil {
		t.Fatal("expected engine without a store to fail")
	}
}

func TestRoutePrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/warrant", "/warrant"},
		{"authz/", "/authz"},
		{"/", ""},
		{"  ", ""},
		{"/api/authz", "/api/authz"},
	}
	for _, tt := range tests {
		c := Config{BasePath: tt.in}
		if got := c.routePrefix(); got != tt.want {
			t.Errorf("routePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigLoad(t *testing.T) {
	cm := confy.NewTestConfyImplWithData(map[string]any{
		"extensions": map[string]any{
			"warrant": map[string]any{
				"base_path":    "/authz",
				"grove_driver": "postgres",
			},
		},
	})
	c := DefaultConfig()
	c.DisableMigrate = true
	if err := c.load(cm); err != nil {
		t.Fatal(err)
	}
	if c.BasePath != "/authz" || c.GroveDriver != "postgres" {
		t.Fatalf("expected file values to be applied, got %+v", c)
	}
	if !c.DisableMigrate {
		t.Fatal("expected programmatic value to survive")
	}

	short := confy.NewTestConfyImplWithData(map[string]any{
		"warrant": map[string]any{"discovery_file": "resources.yaml"},
	})
	c = DefaultConfig()
	if err := c.load(short); err != nil {
		t.Fatal(err)
	}
	if c.DiscoveryFile != "resources.yaml" {
		t.Fatalf("expected top-level key to be read, got %q", c.DiscoveryFile)
	}
}

func TestConfigLoadRequired(t *testing.T) {
	c := DefaultConfig()
	if err := c.load(confy.NewTestConfyImpl()); err != nil {
		t.Fatalf("expected missing optional config to pass, got %v", err)
	}

	c.RequireConfig = true
	if err := c.load(confy.NewTestConfyImpl()); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing, got %v", err)
	}
	if err := c.load(nil); !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("expected ErrConfigMissing without a config manager, got %v", err)
	}
}

func TestStoreForUnknownDriver(t *testing.T) {
	if _, err := storeForDriver("oracle", nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestUninitialized(t *testing.T) {
	e := New()
	if err := e.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail before Register")
	}
	if err := e.Health(context.Background()); err == nil {
		t.Fatal("expected Health to fail before Register")
	}
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("expected Stop to be a no-op, got %v", err)
	}
}

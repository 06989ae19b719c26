package extension

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/forge"

	"github.com/xraph/warrant"
)

// Config keys searched, in order, when loading file configuration.
var configKeys = []string{"extensions." + ExtensionName, ExtensionName}

// Config holds the warrant extension configuration. Fields set through
// ExtOption functions are overlaid by whatever the app's configuration
// files declare under "extensions.warrant" or "warrant".
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath mounts the /v1 routes under a prefix (default: "/warrant").
	// An empty path or "/" mounts them at the router root.
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// GroveDriver names the driver of the grove.DB registered in the DI
	// container ("postgres", "sqlite" or "mongo"). When set, the extension
	// resolves the database and constructs the matching store.
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// DiscoveryFile is a YAML resource declaration file used for
	// permission discovery.
	DiscoveryFile string `json:"discovery_file" mapstructure:"discovery_file" yaml:"discovery_file"`

	// Engine configures guards and tenancy.
	Engine warrant.Config `json:"engine" mapstructure:"engine" yaml:"engine"`

	// RequireConfig makes Register fail when no configuration section is
	// found under any of the config keys.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath: "/warrant",
		Engine:   warrant.DefaultConfig(),
	}
}

// ErrConfigMissing is returned by Register when RequireConfig is set and no
// configuration section exists.
var ErrConfigMissing = errors.New("warrant: extension configuration not found")

// load overlays the first configuration section found in cm onto c.
func (c *Config) load(cm forge.ConfigManager) error {
	if cm != nil {
		for _, key := range configKeys {
			if !cm.IsSet(key) {
				continue
			}
			loaded := *c
			if err := cm.Bind(key, &loaded); err != nil {
				return fmt.Errorf("warrant: bind %q config: %w", key, err)
			}
			loaded.RequireConfig = c.RequireConfig
			*c = loaded
			return nil
		}
	}
	if c.RequireConfig {
		return fmt.Errorf("%w (looked under %s)", ErrConfigMissing, strings.Join(configKeys, ", "))
	}
	return nil
}

// routePrefix returns the group prefix for BasePath, or "" for the root.
func (c Config) routePrefix() string {
	p := strings.TrimRight(strings.TrimSpace(c.BasePath), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

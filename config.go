package warrant

import "time"

// Config holds configuration for the warrant engine.
type Config struct {
	// TenancyEnabled scopes roles, assignments and grants to tenants.
	TenancyEnabled bool `json:"tenancy_enabled" yaml:"tenancy_enabled" mapstructure:"tenancy_enabled"`

	// RequireTenant rejects role creation without a tenant when tenancy
	// is enabled. When false such roles land in the global bucket.
	RequireTenant bool `json:"require_tenant" yaml:"require_tenant" mapstructure:"require_tenant"`

	// IncludeGlobalRoles makes global roles visible inside every tenant.
	IncludeGlobalRoles bool `json:"include_global_roles" yaml:"include_global_roles" mapstructure:"include_global_roles"`

	// DefaultGuard is used wherever a guard argument is empty.
	// Defaults to "web".
	DefaultGuard string `json:"default_guard" yaml:"default_guard" mapstructure:"default_guard"`

	// Guards lists the configured guards. DefaultGuard is always included.
	Guards []string `json:"guards,omitempty" yaml:"guards,omitempty" mapstructure:"guards"`

	// CacheTTL is the lifetime of cached check results. It is passed to
	// caches built from this config; zero disables expiry.
	CacheTTL time.Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty" mapstructure:"cache_ttl"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DefaultGuard: "web",
		Guards:       []string{"web", "api"},
		CacheTTL:     5 * time.Minute,
	}
}

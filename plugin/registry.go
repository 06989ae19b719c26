package plugin

import (
	"context"
	"log/slog"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
)

// entry pairs a hook with its plugin name for logging.
type entry[H any] struct {
	name string
	hook H
}

// hooks is the list of plugins implementing hook H.
type hooks[H any] []entry[H]

func (hs *hooks[H]) add(p Plugin) {
	if h, ok := p.(H); ok {
		*hs = append(*hs, entry[H]{name: p.Name(), hook: h})
	}
}

// Registry holds registered plugins and dispatches lifecycle events. Hooks
// are type-cached at registration so an emit only visits plugins that
// implement it.
type Registry struct {
	plugins []Plugin
	logger  *slog.Logger

	beforeCheck        hooks[BeforeCheck]
	afterCheck         hooks[AfterCheck]
	roleCreated        hooks[RoleCreated]
	roleUpdated        hooks[RoleUpdated]
	roleDeleted        hooks[RoleDeleted]
	permissionCreated  hooks[PermissionCreated]
	permissionDeleted  hooks[PermissionDeleted]
	permissionAttached hooks[PermissionAttached]
	permissionDetached hooks[PermissionDetached]
	roleAssigned       hooks[RoleAssigned]
	roleUnassigned     hooks[RoleUnassigned]
	permissionGranted  hooks[PermissionGranted]
	permissionRevoked  hooks[PermissionRevoked]
	shutdown           hooks[Shutdown]
}

// NewRegistry creates a plugin registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds a plugin. Plugins are notified in registration order.
func (r *Registry) Register(p Plugin) {
	r.plugins = append(r.plugins, p)

	r.beforeCheck.add(p)
	r.afterCheck.add(p)
	r.roleCreated.add(p)
	r.roleUpdated.add(p)
	r.roleDeleted.add(p)
	r.permissionCreated.add(p)
	r.permissionDeleted.add(p)
	r.permissionAttached.add(p)
	r.permissionDetached.add(p)
	r.roleAssigned.add(p)
	r.roleUnassigned.add(p)
	r.permissionGranted.add(p)
	r.permissionRevoked.add(p)
	r.shutdown.add(p)
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin { return r.plugins }

// EmitBeforeCheck notifies all plugins that implement BeforeCheck.
func (r *Registry) EmitBeforeCheck(ctx context.Context, req any) {
	for _, e := range r.beforeCheck {
		r.report("OnBeforeCheck", e.name, e.hook.OnBeforeCheck(ctx, req))
	}
}

// EmitAfterCheck notifies all plugins that implement AfterCheck.
func (r *Registry) EmitAfterCheck(ctx context.Context, req, result any) {
	for _, e := range r.afterCheck {
		r.report("OnAfterCheck", e.name, e.hook.OnAfterCheck(ctx, req, result))
	}
}

// EmitRoleCreated notifies all plugins that implement RoleCreated.
func (r *Registry) EmitRoleCreated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleCreated {
		r.report("OnRoleCreated", e.name, e.hook.OnRoleCreated(ctx, rl))
	}
}

// EmitRoleUpdated notifies all plugins that implement RoleUpdated.
func (r *Registry) EmitRoleUpdated(ctx context.Context, rl *role.Role) {
	for _, e := range r.roleUpdated {
		r.report("OnRoleUpdated", e.name, e.hook.OnRoleUpdated(ctx, rl))
	}
}

// EmitRoleDeleted notifies all plugins that implement RoleDeleted.
func (r *Registry) EmitRoleDeleted(ctx context.Context, roleID id.RoleID) {
	for _, e := range r.roleDeleted {
		r.report("OnRoleDeleted", e.name, e.hook.OnRoleDeleted(ctx, roleID))
	}
}

// EmitPermissionCreated notifies all plugins that implement PermissionCreated.
func (r *Registry) EmitPermissionCreated(ctx context.Context, p *permission.Permission) {
	for _, e := range r.permissionCreated {
		r.report("OnPermissionCreated", e.name, e.hook.OnPermissionCreated(ctx, p))
	}
}

// EmitPermissionDeleted notifies all plugins that implement PermissionDeleted.
func (r *Registry) EmitPermissionDeleted(ctx context.Context, permID id.PermissionID) {
	for _, e := range r.permissionDeleted {
		r.report("OnPermissionDeleted", e.name, e.hook.OnPermissionDeleted(ctx, permID))
	}
}

// EmitPermissionAttached notifies all plugins that implement PermissionAttached.
func (r *Registry) EmitPermissionAttached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) {
	for _, e := range r.permissionAttached {
		r.report("OnPermissionAttached", e.name, e.hook.OnPermissionAttached(ctx, roleID, permID))
	}
}

// EmitPermissionDetached notifies all plugins that implement PermissionDetached.
func (r *Registry) EmitPermissionDetached(ctx context.Context, roleID id.RoleID, permID id.PermissionID) {
	for _, e := range r.permissionDetached {
		r.report("OnPermissionDetached", e.name, e.hook.OnPermissionDetached(ctx, roleID, permID))
	}
}

// EmitRoleAssigned notifies all plugins that implement RoleAssigned.
func (r *Registry) EmitRoleAssigned(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleAssigned {
		r.report("OnRoleAssigned", e.name, e.hook.OnRoleAssigned(ctx, a))
	}
}

// EmitRoleUnassigned notifies all plugins that implement RoleUnassigned.
func (r *Registry) EmitRoleUnassigned(ctx context.Context, a *assignment.Assignment) {
	for _, e := range r.roleUnassigned {
		r.report("OnRoleUnassigned", e.name, e.hook.OnRoleUnassigned(ctx, a))
	}
}

// EmitPermissionGranted notifies all plugins that implement PermissionGranted.
func (r *Registry) EmitPermissionGranted(ctx context.Context, g *grant.Grant) {
	for _, e := range r.permissionGranted {
		r.report("OnPermissionGranted", e.name, e.hook.OnPermissionGranted(ctx, g))
	}
}

// EmitPermissionRevoked notifies all plugins that implement PermissionRevoked.
func (r *Registry) EmitPermissionRevoked(ctx context.Context, g *grant.Grant) {
	for _, e := range r.permissionRevoked {
		r.report("OnPermissionRevoked", e.name, e.hook.OnPermissionRevoked(ctx, g))
	}
}

// EmitShutdown notifies all plugins that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		r.report("OnShutdown", e.name, e.hook.OnShutdown(ctx))
	}
}

// report logs a hook error. Hook errors never reach the caller.
func (r *Registry) report(hook, pluginName string, err error) {
	if err == nil {
		return
	}
	r.logger.Warn("plugin hook error",
		slog.String("hook", hook),
		slog.String("plugin", pluginName),
		slog.String("error", err.Error()),
	)
}

// Package metrics is a plugin that exports check decisions and mutation
// counts as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/plugin"
	"github.com/xraph/warrant/role"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Plugin)(nil)
	_ plugin.AfterCheck         = (*Plugin)(nil)
	_ plugin.RoleCreated        = (*Plugin)(nil)
	_ plugin.RoleDeleted        = (*Plugin)(nil)
	_ plugin.PermissionCreated  = (*Plugin)(nil)
	_ plugin.PermissionDeleted  = (*Plugin)(nil)
	_ plugin.PermissionAttached = (*Plugin)(nil)
	_ plugin.PermissionDetached = (*Plugin)(nil)
	_ plugin.RoleAssigned       = (*Plugin)(nil)
	_ plugin.RoleUnassigned     = (*Plugin)(nil)
	_ plugin.PermissionGranted  = (*Plugin)(nil)
	_ plugin.PermissionRevoked  = (*Plugin)(nil)
)

// Event label values of the mutations counter.
const (
	EventRoleCreated        = "role_created"
	EventRoleDeleted        = "role_deleted"
	EventPermissionCreated  = "permission_created"
	EventPermissionDeleted  = "permission_deleted"
	EventPermissionAttached = "permission_attached"
	EventPermissionDetached = "permission_detached"
	EventRoleAssigned       = "role_assigned"
	EventRoleUnassigned     = "role_unassigned"
	EventPermissionGranted  = "permission_granted"
	EventPermissionRevoked  = "permission_revoked"
)

// Plugin counts checks by decision and guard, and mutations by event.
type Plugin struct {
	ChecksTotal    *prometheus.CounterVec
	MutationsTotal *prometheus.CounterVec
}

// New creates the plugin and registers its collectors with registry.
func New(registry prometheus.Registerer) *Plugin {
	p := &Plugin{
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warrant_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"guard", "decision"},
		),
		MutationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warrant_mutations_total",
				Help: "Total number of authorization data mutations",
			},
			[]string{"event"},
		),
	}
	registry.MustRegister(p.ChecksTotal, p.MutationsTotal)
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "metrics" }

// OnAfterCheck counts a finished check.
func (p *Plugin) OnAfterCheck(_ context.Context, req, result any) error {
	r, ok := req.(*warrant.CheckRequest)
	if !ok {
		return nil
	}
	res, ok := result.(*warrant.CheckResult)
	if !ok {
		return nil
	}
	p.ChecksTotal.WithLabelValues(r.Guard, string(res.Decision)).Inc()
	return nil
}

func (p *Plugin) OnRoleCreated(_ context.Context, _ *role.Role) error {
	return p.count(EventRoleCreated)
}

func (p *Plugin) OnRoleDeleted(_ context.Context, _ id.RoleID) error {
	return p.count(EventRoleDeleted)
}

func (p *Plugin) OnPermissionCreated(_ context.Context, _ *permission.Permission) error {
	return p.count(EventPermissionCreated)
}

func (p *Plugin) OnPermissionDeleted(_ context.Context, _ id.PermissionID) error {
	return p.count(EventPermissionDeleted)
}

func (p *Plugin) OnPermissionAttached(_ context.Context, _ id.RoleID, _ id.PermissionID) error {
	return p.count(EventPermissionAttached)
}

func (p *Plugin) OnPermissionDetached(_ context.Context, _ id.RoleID, _ id.PermissionID) error {
	return p.count(EventPermissionDetached)
}

func (p *Plugin) OnRoleAssigned(_ context.Context, _ *assignment.Assignment) error {
	return p.count(EventRoleAssigned)
}

func (p *Plugin) OnRoleUnassigned(_ context.Context, _ *assignment.Assignment) error {
	return p.count(EventRoleUnassigned)
}

func (p *Plugin) OnPermissionGranted(_ context.Context, _ *grant.Grant) error {
	return p.count(EventPermissionGranted)
}

func (p *Plugin) OnPermissionRevoked(_ context.Context, _ *grant.Grant) error {
	return p.count(EventPermissionRevoked)
}

func (p *Plugin) count(event string) error {
	p.MutationsTotal.WithLabelValues(event).Inc()
	return nil
}

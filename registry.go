package warrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store"
)

// RoleUpdate describes an edit of a role. Empty fields are left unchanged.
// Guard is accepted only when it equals the role's current guard.
type RoleUpdate struct {
	Name  string `json:"name,omitempty"`
	Guard string `json:"guard,omitempty"`
}

// CreateRole creates a role. tenant must be empty while tenancy is
// disabled; with tenancy enabled an empty tenant puts the role in the
// global bucket unless Config.RequireTenant is set.
func (e *Engine) CreateRole(ctx context.Context, name, guardName, tenant string) (*role.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	g, err := e.resolveGuard(guardName)
	if err != nil {
		return nil, err
	}
	tenant = strings.TrimSpace(tenant)
	switch {
	case !e.config.TenancyEnabled && tenant != "":
		return nil, ErrTenantNotAllowed
	case e.config.TenancyEnabled && e.config.RequireTenant && tenant == "":
		return nil, ErrTenantRequired
	}

	unlock := e.locks.lock(roleNameKey(g, tenant, name))
	defer unlock()

	if err := e.ensureRoleNameFree(ctx, g, tenant, name); err != nil {
		return nil, err
	}
	ts := now()
	r := &role.Role{ID: id.NewRoleID(), Name: name, Guard: g, TenantID: tenant, CreatedAt: ts, UpdatedAt: ts}
	if err := e.store.CreateRole(ctx, r); err != nil {
		return nil, translate(err, ErrRoleNotFound)
	}

	e.logger.Debug("role created",
		slog.String("role_id", r.ID.String()),
		slog.String("name", r.Name),
		slog.String("guard", r.Guard),
		slog.String("tenant_id", r.TenantID),
	)
	if e.plugins != nil {
		e.plugins.EmitRoleCreated(ctx, r)
	}
	return r, nil
}

// GetRole returns a role by ID.
func (e *Engine) GetRole(ctx context.Context, roleID id.RoleID) (*role.Role, error) {
	r, err := e.store.GetRole(ctx, roleID)
	if err != nil {
		return nil, translate(err, ErrRoleNotFound)
	}
	return r, nil
}

// UpdateRole renames a role. Changing the guard fails with
// ErrGuardImmutable.
func (e *Engine) UpdateRole(ctx context.Context, roleID id.RoleID, upd RoleUpdate) (*role.Role, error) {
	unlock := e.locks.lock(roleKey(roleID.String()))
	defer unlock()

	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if g := strings.TrimSpace(upd.Guard); g != "" && g != r.Guard {
		return nil, fmt.Errorf("%w: role %s is in guard %q", ErrGuardImmutable, r.ID, r.Guard)
	}
	if upd.Name == "" {
		return r, nil
	}
	name := strings.TrimSpace(upd.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if name == r.Name {
		return r, nil
	}

	release := e.locks.lock(roleNameKey(r.Guard, r.TenantID, name))
	defer release()

	if err := e.ensureRoleNameFree(ctx, r.Guard, r.TenantID, name); err != nil {
		return nil, err
	}
	r.Name = name
	r.UpdatedAt = now()
	if err := e.store.UpdateRole(ctx, r); err != nil {
		return nil, translate(err, ErrRoleNotFound)
	}

	e.logger.Debug("role updated", slog.String("role_id", r.ID.String()), slog.String("name", r.Name))
	if e.plugins != nil {
		e.plugins.EmitRoleUpdated(ctx, r)
	}
	return r, nil
}

// DeleteRole deletes a role, its permission edges and every assignment to
// it. Permissions are never deleted.
func (e *Engine) DeleteRole(ctx context.Context, roleID id.RoleID) error {
	if _, err := e.GetRole(ctx, roleID); err != nil {
		return err
	}
	return e.deleteRoles(ctx, []id.RoleID{roleID})
}

// DeleteRoles deletes several roles. If any ID is unknown nothing is
// deleted and a *BatchError lists every unknown ID.
func (e *Engine) DeleteRoles(ctx context.Context, roleIDs []id.RoleID) error {
	b := newBatch("delete roles")
	if _, err := e.loadRoles(ctx, b, roleIDs); err != nil {
		return err
	}
	if err := b.err(); err != nil {
		return err
	}
	return e.deleteRoles(ctx, id.Unique(roleIDs))
}

func (e *Engine) deleteRoles(ctx context.Context, roleIDs []id.RoleID) error {
	if len(roleIDs) == 0 {
		return nil
	}
	unlock := e.locks.lock(roleKeys(roleIDs)...)
	defer unlock()

	if err := e.store.DeleteRoles(ctx, roleIDs); err != nil {
		return translate(err, ErrRoleNotFound)
	}
	e.invalidateAll(ctx)

	for _, rid := range roleIDs {
		e.logger.Debug("role deleted", slog.String("role_id", rid.String()))
		if e.plugins != nil {
			e.plugins.EmitRoleDeleted(ctx, rid)
		}
	}
	return nil
}

// AssignPermissions attaches permissions to a role. Unknown permissions
// fail with a *BatchError; a permission of another guard fails with
// ErrGuardMismatch. Either way the role's permission set is unchanged.
// Attaching an already attached permission is a no-op.
func (e *Engine) AssignPermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	unlock := e.locks.lock(roleKey(roleID.String()))
	defer unlock()

	r, perms, err := e.rolePermissionInput(ctx, "assign permissions", roleID, permIDs)
	if err != nil {
		return err
	}
	current, err := e.currentPermissionSet(ctx, r.ID)
	if err != nil {
		return err
	}
	attach := make([]role.Edge, 0, len(perms))
	for _, p := range perms {
		if _, ok := current[p.ID]; !ok {
			attach = append(attach, role.Edge{RoleID: r.ID, PermissionID: p.ID})
		}
	}
	return e.applyEdges(ctx, attach, nil)
}

// RevokePermissions detaches permissions from a role. Detaching a
// permission the role does not hold is a no-op.
func (e *Engine) RevokePermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	unlock := e.locks.lock(roleKey(roleID.String()))
	defer unlock()

	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	current, err := e.currentPermissionSet(ctx, r.ID)
	if err != nil {
		return err
	}
	detach := make([]role.Edge, 0, len(permIDs))
	for _, pid := range id.Unique(permIDs) {
		if _, ok := current[pid]; ok {
			detach = append(detach, role.Edge{RoleID: r.ID, PermissionID: pid})
		}
	}
	return e.applyEdges(ctx, nil, detach)
}

// SyncPermissions makes permIDs the role's permission set. It validates
// like AssignPermissions and then attaches what is missing and detaches
// what is extra in one atomic edge update.
func (e *Engine) SyncPermissions(ctx context.Context, roleID id.RoleID, permIDs []id.PermissionID) error {
	unlock := e.locks.lock(roleKey(roleID.String()))
	defer unlock()

	r, perms, err := e.rolePermissionInput(ctx, "sync permissions", roleID, permIDs)
	if err != nil {
		return err
	}
	current, err := e.currentPermissionSet(ctx, r.ID)
	if err != nil {
		return err
	}
	desired := make(map[id.PermissionID]struct{}, len(perms))
	var attach, detach []role.Edge
	for _, p := range perms {
		desired[p.ID] = struct{}{}
		if _, ok := current[p.ID]; !ok {
			attach = append(attach, role.Edge{RoleID: r.ID, PermissionID: p.ID})
		}
	}
	for pid := range current {
		if _, ok := desired[pid]; !ok {
			detach = append(detach, role.Edge{RoleID: r.ID, PermissionID: pid})
		}
	}
	return e.applyEdges(ctx, attach, detach)
}

// AttachPermissionsToRoles attaches every permission to every role. All
// roles and permissions are validated first; unknown IDs and guard
// mismatches are reported together in a *BatchError and nothing changes.
func (e *Engine) AttachPermissionsToRoles(ctx context.Context, roleIDs []id.RoleID, permIDs []id.PermissionID) error {
	unlock := e.locks.lock(roleKeys(roleIDs)...)
	defer unlock()

	b := newBatch("attach permissions to roles")
	roles, err := e.loadRoles(ctx, b, roleIDs)
	if err != nil {
		return err
	}
	perms, err := e.loadPermissions(ctx, b, permIDs)
	if err != nil {
		return err
	}
	for _, p := range perms {
		for _, r := range roles {
			if p.Guard != r.Guard {
				b.fail(p.ID.String(), guardMismatch(r, p))
			}
		}
	}
	if err := b.err(); err != nil {
		return err
	}

	var attach []role.Edge
	for _, r := range roles {
		current, err := e.currentPermissionSet(ctx, r.ID)
		if err != nil {
			return err
		}
		for _, p := range perms {
			if _, ok := current[p.ID]; !ok {
				attach = append(attach, role.Edge{RoleID: r.ID, PermissionID: p.ID})
			}
		}
	}
	return e.applyEdges(ctx, attach, nil)
}

// RolePermissions returns the permissions of a role sorted by name.
func (e *Engine) RolePermissions(ctx context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	if _, err := e.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return e.store.ListPermissionsByRole(ctx, roleID)
}

// ListRolesForTenant returns the roles visible in tenant, sorted by name,
// each with its permission count. With tenancy disabled tenant is ignored.
func (e *Engine) ListRolesForTenant(ctx context.Context, tenant string, filter role.ListFilter) ([]*role.Role, error) {
	if err := e.checkFilterGuard(filter.Guard); err != nil {
		return nil, err
	}
	scoped := e.scoper.Roles(filter, strings.TrimSpace(tenant))
	return e.store.ListRoles(ctx, &scoped)
}

// CountRolesForTenant counts the roles ListRolesForTenant would return,
// ignoring pagination.
func (e *Engine) CountRolesForTenant(ctx context.Context, tenant string, filter role.ListFilter) (int64, error) {
	if err := e.checkFilterGuard(filter.Guard); err != nil {
		return 0, err
	}
	scoped := e.scoper.Roles(filter, strings.TrimSpace(tenant))
	return e.store.CountRoles(ctx, &scoped)
}

// RoleMembers returns the assignments of a role, oldest first.
func (e *Engine) RoleMembers(ctx context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	if _, err := e.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return e.store.ListSubjectsForRole(ctx, roleID)
}

func (e *Engine) rolePermissionInput(ctx context.Context, op string, roleID id.RoleID, permIDs []id.PermissionID) (*role.Role, []*permission.Permission, error) {
	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return nil, nil, err
	}
	b := newBatch(op)
	perms, err := e.loadPermissions(ctx, b, permIDs)
	if err != nil {
		return nil, nil, err
	}
	if err := b.err(); err != nil {
		return nil, nil, err
	}
	for _, p := range perms {
		if p.Guard != r.Guard {
			return nil, nil, guardMismatch(r, p)
		}
	}
	return r, perms, nil
}

func (e *Engine) currentPermissionSet(ctx context.Context, roleID id.RoleID) (map[id.PermissionID]struct{}, error) {
	ids, err := e.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	set := make(map[id.PermissionID]struct{}, len(ids))
	for _, pid := range ids {
		set[pid] = struct{}{}
	}
	return set, nil
}

func (e *Engine) applyEdges(ctx context.Context, attach, detach []role.Edge) error {
	if len(attach) == 0 && len(detach) == 0 {
		return nil
	}
	if err := e.store.UpdatePermissionEdges(ctx, attach, detach); err != nil {
		return translate(err, ErrNotFound)
	}
	e.invalidateAll(ctx)

	e.logger.Debug("role permissions changed",
		slog.Int("attached", len(attach)),
		slog.Int("detached", len(detach)),
	)
	if e.plugins != nil {
		for _, edge := range attach {
			e.plugins.EmitPermissionAttached(ctx, edge.RoleID, edge.PermissionID)
		}
		for _, edge := range detach {
			e.plugins.EmitPermissionDetached(ctx, edge.RoleID, edge.PermissionID)
		}
	}
	return nil
}

// loadRoles fetches roleIDs in input order, collecting unknown IDs into b.
func (e *Engine) loadRoles(ctx context.Context, b *batch, roleIDs []id.RoleID) ([]*role.Role, error) {
	out := make([]*role.Role, 0, len(roleIDs))
	seen := make(map[id.RoleID]struct{}, len(roleIDs))
	for _, rid := range roleIDs {
		if _, dup := seen[rid]; dup {
			continue
		}
		seen[rid] = struct{}{}
		r, err := e.GetRole(ctx, rid)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			b.fail(rid.String(), err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (e *Engine) ensureRoleNameFree(ctx context.Context, g, tenant, name string) error {
	_, err := e.store.GetRoleByName(ctx, g, tenant, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: role %q in guard %q", ErrDuplicate, name, g)
	case errors.Is(err, store.ErrNotFound):
		return nil
	}
	return err
}

func guardMismatch(r *role.Role, p *permission.Permission) error {
	return fmt.Errorf("%w: permission %q is in guard %q, role %q in guard %q",
		ErrGuardMismatch, p.Name, p.Guard, r.Name, r.Guard)
}

func roleKeys(roleIDs []id.RoleID) []string {
	keys := make([]string, len(roleIDs))
	for i, rid := range roleIDs {
		keys[i] = roleKey(rid.String())
	}
	return keys
}

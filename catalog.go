package warrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xraph/warrant/discovery"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store"
)

// CreatePermission creates a permission in a guard. An empty guard means
// the default guard.
func (e *Engine) CreatePermission(ctx context.Context, name, guardName string) (*permission.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	g, err := e.resolveGuard(guardName)
	if err != nil {
		return nil, err
	}

	unlock := e.locks.lock(permissionNameKey(g, name))
	defer unlock()

	if err := e.ensurePermissionAbsent(ctx, g, name); err != nil {
		return nil, err
	}
	ts := now()
	p := &permission.Permission{ID: id.NewPermissionID(), Name: name, Guard: g, CreatedAt: ts, UpdatedAt: ts}
	if err := e.store.CreatePermissions(ctx, []*permission.Permission{p}); err != nil {
		return nil, translate(err, ErrPermissionNotFound)
	}
	e.invalidateAll(ctx)

	e.logger.Debug("permission created",
		slog.String("permission_id", p.ID.String()),
		slog.String("name", p.Name),
		slog.String("guard", p.Guard),
	)
	if e.plugins != nil {
		e.plugins.EmitPermissionCreated(ctx, p)
	}
	return p, nil
}

// GetPermission returns a permission by ID.
func (e *Engine) GetPermission(ctx context.Context, permID id.PermissionID) (*permission.Permission, error) {
	p, err := e.store.GetPermission(ctx, permID)
	if err != nil {
		return nil, translate(err, ErrPermissionNotFound)
	}
	return p, nil
}

// DeletePermission deletes a permission with its role edges and direct
// grants. Being in use is not an error.
func (e *Engine) DeletePermission(ctx context.Context, permID id.PermissionID) error {
	if _, err := e.GetPermission(ctx, permID); err != nil {
		return err
	}
	return e.deletePermissions(ctx, []id.PermissionID{permID})
}

// DeletePermissions deletes several permissions. If any ID is unknown
// nothing is deleted and a *BatchError lists every unknown ID.
func (e *Engine) DeletePermissions(ctx context.Context, permIDs []id.PermissionID) error {
	b := newBatch("delete permissions")
	for _, pid := range permIDs {
		if _, err := e.GetPermission(ctx, pid); err != nil {
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			b.fail(pid.String(), err)
		}
	}
	if err := b.err(); err != nil {
		return err
	}
	return e.deletePermissions(ctx, id.Unique(permIDs))
}

func (e *Engine) deletePermissions(ctx context.Context, permIDs []id.PermissionID) error {
	if len(permIDs) == 0 {
		return nil
	}
	if err := e.store.DeletePermissions(ctx, permIDs); err != nil {
		return translate(err, ErrPermissionNotFound)
	}
	e.invalidateAll(ctx)

	for _, pid := range permIDs {
		e.logger.Debug("permission deleted", slog.String("permission_id", pid.String()))
		if e.plugins != nil {
			e.plugins.EmitPermissionDeleted(ctx, pid)
		}
	}
	return nil
}

// PermissionsByGuard returns every permission of a guard sorted by name.
func (e *Engine) PermissionsByGuard(ctx context.Context, guardName string) ([]*permission.Permission, error) {
	g, err := e.resolveGuard(guardName)
	if err != nil {
		return nil, err
	}
	return e.store.ListPermissions(ctx, &permission.ListFilter{Guard: g})
}

// ListPermissions returns permissions matching filter sorted by name.
func (e *Engine) ListPermissions(ctx context.Context, filter permission.ListFilter) ([]*permission.Permission, error) {
	if err := e.checkFilterGuard(filter.Guard); err != nil {
		return nil, err
	}
	return e.store.ListPermissions(ctx, &filter)
}

// CountPermissions counts permissions matching filter, ignoring pagination.
func (e *Engine) CountPermissions(ctx context.Context, filter permission.ListFilter) (int64, error) {
	if err := e.checkFilterGuard(filter.Guard); err != nil {
		return 0, err
	}
	return e.store.CountPermissions(ctx, &filter)
}

// PermissionRoles returns the roles visible in tenant that hold the
// permission, sorted by name. With tenancy disabled tenant is ignored.
func (e *Engine) PermissionRoles(ctx context.Context, permID id.PermissionID, tenant string) ([]*role.Role, error) {
	p, err := e.GetPermission(ctx, permID)
	if err != nil {
		return nil, err
	}
	scoped := e.scoper.Roles(role.ListFilter{Guard: p.Guard}, strings.TrimSpace(tenant))
	return e.store.ListRolesByPermission(ctx, permID, &scoped)
}

// DiscoverPermissions proposes the permissions declared by the discovery
// source that do not exist yet, sorted by guard then name. It writes
// nothing. Candidates in unconfigured guards are skipped.
func (e *Engine) DiscoverPermissions(ctx context.Context) ([]discovery.Candidate, error) {
	decls, err := e.declarations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]discovery.Candidate, 0)
	for _, c := range discovery.Expand(decls, e.guards.Default(), e.namer) {
		if !e.guards.Has(c.Guard) {
			e.logger.Warn("discovery candidate in unknown guard skipped",
				slog.String("name", c.Name),
				slog.String("guard", c.Guard),
			)
			continue
		}
		_, err := e.store.GetPermissionByName(ctx, c.Guard, c.Name)
		switch {
		case err == nil:
			continue
		case errors.Is(err, store.ErrNotFound):
			out = append(out, c)
		default:
			return nil, err
		}
	}
	return out, nil
}

// DiscoveredResources returns the resource names declared by the discovery
// source, sorted. They feed the resource filter of ListPermissions.
func (e *Engine) DiscoveredResources(ctx context.Context) ([]string, error) {
	decls, err := e.declarations(ctx)
	if err != nil {
		return nil, err
	}
	return discovery.Resources(decls), nil
}

// ImportPermissions creates every candidate that does not exist yet and
// returns the created permissions. Existing candidates are skipped. If any
// candidate is invalid nothing is created and a *BatchError lists them.
func (e *Engine) ImportPermissions(ctx context.Context, candidates []discovery.Candidate) ([]*permission.Permission, error) {
	b := newBatch("import permissions")
	valid := make([]discovery.Candidate, 0, len(candidates))
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		g, err := e.resolveGuard(c.Guard)
		switch {
		case name == "":
			b.fail(candidateID(c), ErrEmptyName)
			continue
		case err != nil:
			b.fail(candidateID(c), err)
			continue
		}
		c = discovery.Candidate{Name: name, Guard: g}
		valid = append(valid, c)
		keys = append(keys, permissionNameKey(g, name))
	}
	if err := b.err(); err != nil {
		return nil, err
	}

	unlock := e.locks.lock(keys...)
	defer unlock()

	ts := now()
	seen := make(map[discovery.Candidate]struct{}, len(valid))
	created := make([]*permission.Permission, 0, len(valid))
	for _, c := range valid {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		_, err := e.store.GetPermissionByName(ctx, c.Guard, c.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		created = append(created, &permission.Permission{
			ID: id.NewPermissionID(), Name: c.Name, Guard: c.Guard, CreatedAt: ts, UpdatedAt: ts,
		})
	}
	if len(created) == 0 {
		return created, nil
	}
	if err := e.store.CreatePermissions(ctx, created); err != nil {
		return nil, translate(err, ErrPermissionNotFound)
	}
	e.invalidateAll(ctx)

	e.logger.Debug("permissions imported", slog.Int("count", len(created)))
	if e.plugins != nil {
		for _, p := range created {
			e.plugins.EmitPermissionCreated(ctx, p)
		}
	}
	return created, nil
}

func (e *Engine) declarations(ctx context.Context) ([]discovery.Declaration, error) {
	if e.source == nil {
		return nil, nil
	}
	decls, err := e.source.Declarations(ctx)
	if err != nil {
		return nil, fmt.Errorf("warrant: discover permissions: %w", err)
	}
	return decls, nil
}

func (e *Engine) ensurePermissionAbsent(ctx context.Context, g, name string) error {
	_, err := e.store.GetPermissionByName(ctx, g, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: permission %q in guard %q", ErrDuplicate, name, g)
	case errors.Is(err, store.ErrNotFound):
		return nil
	}
	return err
}

// loadPermissions fetches permIDs in input order, collecting unknown IDs
// into b.
func (e *Engine) loadPermissions(ctx context.Context, b *batch, permIDs []id.PermissionID) ([]*permission.Permission, error) {
	out := make([]*permission.Permission, 0, len(permIDs))
	seen := make(map[id.PermissionID]struct{}, len(permIDs))
	for _, pid := range permIDs {
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}
		p, err := e.GetPermission(ctx, pid)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			b.fail(pid.String(), err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (e *Engine) checkFilterGuard(g string) error {
	if g == "" {
		return nil
	}
	_, err := e.resolveGuard(g)
	return err
}

func candidateID(c discovery.Candidate) string { return c.Guard + ":" + c.Name }

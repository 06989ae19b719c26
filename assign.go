package warrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/role"
)

// GrantRole assigns a role to a subject. The subject's guard must equal the
// role's guard, and with tenancy enabled the role must be visible in the
// subject's tenant. Granting a held role is a no-op.
func (e *Engine) GrantRole(ctx context.Context, subject Subject, roleID id.RoleID) error {
	s, err := e.normalizeSubject(subject)
	if err != nil {
		return err
	}
	r, err := e.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if err := e.checkRoleForSubject(r, s); err != nil {
		return err
	}
	return e.createAssignments(ctx, s, []*role.Role{r})
}

// GrantRoles assigns several roles to a subject. Every role is validated
// first; if any is unknown or not grantable nothing is assigned and a
// *BatchError lists every failing role ID.
func (e *Engine) GrantRoles(ctx context.Context, subject Subject, roleIDs []id.RoleID) error {
	s, err := e.normalizeSubject(subject)
	if err != nil {
		return err
	}
	b := newBatch("grant roles")
	roles, err := e.loadRoles(ctx, b, roleIDs)
	if err != nil {
		return err
	}
	grantable := make([]*role.Role, 0, len(roles))
	for _, r := range roles {
		if err := e.checkRoleForSubject(r, s); err != nil {
			b.fail(r.ID.String(), err)
			continue
		}
		grantable = append(grantable, r)
	}
	if err := b.err(); err != nil {
		return err
	}
	return e.createAssignments(ctx, s, grantable)
}

// RevokeRole removes a role from a subject. Revoking a role the subject
// does not hold is a no-op.
func (e *Engine) RevokeRole(ctx context.Context, subject Subject, roleID id.RoleID) error {
	s, err := e.normalizeSubject(subject)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(subjectKey(s))
	defer unlock()

	key := assignment.Key{
		TenantID:    e.scoper.EdgeTenant(s.Tenant),
		RoleID:      roleID,
		SubjectKind: string(s.Kind),
		SubjectID:   s.ID,
	}
	existing, err := e.store.ListAssignments(ctx, &assignment.ListFilter{
		RoleID:      &roleID,
		SubjectKind: key.SubjectKind,
		SubjectID:   key.SubjectID,
		Scoped:      true,
		TenantIDs:   []string{key.TenantID},
	})
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	if err := e.store.DeleteAssignment(ctx, key); err != nil {
		return err
	}
	e.invalidateSubject(ctx, s)

	e.logger.Debug("role revoked",
		slog.String("role_id", roleID.String()),
		slog.String("subject", string(s.Kind)+":"+s.ID),
		slog.String("tenant_id", key.TenantID),
	)
	if e.plugins != nil {
		e.plugins.EmitRoleUnassigned(ctx, existing[0])
	}
	return nil
}

// GrantPermission grants a permission straight to a subject. The subject's
// guard must equal the permission's guard; with tenancy enabled the grant
// is recorded under the subject's tenant, which is then required. Granting
// a held permission is a no-op.
func (e *Engine) GrantPermission(ctx context.Context, subject Subject, permID id.PermissionID) error {
	s, err := e.normalizeSubject(subject)
	if err != nil {
		return err
	}
	p, err := e.GetPermission(ctx, permID)
	if err != nil {
		return err
	}
	if p.Guard != s.Guard {
		return fmt.Errorf("%w: permission %q is in guard %q, subject in guard %q",
			ErrGuardMismatch, p.Name, p.Guard, s.Guard)
	}
	if e.config.TenancyEnabled && s.Tenant == "" {
		return ErrTenantRequired
	}

	unlock := e.locks.lock(subjectKey(s))
	defer unlock()

	g := &grant.Grant{
		ID:           id.NewGrantID(),
		TenantID:     e.scoper.EdgeTenant(s.Tenant),
		PermissionID: p.ID,
		Guard:        p.Guard,
		SubjectKind:  string(s.Kind),
		SubjectID:    s.ID,
		CreatedAt:    now(),
	}
	existing, err := e.store.ListGrants(ctx, grantKeyFilter(g.Key()))
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if err := e.store.CreateGrants(ctx, []*grant.Grant{g}); err != nil {
		return translate(err, ErrPermissionNotFound)
	}
	e.invalidateSubject(ctx, s)

	e.logger.Debug("permission granted",
		slog.String("permission_id", p.ID.String()),
		slog.String("subject", string(s.Kind)+":"+s.ID),
		slog.String("tenant_id", g.TenantID),
	)
	if e.plugins != nil {
		e.plugins.EmitPermissionGranted(ctx, g)
	}
	return nil
}

// RevokePermission removes a direct grant. Revoking a permission that was
// not granted is a no-op.
func (e *Engine) RevokePermission(ctx context.Context, subject Subject, permID id.PermissionID) error {
	s, err := e.normalizeSubject(subject)
	if err != nil {
		return err
	}
	unlock := e.locks.lock(subjectKey(s))
	defer unlock()

	key := grant.Key{
		TenantID:     e.scoper.EdgeTenant(s.Tenant),
		PermissionID: permID,
		SubjectKind:  string(s.Kind),
		SubjectID:    s.ID,
	}
	existing, err := e.store.ListGrants(ctx, grantKeyFilter(key))
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return nil
	}
	if err := e.store.DeleteGrant(ctx, key); err != nil {
		return err
	}
	e.invalidateSubject(ctx, s)

	e.logger.Debug("permission revoked",
		slog.String("permission_id", permID.String()),
		slog.String("subject", string(s.Kind)+":"+s.ID),
	)
	if e.plugins != nil {
		e.plugins.EmitPermissionRevoked(ctx, existing[0])
	}
	return nil
}

// SubjectRoles returns the roles a subject holds in its guard and active
// tenant, sorted by name.
func (e *Engine) SubjectRoles(ctx context.Context, subject Subject) ([]*role.Role, error) {
	s, err := e.normalizeSubject(subject)
	if err != nil {
		return nil, err
	}
	roles, err := e.subjectRoles(ctx, s, s.Guard)
	if err != nil {
		return nil, err
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

// SubjectPermissions returns the names of every permission a subject holds
// in a guard, directly or through roles, sorted and deduplicated. An empty
// guard means the subject's guard.
func (e *Engine) SubjectPermissions(ctx context.Context, subject Subject, guardName string) ([]string, error) {
	s, g, err := e.checkInput(subject, guardName)
	if err != nil {
		return nil, err
	}
	names := make(map[string]struct{})

	grants, err := e.subjectGrants(ctx, s, g, nil)
	if err != nil {
		return nil, err
	}
	for _, gr := range grants {
		p, err := e.GetPermission(ctx, gr.PermissionID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		names[p.Name] = struct{}{}
	}

	roles, err := e.subjectRoles(ctx, s, g)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		perms, err := e.store.ListPermissionsByRole(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			names[p.Name] = struct{}{}
		}
	}

	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (e *Engine) createAssignments(ctx context.Context, s Subject, roles []*role.Role) error {
	if len(roles) == 0 {
		return nil
	}
	unlock := e.locks.lock(subjectKey(s))
	defer unlock()

	tenant := e.scoper.EdgeTenant(s.Tenant)
	held, err := e.store.ListAssignments(ctx, &assignment.ListFilter{
		SubjectKind: string(s.Kind),
		SubjectID:   s.ID,
		Scoped:      true,
		TenantIDs:   []string{tenant},
	})
	if err != nil {
		return err
	}
	heldRoles := make(map[id.RoleID]struct{}, len(held))
	for _, a := range held {
		heldRoles[a.RoleID] = struct{}{}
	}

	ts := now()
	fresh := make([]*assignment.Assignment, 0, len(roles))
	for _, r := range roles {
		if _, ok := heldRoles[r.ID]; ok {
			continue
		}
		fresh = append(fresh, &assignment.Assignment{
			ID:          id.NewAssignmentID(),
			TenantID:    tenant,
			RoleID:      r.ID,
			Guard:       r.Guard,
			SubjectKind: string(s.Kind),
			SubjectID:   s.ID,
			CreatedAt:   ts,
		})
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := e.store.CreateAssignments(ctx, fresh); err != nil {
		return translate(err, ErrRoleNotFound)
	}
	e.invalidateSubject(ctx, s)

	for _, a := range fresh {
		e.logger.Debug("role granted",
			slog.String("role_id", a.RoleID.String()),
			slog.String("subject", a.SubjectKind+":"+a.SubjectID),
			slog.String("tenant_id", a.TenantID),
		)
		if e.plugins != nil {
			e.plugins.EmitRoleAssigned(ctx, a)
		}
	}
	return nil
}

func (e *Engine) checkRoleForSubject(r *role.Role, s Subject) error {
	if r.Guard != s.Guard {
		return fmt.Errorf("%w: role %q is in guard %q, subject in guard %q",
			ErrGuardMismatch, r.Name, r.Guard, s.Guard)
	}
	if !e.scoper.Permits(r.TenantID, s.Tenant) {
		return fmt.Errorf("%w: role %q is not visible in tenant %q", ErrTenantMismatch, r.Name, s.Tenant)
	}
	return nil
}

// subjectRoles returns the roles behind the subject's in-scope
// assignments in guard g that are still visible in its tenant.
func (e *Engine) subjectRoles(ctx context.Context, s Subject, g string) ([]*role.Role, error) {
	filter := e.scoper.Assignments(assignment.ListFilter{
		SubjectKind: string(s.Kind),
		SubjectID:   s.ID,
		Guard:       g,
	}, s.Tenant)
	as, err := e.store.ListAssignments(ctx, &filter)
	if err != nil {
		return nil, err
	}
	roles := make([]*role.Role, 0, len(as))
	for _, a := range as {
		r, err := e.GetRole(ctx, a.RoleID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !e.scoper.Permits(r.TenantID, s.Tenant) {
			continue
		}
		roles = append(roles, r)
	}
	return roles, nil
}

func (e *Engine) subjectGrants(ctx context.Context, s Subject, g string, permID *id.PermissionID) ([]*grant.Grant, error) {
	filter := e.scoper.Grants(grant.ListFilter{
		PermissionID: permID,
		SubjectKind:  string(s.Kind),
		SubjectID:    s.ID,
		Guard:        g,
	}, s.Tenant)
	return e.store.ListGrants(ctx, &filter)
}

func grantKeyFilter(k grant.Key) *grant.ListFilter {
	return &grant.ListFilter{
		PermissionID: &k.PermissionID,
		SubjectKind:  k.SubjectKind,
		SubjectID:    k.SubjectID,
		Scoped:       true,
		TenantIDs:    []string{k.TenantID},
	}
}

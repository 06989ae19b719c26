// Package memory provides an in-memory implementation of the warrant
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store"
)

// Compile-time interface checks.
var (
	_ role.Store       = (*Store)(nil)
	_ permission.Store = (*Store)(nil)
	_ assignment.Store = (*Store)(nil)
	_ grant.Store      = (*Store)(nil)
	_ store.Store      = (*Store)(nil)
)

// Store is a thread-safe in-memory store. Multi-entity writes happen under
// a single lock, which makes them atomic.
type Store struct {
	mu sync.RWMutex

	roles           map[string]*role.Role
	permissions     map[string]*permission.Permission
	rolePermissions map[string]map[string]struct{} // roleID -> set of permIDs
	assignments     map[assignment.Key]*assignment.Assignment
	grants          map[grant.Key]*grant.Grant
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		roles:           make(map[string]*role.Role),
		permissions:     make(map[string]*permission.Permission),
		rolePermissions: make(map[string]map[string]struct{}),
		assignments:     make(map[assignment.Key]*assignment.Assignment),
		grants:          make(map[grant.Key]*grant.Grant),
	}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Role Store
// ──────────────────────────────────────────────────

func (s *Store) CreateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findRoleLocked(r.Guard, r.TenantID, r.Name) != nil {
		return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) GetRole(_ context.Context, roleID id.RoleID) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.roles[roleID.String()]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, store.ErrNotFound)
	}
	return copyRole(r), nil
}

func (s *Store) GetRoleByName(_ context.Context, guard, tenantID, name string) (*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.findRoleLocked(guard, tenantID, name); r != nil {
		return copyRole(r), nil
	}
	return nil, fmt.Errorf("role %q: %w", name, store.ErrNotFound)
}

func (s *Store) UpdateRole(_ context.Context, r *role.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[r.ID.String()]; !ok {
		return fmt.Errorf("role %s: %w", r.ID, store.ErrNotFound)
	}
	if other := s.findRoleLocked(r.Guard, r.TenantID, r.Name); other != nil && other.ID != r.ID {
		return fmt.Errorf("role %q: %w", r.Name, store.ErrConflict)
	}
	s.roles[r.ID.String()] = copyRole(r)
	return nil
}

func (s *Store) DeleteRoles(_ context.Context, roleIDs []id.RoleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rid := range roleIDs {
		if _, ok := s.roles[rid.String()]; !ok {
			return fmt.Errorf("role %s: %w", rid, store.ErrNotFound)
		}
	}
	for _, rid := range roleIDs {
		delete(s.roles, rid.String())
		delete(s.rolePermissions, rid.String())
		for k := range s.assignments {
			if k.RoleID == rid {
				delete(s.assignments, k)
			}
		}
	}
	return nil
}

func (s *Store) ListRoles(_ context.Context, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filter.Empty() {
		return []*role.Role{}, nil
	}
	result := make([]*role.Role, 0, len(s.roles))
	for _, r := range s.roles {
		if !filter.Matches(r) {
			continue
		}
		c := copyRole(r)
		c.PermissionCount = s.countRolePermissionsLocked(r.ID.String())
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) ListRolesByPermission(_ context.Context, permID id.PermissionID, filter *role.ListFilter) ([]*role.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filter.Empty() {
		return []*role.Role{}, nil
	}
	pk := permID.String()
	result := make([]*role.Role, 0)
	for rk, perms := range s.rolePermissions {
		if _, ok := perms[pk]; !ok {
			continue
		}
		r, ok := s.roles[rk]
		if !ok || !filter.Matches(r) {
			continue
		}
		c := copyRole(r)
		c.PermissionCount = s.countRolePermissionsLocked(rk)
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) CountRoles(ctx context.Context, filter *role.ListFilter) (int64, error) {
	var f role.ListFilter
	if filter != nil {
		f = *filter
		f.Limit, f.Offset = 0, 0
	}
	list, err := s.ListRoles(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListRolePermissions(_ context.Context, roleID id.RoleID) ([]id.PermissionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms, ok := s.rolePermissions[roleID.String()]
	if !ok {
		return nil, nil
	}
	result := make([]id.PermissionID, 0, len(perms))
	for pid := range perms {
		parsed, err := id.ParsePermissionID(pid)
		if err == nil {
			result = append(result, parsed)
		}
	}
	return id.Unique(result), nil
}

func (s *Store) UpdatePermissionEdges(_ context.Context, attach, detach []role.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range attach {
		if _, ok := s.roles[e.RoleID.String()]; !ok {
			return fmt.Errorf("role %s: %w", e.RoleID, store.ErrNotFound)
		}
		if _, ok := s.permissions[e.PermissionID.String()]; !ok {
			return fmt.Errorf("permission %s: %w", e.PermissionID, store.ErrNotFound)
		}
	}
	for _, e := range attach {
		rk := e.RoleID.String()
		if s.rolePermissions[rk] == nil {
			s.rolePermissions[rk] = make(map[string]struct{})
		}
		s.rolePermissions[rk][e.PermissionID.String()] = struct{}{}
	}
	for _, e := range detach {
		if perms, ok := s.rolePermissions[e.RoleID.String()]; ok {
			delete(perms, e.PermissionID.String())
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Permission Store
// ──────────────────────────────────────────────────

func (s *Store) CreatePermissions(_ context.Context, ps []*permission.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		k := p.Guard + "\x00" + p.Name
		if _, dup := seen[k]; dup || s.findPermissionLocked(p.Guard, p.Name) != nil {
			return fmt.Errorf("permission %q: %w", p.Name, store.ErrConflict)
		}
		seen[k] = struct{}{}
	}
	for _, p := range ps {
		s.permissions[p.ID.String()] = copyPermission(p)
	}
	return nil
}

func (s *Store) GetPermission(_ context.Context, permID id.PermissionID) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.permissions[permID.String()]
	if !ok {
		return nil, fmt.Errorf("permission %s: %w", permID, store.ErrNotFound)
	}
	return copyPermission(p), nil
}

func (s *Store) GetPermissionByName(_ context.Context, guard, name string) (*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p := s.findPermissionLocked(guard, name); p != nil {
		return copyPermission(p), nil
	}
	return nil, fmt.Errorf("permission %q: %w", name, store.ErrNotFound)
}

func (s *Store) DeletePermissions(_ context.Context, permIDs []id.PermissionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pid := range permIDs {
		if _, ok := s.permissions[pid.String()]; !ok {
			return fmt.Errorf("permission %s: %w", pid, store.ErrNotFound)
		}
	}
	for _, pid := range permIDs {
		pk := pid.String()
		delete(s.permissions, pk)
		for _, perms := range s.rolePermissions {
			delete(perms, pk)
		}
		for k := range s.grants {
			if k.PermissionID == pid {
				delete(s.grants, k)
			}
		}
	}
	return nil
}

func (s *Store) ListPermissions(_ context.Context, filter *permission.ListFilter) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*permission.Permission, 0, len(s.permissions))
	for _, p := range s.permissions {
		if filter.Matches(p) {
			result = append(result, copyPermission(p))
		}
	}
	sortPermissions(result)
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) CountPermissions(ctx context.Context, filter *permission.ListFilter) (int64, error) {
	var f permission.ListFilter
	if filter != nil {
		f = *filter
		f.Limit, f.Offset = 0, 0
	}
	list, err := s.ListPermissions(ctx, &f)
	if err != nil {
		return 0, err
	}
	return int64(len(list)), nil
}

func (s *Store) ListPermissionsByRole(_ context.Context, roleID id.RoleID) ([]*permission.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	perms := s.rolePermissions[roleID.String()]
	result := make([]*permission.Permission, 0, len(perms))
	for pid := range perms {
		if p, ok := s.permissions[pid]; ok {
			result = append(result, copyPermission(p))
		}
	}
	sortPermissions(result)
	return result, nil
}

// ──────────────────────────────────────────────────
// Assignment Store
// ──────────────────────────────────────────────────

func (s *Store) CreateAssignments(_ context.Context, as []*assignment.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range as {
		if _, ok := s.roles[a.RoleID.String()]; !ok {
			return fmt.Errorf("role %s: %w", a.RoleID, store.ErrNotFound)
		}
	}
	for _, a := range as {
		if _, exists := s.assignments[a.Key()]; exists {
			continue
		}
		s.assignments[a.Key()] = copyAssignment(a)
	}
	return nil
}

func (s *Store) DeleteAssignment(_ context.Context, key assignment.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, key)
	return nil
}

func (s *Store) ListAssignments(_ context.Context, filter *assignment.ListFilter) ([]*assignment.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filter.Empty() {
		return []*assignment.Assignment{}, nil
	}
	result := make([]*assignment.Assignment, 0)
	for _, a := range s.assignments {
		if filter.Matches(a) {
			result = append(result, copyAssignment(a))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	if filter == nil {
		return result, nil
	}
	return applyPagination(result, filter.Limit, filter.Offset), nil
}

func (s *Store) ListSubjectsForRole(ctx context.Context, roleID id.RoleID) ([]*assignment.Assignment, error) {
	return s.ListAssignments(ctx, &assignment.ListFilter{RoleID: &roleID})
}

// ──────────────────────────────────────────────────
// Grant Store
// ──────────────────────────────────────────────────

func (s *Store) CreateGrants(_ context.Context, gs []*grant.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range gs {
		if _, ok := s.permissions[g.PermissionID.String()]; !ok {
			return fmt.Errorf("permission %s: %w", g.PermissionID, store.ErrNotFound)
		}
	}
	for _, g := range gs {
		if _, exists := s.grants[g.Key()]; exists {
			continue
		}
		s.grants[g.Key()] = copyGrant(g)
	}
	return nil
}

func (s *Store) DeleteGrant(_ context.Context, key grant.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, key)
	return nil
}

func (s *Store) ListGrants(_ context.Context, filter *grant.ListFilter) ([]*grant.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if filter.Empty() {
		return []*grant.Grant{}, nil
	}
	result := make([]*grant.Grant, 0)
	for _, g := range s.grants {
		if filter.Matches(g) {
			result = append(result, copyGrant(g))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (s *Store) findRoleLocked(guard, tenantID, name string) *role.Role {
	for _, r := range s.roles {
		if r.Guard == guard && r.TenantID == tenantID && r.Name == name {
			return r
		}
	}
	return nil
}

func (s *Store) findPermissionLocked(guard, name string) *permission.Permission {
	for _, p := range s.permissions {
		if p.Guard == guard && p.Name == name {
			return p
		}
	}
	return nil
}

func (s *Store) countRolePermissionsLocked(roleID string) int {
	n := 0
	for pid := range s.rolePermissions[roleID] {
		if _, ok := s.permissions[pid]; ok {
			n++
		}
	}
	return n
}

func sortPermissions(ps []*permission.Permission) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Name != ps[j].Name {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].Guard < ps[j].Guard
	})
}

func copyRole(r *role.Role) *role.Role {
	c := *r
	return &c
}

func copyPermission(p *permission.Permission) *permission.Permission {
	c := *p
	return &c
}

func copyAssignment(a *assignment.Assignment) *assignment.Assignment {
	c := *a
	return &c
}

func copyGrant(g *grant.Grant) *grant.Grant {
	c := *g
	return &c
}

func applyPagination[T any](items []*T, limit, offset int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset > 0 && offset >= len(items) {
		return []*T{}
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

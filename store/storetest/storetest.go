// Package storetest runs a shared behaviour suite against any store.Store
// backend. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store"
)

// Factory returns an empty, migrated store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite. Each subtest gets a fresh store from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"RoleTimestamps", testRoleTimestamps},
		{"DeleteRolesCascade", testDeleteRolesCascade},
		{"DeletePermissionsCascade", testDeletePermissionsCascade},
		{"BatchWritesAreAtomic", testBatchWritesAreAtomic},
		{"TenantScoping", testTenantScoping},
		{"OffsetWithoutLimit", testOffsetWithoutLimit},
		{"SearchIsLiteral", testSearchIsLiteral},
		{"RolesByPermission", testRolesByPermission},
		{"EngineCheck", testEngineCheck},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func seedRole(t *testing.T, s store.Store, name, tenant string) *role.Role {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	r := &role.Role{ID: id.NewRoleID(), Name: name, Guard: "web", TenantID: tenant, CreatedAt: now, UpdatedAt: now}
	if err := s.CreateRole(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return r
}

func seedPermission(t *testing.T, s store.Store, name string) *permission.Permission {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	p := &permission.Permission{ID: id.NewPermissionID(), Name: name, Guard: "web", CreatedAt: now, UpdatedAt: now}
	if err := s.CreatePermissions(context.Background(), []*permission.Permission{p}); err != nil {
		t.Fatal(err)
	}
	return p
}

func attach(t *testing.T, s store.Store, r *role.Role, ps ...*permission.Permission) {
	t.Helper()
	edges := make([]role.Edge, 0, len(ps))
	for _, p := range ps {
		edges = append(edges, role.Edge{RoleID: r.ID, PermissionID: p.ID})
	}
	if err := s.UpdatePermissionEdges(context.Background(), edges, nil); err != nil {
		t.Fatal(err)
	}
}

func names(roles []*role.Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = r.Name
	}
	return out
}

func sameNames(got []*role.Role, want ...string) bool {
	n := names(got)
	if len(n) != len(want) {
		return false
	}
	for i := range want {
		if n[i] != want[i] {
			return false
		}
	}
	return true
}

func testRoleTimestamps(t *testing.T, s store.Store) {
	ctx := context.Background()
	r := seedRole(t, s, "admin", "")

	got, err := s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Fatalf("created_at: want %v, got %v", r.CreatedAt, got.CreatedAt)
	}

	r.Name = "owner"
	r.UpdatedAt = r.UpdatedAt.Add(time.Hour)
	if err := s.UpdateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetRoleByName(ctx, "web", "", "owner")
	if err != nil {
		t.Fatal(err)
	}
	if !got.UpdatedAt.Equal(r.UpdatedAt) {
		t.Fatalf("updated_at: want %v, got %v", r.UpdatedAt, got.UpdatedAt)
	}

	dup := &role.Role{ID: id.NewRoleID(), Name: "owner", Guard: "web", CreatedAt: r.CreatedAt, UpdatedAt: r.CreatedAt}
	if err := s.CreateRole(ctx, dup); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func testDeleteRolesCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := seedRole(t, s, "a", "")
	b := seedRole(t, s, "b", "")
	keep := seedRole(t, s, "keep", "")
	p := seedPermission(t, s, "view Post")
	attach(t, s, a, p)
	attach(t, s, b, p)
	attach(t, s, keep, p)

	as := make([]*assignment.Assignment, 0, 3)
	for _, r := range []*role.Role{a, b, keep} {
		as = append(as, &assignment.Assignment{
			ID: id.NewAssignmentID(), RoleID: r.ID, Guard: "web",
			SubjectKind: "user", SubjectID: "u1", CreatedAt: time.Now().UTC(),
		})
	}
	if err := s.CreateAssignments(ctx, as); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteRoles(ctx, []id.RoleID{a.ID, b.ID}); err != nil {
		t.Fatal(err)
	}
	for _, gone := range []id.RoleID{a.ID, b.ID} {
		if _, err := s.GetRole(ctx, gone); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected %s deleted, got %v", gone, err)
		}
	}

	left, err := s.ListAssignments(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].RoleID != keep.ID {
		t.Fatalf("expected only the kept assignment, got %+v", left)
	}

	roles, err := s.ListRolesByPermission(ctx, p.ID, &role.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if !sameNames(roles, "keep") {
		t.Fatalf("expected edges of deleted roles gone, got %v", names(roles))
	}
}

func testDeletePermissionsCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	r := seedRole(t, s, "editor", "")
	p1 := seedPermission(t, s, "view Post")
	p2 := seedPermission(t, s, "edit Post")
	p3 := seedPermission(t, s, "view Comment")
	attach(t, s, r, p1, p2, p3)

	if err := s.DeletePermissions(ctx, []id.PermissionID{p1.ID, p2.ID}); err != nil {
		t.Fatal(err)
	}
	perms, err := s.ListRolePermissions(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 1 || perms[0] != p3.ID {
		t.Fatalf("expected only %s left, got %v", p3.ID, perms)
	}
	n, err := s.CountPermissions(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 permission, got %d", n)
	}
}

func testBatchWritesAreAtomic(t *testing.T, s store.Store) {
	ctx := context.Background()
	existing := seedPermission(t, s, "view Post")
	now := time.Now().UTC().Truncate(time.Second)

	fresh := &permission.Permission{ID: id.NewPermissionID(), Name: "edit Post", Guard: "web", CreatedAt: now, UpdatedAt: now}
	dup := &permission.Permission{ID: id.NewPermissionID(), Name: existing.Name, Guard: "web", CreatedAt: now, UpdatedAt: now}
	err := s.CreatePermissions(ctx, []*permission.Permission{fresh, dup})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.GetPermission(ctx, fresh.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected batch to roll back, got %v", err)
	}

	r := seedRole(t, s, "writer", "")
	a := &assignment.Assignment{
		ID: id.NewAssignmentID(), RoleID: r.ID, Guard: "web",
		SubjectKind: "user", SubjectID: "u1", CreatedAt: now,
	}
	again := *a
	again.ID = id.NewAssignmentID()
	if err := s.CreateAssignments(ctx, []*assignment.Assignment{a}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAssignments(ctx, []*assignment.Assignment{&again}); err != nil {
		t.Fatalf("re-assigning must be a no-op, got %v", err)
	}
	list, err := s.ListSubjectsForRole(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("expected the original assignment only, got %+v", list)
	}

	if err := s.DeleteRoles(ctx, []id.RoleID{r.ID, id.NewRoleID()}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found for a partially missing batch, got %v", err)
	}
	if _, err := s.GetRole(ctx, r.ID); err != nil {
		t.Fatalf("expected failed batch delete to keep the role, got %v", err)
	}
}

func testTenantScoping(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedRole(t, s, "b-editor", "t1")
	seedRole(t, s, "a-admin", "t1")
	seedRole(t, s, "viewer", "t2")
	seedRole(t, s, "global", "")

	tests := []struct {
		name   string
		filter *role.ListFilter
		want   []string
	}{
		{"single tenant", &role.ListFilter{Scoped: true, TenantIDs: []string{"t1"}}, []string{"a-admin", "b-editor"}},
		{"tenant and global", &role.ListFilter{Scoped: true, TenantIDs: []string{"t1", ""}}, []string{"a-admin", "b-editor", "global"}},
		{"empty scope", &role.ListFilter{Scoped: true}, nil},
		{"unscoped", nil, []string{"a-admin", "b-editor", "global", "viewer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListRoles(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if !sameNames(got, tt.want...) {
				t.Fatalf("want %v, got %v", tt.want, names(got))
			}
			n, err := s.CountRoles(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if int(n) != len(tt.want) {
				t.Fatalf("count: want %d, got %d", len(tt.want), n)
			}
		})
	}
}

func testOffsetWithoutLimit(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, n := range []string{"a", "b", "c", "d"} {
		seedRole(t, s, n, "")
		seedPermission(t, s, "view "+n)
	}

	roles, err := s.ListRoles(ctx, &role.ListFilter{Offset: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !sameNames(roles, "d") {
		t.Fatalf("expected [d], got %v", names(roles))
	}

	perms, err := s.ListPermissions(ctx, &permission.ListFilter{Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 2 || perms[0].Name != "view c" {
		t.Fatalf("expected last two permissions, got %+v", perms)
	}

	roles, err = s.ListRoles(ctx, &role.ListFilter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !sameNames(roles, "b", "c") {
		t.Fatalf("expected [b c], got %v", names(roles))
	}
}

func testSearchIsLiteral(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedRole(t, s, "team_lead", "")
	seedRole(t, s, "teamzlead", "")
	seedRole(t, s, "my team", "")
	seedPermission(t, s, "view 100% Report")
	seedPermission(t, s, "view 1000 Report")

	tests := []struct {
		search string
		want   []string
	}{
		{"_", []string{"team_lead"}},
		{"TEAM_", []string{"team_lead"}},
		{"TEAM", []string{"my team", "team_lead", "teamzlead"}},
		{"%", nil},
	}
	for _, tt := range tests {
		got, err := s.ListRoles(ctx, &role.ListFilter{Search: tt.search})
		if err != nil {
			t.Fatal(err)
		}
		if !sameNames(got, tt.want...) {
			t.Fatalf("search %q: want %v, got %v", tt.search, tt.want, names(got))
		}
	}

	perms, err := s.ListPermissions(ctx, &permission.ListFilter{Search: "0%"})
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 1 || perms[0].Name != "view 100% Report" {
		t.Fatalf("expected the literal percent match, got %+v", perms)
	}
}

func testRolesByPermission(t *testing.T, s store.Store) {
	ctx := context.Background()
	writer := seedRole(t, s, "writer", "t1")
	admin := seedRole(t, s, "admin", "t1")
	other := seedRole(t, s, "editor", "t2")
	global := seedRole(t, s, "root", "")
	seedRole(t, s, "reader", "t1")
	p := seedPermission(t, s, "edit Post")
	extra := seedPermission(t, s, "view Post")
	attach(t, s, writer, p)
	attach(t, s, admin, p, extra)
	attach(t, s, other, p)
	attach(t, s, global, p)

	tests := []struct {
		name   string
		filter *role.ListFilter
		want   []string
	}{
		{"tenant", &role.ListFilter{Scoped: true, TenantIDs: []string{"t1"}}, []string{"admin", "writer"}},
		{"tenant and global", &role.ListFilter{Scoped: true, TenantIDs: []string{"t1", ""}}, []string{"admin", "root", "writer"}},
		{"empty scope", &role.ListFilter{Scoped: true}, nil},
		{"unscoped", &role.ListFilter{}, []string{"admin", "editor", "root", "writer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListRolesByPermission(ctx, p.ID, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if !sameNames(got, tt.want...) {
				t.Fatalf("want %v, got %v", tt.want, names(got))
			}
		})
	}

	got, err := s.ListRolesByPermission(ctx, p.ID, &role.ListFilter{Scoped: true, TenantIDs: []string{"t1"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].PermissionCount != 2 {
		t.Fatalf("expected admin first with 2 permissions, got %+v", got)
	}
}

func testEngineCheck(t *testing.T, s store.Store) {
	ctx := context.Background()
	eng, err := warrant.NewEngine(warrant.WithStore(s))
	if err != nil {
		t.Fatal(err)
	}

	p, err := eng.CreatePermission(ctx, "edit Post", "")
	if err != nil {
		t.Fatal(err)
	}
	r, err := eng.CreateRole(ctx, "writer", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID}); err != nil {
		t.Fatal(err)
	}

	u := warrant.Subject{Kind: warrant.SubjectUser, ID: "u1"}
	if err := eng.GrantRole(ctx, u, r.ID); err != nil {
		t.Fatal(err)
	}
	ok, err := eng.Can(ctx, u, "edit Post", "")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected permission through role")
	}

	if err := eng.RevokeRole(ctx, u, r.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.GrantPermission(ctx, u, p.ID); err != nil {
		t.Fatal(err)
	}
	ok, err = eng.Can(ctx, u, "edit Post", "")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected permission through direct grant")
	}

	if err := eng.DeletePermission(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	ok, err = eng.Can(ctx, u, "edit Post", "")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no permission after delete")
	}
}

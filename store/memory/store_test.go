package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store"
	"github.com/xraph/warrant/store/storetest"
)

func seedPermission(t *testing.T, s *Store, name, guard string) *permission.Permission {
	t.Helper()
	p := &permission.Permission{ID: id.NewPermissionID(), Name: name, Guard: guard}
	if err := s.CreatePermissions(context.Background(), []*permission.Permission{p}); err != nil {
		t.Fatal(err)
	}
	return p
}

func seedRole(t *testing.T, s *Store, name, guard, tenant string) *role.Role {
	t.Helper()
	r := &role.Role{ID: id.NewRoleID(), Name: name, Guard: guard, TenantID: tenant}
	if err := s.CreateRole(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRoleCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := seedRole(t, s, "admin", "web", "t1")

	got, err := s.GetRole(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "admin" {
		t.Fatalf("expected admin, got %s", got.Name)
	}

	got, err = s.GetRoleByName(ctx, "web", "t1", "admin")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != r.ID {
		t.Fatal("name lookup mismatch")
	}

	// Same name in another tenant and in the global bucket is allowed.
	seedRole(t, s, "admin", "web", "t2")
	seedRole(t, s, "admin", "web", "")

	err = s.CreateRole(ctx, &role.Role{ID: id.NewRoleID(), Name: "admin", Guard: "web", TenantID: "t1"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	r.Name = "owner"
	if err := s.UpdateRole(ctx, r); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetRole(ctx, r.ID)
	if got.Name != "owner" {
		t.Fatal("update failed")
	}

	count, _ := s.CountRoles(ctx, &role.ListFilter{Scoped: true, TenantIDs: []string{"t1"}})
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	if err := s.DeleteRoles(ctx, []id.RoleID{r.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRole(ctx, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestListRolesScoping(t *testing.T) {
	ctx := context.Background()
	s := New()

	seedRole(t, s, "b-editor", "web", "t1")
	seedRole(t, s, "a-admin", "web", "t1")
	seedRole(t, s, "viewer", "web", "t2")
	seedRole(t, s, "global", "web", "")

	list, _ := s.ListRoles(ctx, &role.ListFilter{Scoped: true, TenantIDs: []string{"t1"}})
	if len(list) != 2 || list[0].Name != "a-admin" || list[1].Name != "b-editor" {
		t.Fatalf("unexpected tenant listing: %+v", list)
	}

	list, _ = s.ListRoles(ctx, &role.ListFilter{Scoped: true, TenantIDs: []string{"t1", ""}})
	if len(list) != 3 {
		t.Fatalf("expected 3 roles with global bucket, got %d", len(list))
	}

	list, _ = s.ListRoles(ctx, &role.ListFilter{Scoped: true})
	if len(list) != 0 {
		t.Fatalf("expected empty scope to match nothing, got %d", len(list))
	}

	list, _ = s.ListRoles(ctx, nil)
	if len(list) != 4 {
		t.Fatalf("expected 4 roles unscoped, got %d", len(list))
	}

	list, _ = s.ListRoles(ctx, &role.ListFilter{Limit: 2, Offset: 3})
	if len(list) != 1 {
		t.Fatalf("expected 1 role on last page, got %d", len(list))
	}
}

func TestPermissionCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := seedPermission(t, s, "view Post", "web")

	got, err := s.GetPermissionByName(ctx, "web", "view Post")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != p.ID {
		t.Fatal("name lookup mismatch")
	}

	dup := &permission.Permission{ID: id.NewPermissionID(), Name: "view Post", Guard: "web"}
	fresh := &permission.Permission{ID: id.NewPermissionID(), Name: "edit Post", Guard: "web"}
	err = s.CreatePermissions(ctx, []*permission.Permission{fresh, dup})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := s.GetPermission(ctx, fresh.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatal("expected batch create to be all-or-nothing")
	}

	// Same name under another guard is a different permission.
	seedPermission(t, s, "view Post", "api")

	if err := s.DeletePermissions(ctx, []id.PermissionID{p.ID}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetPermission(ctx, p.ID); err == nil {
		t.Fatal("expected not found")
	}
}

func TestListPermissionsFilter(t *testing.T) {
	ctx := context.Background()
	s := New()

	seedPermission(t, s, "view Post", "web")
	seedPermission(t, s, "delete Post", "web")
	seedPermission(t, s, "view Comment", "web")
	seedPermission(t, s, "view Post", "api")

	list, _ := s.ListPermissions(ctx, &permission.ListFilter{Guard: "web"})
	if len(list) != 3 || list[0].Name != "delete Post" {
		t.Fatalf("expected sorted web permissions, got %+v", list)
	}

	list, _ = s.ListPermissions(ctx, &permission.ListFilter{Resources: []string{"post"}})
	if len(list) != 3 {
		t.Fatalf("expected 3 Post permissions, got %d", len(list))
	}

	count, _ := s.CountPermissions(ctx, &permission.ListFilter{Search: "VIEW", Limit: 1})
	if count != 3 {
		t.Fatalf("expected count to ignore pagination, got %d", count)
	}
}

func TestPermissionEdges(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := seedRole(t, s, "editor", "web", "")
	p1 := seedPermission(t, s, "view Post", "web")
	p2 := seedPermission(t, s, "edit Post", "web")

	attach := []role.Edge{{RoleID: r.ID, PermissionID: p1.ID}, {RoleID: r.ID, PermissionID: p2.ID}}
	if err := s.UpdatePermissionEdges(ctx, attach, nil); err != nil {
		t.Fatal(err)
	}
	// Re-attaching is a no-op.
	if err := s.UpdatePermissionEdges(ctx, attach[:1], nil); err != nil {
		t.Fatal(err)
	}

	perms, _ := s.ListRolePermissions(ctx, r.ID)
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(perms))
	}

	permObjs, _ := s.ListPermissionsByRole(ctx, r.ID)
	if len(permObjs) != 2 || permObjs[0].Name != "edit Post" {
		t.Fatalf("expected sorted permission objects, got %+v", permObjs)
	}

	roles, _ := s.ListRoles(ctx, nil)
	if roles[0].PermissionCount != 2 {
		t.Fatalf("expected permission count 2, got %d", roles[0].PermissionCount)
	}

	missing := role.Edge{RoleID: r.ID, PermissionID: id.NewPermissionID()}
	if err := s.UpdatePermissionEdges(ctx, []role.Edge{missing}, attach); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	perms, _ = s.ListRolePermissions(ctx, r.ID)
	if len(perms) != 2 {
		t.Fatal("failed edge update must not detach")
	}

	if err := s.UpdatePermissionEdges(ctx, nil, attach[:1]); err != nil {
		t.Fatal(err)
	}
	perms, _ = s.ListRolePermissions(ctx, r.ID)
	if len(perms) != 1 || perms[0] != p2.ID {
		t.Fatalf("expected only p2 after detach, got %v", perms)
	}
}

func TestAssignments(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := seedRole(t, s, "admin", "web", "t1")
	a := &assignment.Assignment{
		ID:          id.NewAssignmentID(),
		TenantID:    "t1",
		RoleID:      r.ID,
		Guard:       "web",
		SubjectKind: "user",
		SubjectID:   "u1",
		CreatedAt:   time.Now(),
	}
	if err := s.CreateAssignments(ctx, []*assignment.Assignment{a}); err != nil {
		t.Fatal(err)
	}
	again := *a
	again.ID = id.NewAssignmentID()
	if err := s.CreateAssignments(ctx, []*assignment.Assignment{&again}); err != nil {
		t.Fatal(err)
	}

	subjects, _ := s.ListSubjectsForRole(ctx, r.ID)
	if len(subjects) != 1 || subjects[0].ID != a.ID {
		t.Fatalf("expected the original assignment only, got %+v", subjects)
	}

	list, _ := s.ListAssignments(ctx, &assignment.ListFilter{SubjectID: "u1", Scoped: true, TenantIDs: []string{"t2"}})
	if len(list) != 0 {
		t.Fatal("expected no assignments in t2")
	}

	// Deleting the role cascades to its assignments.
	if err := s.DeleteRoles(ctx, []id.RoleID{r.ID}); err != nil {
		t.Fatal(err)
	}
	list, _ = s.ListAssignments(ctx, nil)
	if len(list) != 0 {
		t.Fatalf("expected cascade, got %d assignments", len(list))
	}
}

func TestGrants(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := seedPermission(t, s, "view Post", "web")
	g := &grant.Grant{
		ID:           id.NewGrantID(),
		PermissionID: p.ID,
		Guard:        "web",
		SubjectKind:  "user",
		SubjectID:    "u1",
	}
	if err := s.CreateGrants(ctx, []*grant.Grant{g}); err != nil {
		t.Fatal(err)
	}

	list, _ := s.ListGrants(ctx, &grant.ListFilter{SubjectKind: "user", SubjectID: "u1"})
	if len(list) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(list))
	}

	if err := s.DeleteGrant(ctx, g.Key()); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteGrant(ctx, g.Key()); err != nil {
		t.Fatal("deleting a missing grant must be a no-op")
	}

	if err := s.CreateGrants(ctx, []*grant.Grant{g}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeletePermissions(ctx, []id.PermissionID{p.ID}); err != nil {
		t.Fatal(err)
	}
	list, _ = s.ListGrants(ctx, nil)
	if len(list) != 0 {
		t.Fatal("expected grants to cascade with the permission")
	}
}

func TestSharedSuite(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

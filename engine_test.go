package warrant_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/cache"
	"github.com/xraph/warrant/discovery"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
	"github.com/xraph/warrant/store/memory"
)

func newTestEngine(t *testing.T, opts ...warrant.Option) *warrant.Engine {
	t.Helper()
	opts = append([]warrant.Option{warrant.WithStore(memory.New())}, opts...)
	eng, err := warrant.NewEngine(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func tenancyConfig() warrant.Config {
	cfg := warrant.DefaultConfig()
	cfg.TenancyEnabled = true
	return cfg
}

func user(id string) warrant.Subject {
	return warrant.Subject{Kind: warrant.SubjectUser, ID: id}
}

func mustPermission(t *testing.T, eng *warrant.Engine, name, guard string) *permission.Permission {
	t.Helper()
	p, err := eng.CreatePermission(context.Background(), name, guard)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func mustRole(t *testing.T, eng *warrant.Engine, name, guard, tenant string) *role.Role {
	t.Helper()
	r, err := eng.CreateRole(context.Background(), name, guard, tenant)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func mustCan(t *testing.T, eng *warrant.Engine, s warrant.Subject, perm, guard string) bool {
	t.Helper()
	ok, err := eng.Can(context.Background(), s, perm, guard)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

func TestNewEngine_RequiresStore(t *testing.T) {
	if _, err := warrant.NewEngine(); err == nil {
		t.Fatal("expected error when store is nil")
	}
}

func TestGuards(t *testing.T) {
	cfg := warrant.DefaultConfig()
	cfg.DefaultGuard = "admin"
	cfg.Guards = []string{"web", "api", "web"}
	eng := newTestEngine(t, warrant.WithConfig(cfg))

	got := eng.Guards()
	want := []string{"admin", "api", "web"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if eng.DefaultGuard() != "admin" {
		t.Fatalf("expected default guard admin, got %s", eng.DefaultGuard())
	}

	if _, err := eng.CreatePermission(context.Background(), "view Post", "console"); !errors.Is(err, warrant.ErrValidation) {
		t.Fatalf("expected validation error for unknown guard, got %v", err)
	}
}

func TestDuplicatePermission(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	mustPermission(t, eng, "update Post", "web")

	_, err := eng.CreatePermission(ctx, "update Post", "web")
	if !errors.Is(err, warrant.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	// Surrounding whitespace does not make a new name.
	if _, err := eng.CreatePermission(ctx, "  update Post ", "web"); !errors.Is(err, warrant.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for padded name, got %v", err)
	}
	// Same name in another guard is fine.
	if _, err := eng.CreatePermission(ctx, "update Post", "api"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CreatePermission(ctx, "   ", "web"); !errors.Is(err, warrant.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank name, got %v", err)
	}
}

func TestPermissionsByGuardSorted(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	mustPermission(t, eng, "view Post", "web")
	mustPermission(t, eng, "create Post", "web")
	mustPermission(t, eng, "delete Post", "api")

	got, err := eng.PermissionsByGuard(ctx, "web")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Name != "create Post" || got[1].Name != "view Post" {
		t.Fatalf("unexpected order: %+v", got)
	}
	// Empty guard means the default guard.
	got, _ = eng.PermissionsByGuard(ctx, "")
	if len(got) != 2 {
		t.Fatalf("expected default guard listing, got %d", len(got))
	}
}

func TestCrossGuardAssignLeavesSetUnchanged(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	pWeb := mustPermission(t, eng, "view Post", "web")
	pAPI := mustPermission(t, eng, "update Post", "api")

	if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{pWeb.ID}); err != nil {
		t.Fatal(err)
	}

	err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{pAPI.ID})
	if !errors.Is(err, warrant.ErrGuardMismatch) {
		t.Fatalf("expected ErrGuardMismatch, got %v", err)
	}
	// A mixed set is rejected as a whole.
	err = eng.SyncPermissions(ctx, r.ID, []id.PermissionID{pAPI.ID})
	if !errors.Is(err, warrant.ErrGuardMismatch) {
		t.Fatalf("expected ErrGuardMismatch from sync, got %v", err)
	}

	perms, err := eng.RolePermissions(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(perms) != 1 || perms[0].ID != pWeb.ID {
		t.Fatalf("expected role set unchanged, got %+v", perms)
	}
}

func TestAssignPermissionsIdempotentAndRevoke(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	p1 := mustPermission(t, eng, "view Post", "web")
	p2 := mustPermission(t, eng, "update Post", "web")

	for range 2 {
		if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p1.ID, p2.ID, p1.ID}); err != nil {
			t.Fatal(err)
		}
	}
	perms, _ := eng.RolePermissions(ctx, r.ID)
	if len(perms) != 2 {
		t.Fatalf("expected 2 permissions, got %d", len(perms))
	}

	// Revoking a permission that is not attached is a no-op.
	other := mustPermission(t, eng, "delete Post", "web")
	if err := eng.RevokePermissions(ctx, r.ID, []id.PermissionID{p1.ID, other.ID}); err != nil {
		t.Fatal(err)
	}
	if err := eng.RevokePermissions(ctx, r.ID, []id.PermissionID{p1.ID}); err != nil {
		t.Fatal(err)
	}
	perms, _ = eng.RolePermissions(ctx, r.ID)
	if len(perms) != 1 || perms[0].ID != p2.ID {
		t.Fatalf("expected only p2, got %+v", perms)
	}

	missing := id.NewPermissionID()
	err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p1.ID, missing})
	var be *warrant.BatchError
	if !errors.As(err, &be) || !errors.Is(err, warrant.ErrNotFound) {
		t.Fatalf("expected batch not-found error, got %v", err)
	}
	if ids := be.InvalidIDs(); len(ids) != 1 || ids[0] != missing.String() {
		t.Fatalf("expected exactly the missing id, got %v", ids)
	}
	perms, _ = eng.RolePermissions(ctx, r.ID)
	if len(perms) != 1 {
		t.Fatal("failed assign must not attach the valid permission")
	}
}

func TestSyncPermissions(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	p1 := mustPermission(t, eng, "a", "web")
	p2 := mustPermission(t, eng, "b", "web")
	p3 := mustPermission(t, eng, "c", "web")

	if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p1.ID, p2.ID}); err != nil {
		t.Fatal(err)
	}
	if err := eng.SyncPermissions(ctx, r.ID, []id.PermissionID{p2.ID, p3.ID}); err != nil {
		t.Fatal(err)
	}
	perms, _ := eng.RolePermissions(ctx, r.ID)
	if len(perms) != 2 || perms[0].Name != "b" || perms[1].Name != "c" {
		t.Fatalf("unexpected permissions after sync: %+v", perms)
	}
	if err := eng.SyncPermissions(ctx, r.ID, nil); err != nil {
		t.Fatal(err)
	}
	perms, _ = eng.RolePermissions(ctx, r.ID)
	if len(perms) != 0 {
		t.Fatalf("expected empty set, got %d", len(perms))
	}
}

func TestConcurrentAssignDoesNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)
	r := mustRole(t, eng, "editor", "web", "")

	const n = 20
	perms := make([]*permission.Permission, n)
	for i := range perms {
		perms[i] = mustPermission(t, eng, fmt.Sprintf("perm %02d", i), "web")
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, p := range perms {
		wg.Add(1)
		go func(pid id.PermissionID) {
			defer wg.Done()
			errs <- eng.AssignPermissions(ctx, r.ID, []id.PermissionID{pid})
		}(p.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}

	got, _ := eng.RolePermissions(ctx, r.ID)
	if len(got) != n {
		t.Fatalf("expected %d permissions, got %d", n, len(got))
	}
}

func TestGrantRoleIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	s := user("u1")

	if err := eng.GrantRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}
	first, _ := eng.RoleMembers(ctx, r.ID)

	if err := eng.GrantRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}
	second, _ := eng.RoleMembers(ctx, r.ID)

	if len(first) != 1 || len(second) != 1 || first[0].ID != second[0].ID {
		t.Fatalf("expected identical single assignment, got %+v then %+v", first, second)
	}

	if err := eng.RevokeRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.RevokeRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}
	members, _ := eng.RoleMembers(ctx, r.ID)
	if len(members) != 0 {
		t.Fatalf("expected no members, got %d", len(members))
	}
}

func TestGrantRoleGuardMismatch(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "robot", "api", "")
	err := eng.GrantRole(ctx, user("u1"), r.ID)
	if !errors.Is(err, warrant.ErrGuardMismatch) {
		t.Fatalf("expected ErrGuardMismatch, got %v", err)
	}
	s := user("u1")
	s.Guard = "api"
	if err := eng.GrantRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.GrantRole(ctx, user("u1"), id.NewRoleID()); !errors.Is(err, warrant.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
}

func TestCascadeOnRoleDelete(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	p := mustPermission(t, eng, "update Post", "web")
	if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID}); err != nil {
		t.Fatal(err)
	}
	for _, u := range []string{"u1", "u2"} {
		if err := eng.GrantRole(ctx, user(u), r.ID); err != nil {
			t.Fatal(err)
		}
	}

	if err := eng.DeleteRole(ctx, r.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.GetRole(ctx, r.ID); !errors.Is(err, warrant.ErrNotFound) {
		t.Fatalf("expected role gone, got %v", err)
	}
	roles, _ := eng.SubjectRoles(ctx, user("u1"))
	if len(roles) != 0 {
		t.Fatalf("expected subject edges removed, got %d", len(roles))
	}
	if _, err := eng.GetPermission(ctx, p.ID); err != nil {
		t.Fatalf("permission must survive role delete: %v", err)
	}
	if err := eng.DeleteRole(ctx, r.ID); !errors.Is(err, warrant.ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound on second delete, got %v", err)
	}
}

func TestCascadeOnPermissionDelete(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	p := mustPermission(t, eng, "update Post", "web")
	_ = eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID})
	_ = eng.GrantPermission(ctx, user("u2"), p.ID)

	if err := eng.DeletePermission(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	perms, _ := eng.RolePermissions(ctx, r.ID)
	if len(perms) != 0 {
		t.Fatal("expected role edge removed")
	}
	names, _ := eng.SubjectPermissions(ctx, user("u2"), "web")
	if len(names) != 0 {
		t.Fatalf("expected direct grant removed, got %v", names)
	}
	if err := eng.DeletePermission(ctx, p.ID); !errors.Is(err, warrant.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, warrant.WithConfig(tenancyConfig()))

	mustRole(t, eng, "admin", "web", "tenant-a")
	mustRole(t, eng, "editor", "web", "tenant-a")
	mustRole(t, eng, "admin", "web", "tenant-b")
	mustRole(t, eng, "auditor", "web", "")

	roles, err := eng.ListRolesForTenant(ctx, "tenant-a", role.ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 || roles[0].Name != "admin" || roles[1].Name != "editor" {
		t.Fatalf("unexpected roles for tenant-a: %+v", roles)
	}
	for _, r := range roles {
		if r.TenantID != "tenant-a" {
			t.Fatalf("role %s leaked from tenant %q", r.Name, r.TenantID)
		}
	}

	roles, _ = eng.ListRolesForTenant(ctx, "", role.ListFilter{})
	if len(roles) != 0 {
		t.Fatalf("expected no roles without an active tenant, got %d", len(roles))
	}
}

func TestGlobalRoleBucket(t *testing.T) {
	ctx := context.Background()
	cfg := tenancyConfig()
	cfg.IncludeGlobalRoles = true
	eng := newTestEngine(t, warrant.WithConfig(cfg))

	global := mustRole(t, eng, "admin", "web", "")
	// Same name in a tenant does not collide with the global bucket.
	mustRole(t, eng, "admin", "web", "tenant-a")
	if _, err := eng.CreateRole(ctx, "admin", "web", ""); !errors.Is(err, warrant.ErrDuplicate) {
		t.Fatalf("expected duplicate within the global bucket, got %v", err)
	}

	roles, _ := eng.ListRolesForTenant(ctx, "tenant-a", role.ListFilter{})
	if len(roles) != 2 {
		t.Fatalf("expected tenant and global role, got %d", len(roles))
	}

	s := user("u1")
	s.Tenant = "tenant-a"
	if err := eng.GrantRole(ctx, s, global.ID); err != nil {
		t.Fatalf("global role should be grantable with IncludeGlobalRoles: %v", err)
	}
}

func TestRoleTenantValidation(t *testing.T) {
	ctx := context.Background()

	eng := newTestEngine(t)
	if _, err := eng.CreateRole(ctx, "admin", "web", "tenant-a"); !errors.Is(err, warrant.ErrValidation) {
		t.Fatalf("expected ErrValidation for tenant while tenancy is off, got %v", err)
	}

	cfg := tenancyConfig()
	cfg.RequireTenant = true
	eng = newTestEngine(t, warrant.WithConfig(cfg))
	if _, err := eng.CreateRole(ctx, "admin", "web", ""); !errors.Is(err, warrant.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
	mustRole(t, eng, "admin", "web", "tenant-a")
	if _, err := eng.CreateRole(ctx, "admin", "web", "tenant-a"); !errors.Is(err, warrant.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGrantRoleTenantMismatch(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, warrant.WithConfig(tenancyConfig()))

	r := mustRole(t, eng, "admin", "web", "tenant-b")
	s := user("u1")
	s.Tenant = "tenant-a"

	if err := eng.GrantRole(ctx, s, r.ID); !errors.Is(err, warrant.ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}

	global := mustRole(t, eng, "auditor", "web", "")
	if err := eng.GrantRole(ctx, s, global.ID); !errors.Is(err, warrant.ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch for hidden global role, got %v", err)
	}
}

func TestTransitiveResolution(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	editor := mustRole(t, eng, "Editor", "web", "")
	p := mustPermission(t, eng, "update-post", "web")
	if err := eng.AssignPermissions(ctx, editor.ID, []id.PermissionID{p.ID}); err != nil {
		t.Fatal(err)
	}
	s := user("u1")

	res, err := eng.Check(ctx, s, "update-post", "web")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Decision != warrant.DecisionDenyNoRoles {
		t.Fatalf("expected deny_no_roles before grant, got %+v", res)
	}

	if err := eng.GrantRole(ctx, s, editor.ID); err != nil {
		t.Fatal(err)
	}
	res, err = eng.Check(ctx, s, "update-post", "web")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Decision != warrant.DecisionAllow || res.MatchedBy[0].Source != "role" {
		t.Fatalf("expected allow via role, got %+v", res)
	}

	if err := eng.RevokeRole(ctx, s, editor.ID); err != nil {
		t.Fatal(err)
	}
	if mustCan(t, eng, s, "update-post", "web") {
		t.Fatal("expected deny after revokeRole")
	}
}

func TestCanRespectsGuardAndTenant(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, warrant.WithConfig(tenancyConfig()))

	r := mustRole(t, eng, "editor", "web", "tenant-a")
	p := mustPermission(t, eng, "update Post", "web")
	mustPermission(t, eng, "update Post", "api")
	_ = eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID})

	s := user("u1")
	s.Tenant = "tenant-a"
	if err := eng.GrantRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}

	if !mustCan(t, eng, s, "update Post", "web") {
		t.Fatal("expected allow in tenant-a")
	}
	if mustCan(t, eng, s, "update Post", "api") {
		t.Fatal("expected deny in another guard")
	}
	other := s
	other.Tenant = "tenant-b"
	if mustCan(t, eng, other, "update Post", "web") {
		t.Fatal("expected deny in another tenant")
	}
	none := s
	none.Tenant = ""
	if mustCan(t, eng, none, "update Post", "web") {
		t.Fatal("expected deny without an active tenant")
	}

	res, _ := eng.Check(ctx, s, "publish Post", "web")
	if res.Decision != warrant.DecisionDenyUnknownPermission {
		t.Fatalf("expected deny_unknown_permission, got %s", res.Decision)
	}
	res, _ = eng.Check(ctx, s, "update Post", "api")
	if res.Decision != warrant.DecisionDenyNoRoles {
		t.Fatalf("expected deny_no_roles in api guard, got %s", res.Decision)
	}
}

func TestCheckDenyNoPerms(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "viewer", "web", "")
	mustPermission(t, eng, "delete Post", "web")
	_ = eng.GrantRole(ctx, user("u1"), r.ID)

	res, err := eng.Check(ctx, user("u1"), "delete Post", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.Decision != warrant.DecisionDenyNoPerms {
		t.Fatalf("expected deny_no_perms, got %+v", res)
	}
	if _, err := eng.Check(ctx, warrant.Subject{ID: "u1"}, "delete Post", ""); !errors.Is(err, warrant.ErrValidation) {
		t.Fatalf("expected ErrValidation for subject without kind, got %v", err)
	}
}

func TestBatchGrantRolesAtomic(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	valid := make([]id.RoleID, 0, 4)
	for i := range 4 {
		valid = append(valid, mustRole(t, eng, fmt.Sprintf("role-%d", i), "web", "").ID)
	}
	missing := id.NewRoleID()
	batch := []id.RoleID{valid[0], valid[1], missing, valid[2], valid[3]}

	s := user("u1")
	err := eng.GrantRoles(ctx, s, batch)
	if !errors.Is(err, warrant.ErrBatchValidation) {
		t.Fatalf("expected ErrBatchValidation, got %v", err)
	}
	var be *warrant.BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BatchError, got %T", err)
	}
	if ids := be.InvalidIDs(); len(ids) != 1 || ids[0] != missing.String() {
		t.Fatalf("expected exactly %s, got %v", missing, ids)
	}

	roles, _ := eng.SubjectRoles(ctx, s)
	if len(roles) != 0 {
		t.Fatalf("expected no roles gained, got %d", len(roles))
	}

	if err := eng.GrantRoles(ctx, s, valid); err != nil {
		t.Fatal(err)
	}
	roles, _ = eng.SubjectRoles(ctx, s)
	if len(roles) != 4 || roles[0].Name != "role-0" {
		t.Fatalf("expected 4 sorted roles, got %+v", roles)
	}
}

func TestBatchGrantRolesReportsGuardMismatch(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	web := mustRole(t, eng, "web-role", "web", "")
	api := mustRole(t, eng, "api-role", "api", "")

	err := eng.GrantRoles(ctx, user("u1"), []id.RoleID{web.ID, api.ID})
	if !errors.Is(err, warrant.ErrBatchValidation) || !errors.Is(err, warrant.ErrGuardMismatch) {
		t.Fatalf("expected batch guard mismatch, got %v", err)
	}
	roles, _ := eng.SubjectRoles(ctx, user("u1"))
	if len(roles) != 0 {
		t.Fatal("expected nothing granted")
	}
}

func TestAttachPermissionsToRoles(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r1 := mustRole(t, eng, "editor", "web", "")
	r2 := mustRole(t, eng, "writer", "web", "")
	p1 := mustPermission(t, eng, "view Post", "web")
	p2 := mustPermission(t, eng, "update Post", "web")
	pAPI := mustPermission(t, eng, "update Post", "api")
	missing := id.NewRoleID()

	err := eng.AttachPermissionsToRoles(ctx, []id.RoleID{r1.ID, missing}, []id.PermissionID{p1.ID, pAPI.ID})
	var be *warrant.BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BatchError, got %v", err)
	}
	if ids := be.InvalidIDs(); len(ids) != 2 || ids[0] != missing.String() || ids[1] != pAPI.ID.String() {
		t.Fatalf("expected missing role and api permission, got %v", ids)
	}
	perms, _ := eng.RolePermissions(ctx, r1.ID)
	if len(perms) != 0 {
		t.Fatal("failed batch must not attach anything")
	}

	if err := eng.AttachPermissionsToRoles(ctx, []id.RoleID{r1.ID, r2.ID}, []id.PermissionID{p1.ID, p2.ID}); err != nil {
		t.Fatal(err)
	}
	for _, r := range []*role.Role{r1, r2} {
		perms, _ := eng.RolePermissions(ctx, r.ID)
		if len(perms) != 2 {
			t.Fatalf("role %s: expected 2 permissions, got %d", r.Name, len(perms))
		}
	}
}

func TestDirectGrantIndependence(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	p := mustPermission(t, eng, "export Report", "web")
	s := user("u1")

	if err := eng.GrantPermission(ctx, s, p.ID); err != nil {
		t.Fatal(err)
	}
	if err := eng.GrantPermission(ctx, s, p.ID); err != nil {
		t.Fatal(err)
	}
	roles, _ := eng.SubjectRoles(ctx, s)
	if len(roles) != 0 {
		t.Fatal("subject should have zero roles")
	}

	res, err := eng.Check(ctx, s, p.Name, p.Guard)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.MatchedBy[0].Source != "grant" {
		t.Fatalf("expected allow via direct grant, got %+v", res)
	}

	if err := eng.RevokePermission(ctx, s, p.ID); err != nil {
		t.Fatal(err)
	}
	if mustCan(t, eng, s, p.Name, p.Guard) {
		t.Fatal("expected deny after revoke")
	}

	apiSubject := s
	apiSubject.Guard = "api"
	if err := eng.GrantPermission(ctx, apiSubject, p.ID); !errors.Is(err, warrant.ErrGuardMismatch) {
		t.Fatalf("expected ErrGuardMismatch, got %v", err)
	}
}

func TestDirectGrantRequiresTenantWhenEnabled(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, warrant.WithConfig(tenancyConfig()))

	p := mustPermission(t, eng, "export Report", "web")
	if err := eng.GrantPermission(ctx, user("u1"), p.ID); !errors.Is(err, warrant.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}

	s := user("u1")
	s.Tenant = "tenant-a"
	if err := eng.GrantPermission(ctx, s, p.ID); err != nil {
		t.Fatal(err)
	}
	if !mustCan(t, eng, s, p.Name, "") {
		t.Fatal("expected allow in tenant-a")
	}
	s.Tenant = "tenant-b"
	if mustCan(t, eng, s, p.Name, "") {
		t.Fatal("expected deny in tenant-b")
	}
}

func TestSubjectPermissions(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	p1 := mustPermission(t, eng, "view Post", "web")
	p2 := mustPermission(t, eng, "update Post", "web")
	p3 := mustPermission(t, eng, "export Report", "web")
	_ = eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p1.ID, p2.ID})

	s := user("u1")
	_ = eng.GrantRole(ctx, s, r.ID)
	_ = eng.GrantPermission(ctx, s, p3.ID)
	_ = eng.GrantPermission(ctx, s, p1.ID)

	names, err := eng.SubjectPermissions(ctx, s, "")
	if err != nil {
		t.Fatal(err)
	}
	want := "[export Report update Post view Post]"
	if fmt.Sprint(names) != want {
		t.Fatalf("expected %s, got %v", want, names)
	}
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	mustRole(t, eng, "admin", "web", "")

	if _, err := eng.UpdateRole(ctx, r.ID, warrant.RoleUpdate{Guard: "api"}); !errors.Is(err, warrant.ErrGuardImmutable) || !errors.Is(err, warrant.ErrValidation) {
		t.Fatalf("expected ErrGuardImmutable, got %v", err)
	}
	if _, err := eng.UpdateRole(ctx, r.ID, warrant.RoleUpdate{Name: "admin"}); !errors.Is(err, warrant.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on rename, got %v", err)
	}

	got, err := eng.UpdateRole(ctx, r.ID, warrant.RoleUpdate{Name: "writer", Guard: "web"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "writer" || got.Guard != "web" {
		t.Fatalf("unexpected role after update: %+v", got)
	}
	if _, err := eng.UpdateRole(ctx, id.NewRoleID(), warrant.RoleUpdate{Name: "x"}); !errors.Is(err, warrant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBulkDelete(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r1 := mustRole(t, eng, "a", "web", "")
	r2 := mustRole(t, eng, "b", "web", "")
	missing := id.NewRoleID()

	err := eng.DeleteRoles(ctx, []id.RoleID{r1.ID, missing, r2.ID})
	var be *warrant.BatchError
	if !errors.As(err, &be) || len(be.InvalidIDs()) != 1 {
		t.Fatalf("expected batch error with one id, got %v", err)
	}
	if _, err := eng.GetRole(ctx, r1.ID); err != nil {
		t.Fatal("no role may be deleted when the batch fails")
	}
	if err := eng.DeleteRoles(ctx, []id.RoleID{r1.ID, r2.ID}); err != nil {
		t.Fatal(err)
	}
	count, _ := eng.CountRolesForTenant(ctx, "", role.ListFilter{})
	if count != 0 {
		t.Fatalf("expected no roles left, got %d", count)
	}

	p1 := mustPermission(t, eng, "a", "web")
	pMissing := id.NewPermissionID()
	if err := eng.DeletePermissions(ctx, []id.PermissionID{p1.ID, pMissing}); !errors.Is(err, warrant.ErrBatchValidation) {
		t.Fatalf("expected batch error, got %v", err)
	}
	if err := eng.DeletePermissions(ctx, []id.PermissionID{p1.ID}); err != nil {
		t.Fatal(err)
	}
}

func TestListRolesPermissionCount(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	r := mustRole(t, eng, "editor", "web", "")
	mustRole(t, eng, "viewer", "web", "")
	p1 := mustPermission(t, eng, "a", "web")
	p2 := mustPermission(t, eng, "b", "web")
	_ = eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p1.ID, p2.ID})

	roles, err := eng.ListRolesForTenant(ctx, "", role.ListFilter{Guard: "web"})
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 || roles[0].PermissionCount != 2 || roles[1].PermissionCount != 0 {
		t.Fatalf("unexpected counts: %+v", roles)
	}
	if _, err := eng.ListRolesForTenant(ctx, "", role.ListFilter{Guard: "nope"}); !errors.Is(err, warrant.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown guard filter, got %v", err)
	}
}

func TestListPermissionsResourceFilter(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t)

	mustPermission(t, eng, "view Post", "web")
	mustPermission(t, eng, "view Comment", "web")
	mustPermission(t, eng, "view Post", "api")

	got, err := eng.ListPermissions(ctx, permission.ListFilter{Guard: "web", Resources: []string{"Post"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "view Post" || got[0].Guard != "web" {
		t.Fatalf("unexpected result: %+v", got)
	}
	n, _ := eng.CountPermissions(ctx, permission.ListFilter{Search: "view"})
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}
}

func TestDiscoverAndImport(t *testing.T) {
	ctx := context.Background()
	src := discovery.Static{
		{Resource: "Post", Actions: []string{"view", "update"}},
		{Resource: "Token", Actions: []string{"revoke"}, Guards: []string{"api", "console"}},
	}
	eng := newTestEngine(t, warrant.WithDiscovery(src))

	mustPermission(t, eng, "view Post", "web")

	cands, err := eng.DiscoverPermissions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := "[{revoke Token api} {update Post web}]"
	if fmt.Sprint(cands) != want {
		t.Fatalf("expected %s, got %v", want, cands)
	}
	// Discovery is a pure read.
	n, _ := eng.CountPermissions(ctx, permission.ListFilter{})
	if n != 1 {
		t.Fatalf("discovery must not write, found %d permissions", n)
	}

	created, err := eng.ImportPermissions(ctx, cands)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 created, got %d", len(created))
	}
	cands, _ = eng.DiscoverPermissions(ctx)
	if len(cands) != 0 {
		t.Fatalf("expected nothing left to discover, got %v", cands)
	}

	_, err = eng.ImportPermissions(ctx, []discovery.Candidate{{Name: "x", Guard: "web"}, {Name: "y", Guard: "console"}})
	if !errors.Is(err, warrant.ErrBatchValidation) {
		t.Fatalf("expected batch error for unknown guard, got %v", err)
	}
	if _, err := eng.GetPermission(ctx, id.NewPermissionID()); !errors.Is(err, warrant.ErrNotFound) {
		t.Fatal("expected not found")
	}
	n, _ = eng.CountPermissions(ctx, permission.ListFilter{Search: "x"})
	if n != 0 {
		t.Fatal("failed import must not create anything")
	}

	resources, _ := eng.DiscoveredResources(ctx)
	if fmt.Sprint(resources) != "[Post Token]" {
		t.Fatalf("unexpected resources %v", resources)
	}
}

func TestCacheInvalidatedOnMutation(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	eng := newTestEngine(t, warrant.WithCache(c))

	r := mustRole(t, eng, "editor", "web", "")
	p := mustPermission(t, eng, "update Post", "web")
	s := user("u1")
	_ = eng.GrantRole(ctx, s, r.ID)

	if mustCan(t, eng, s, "update Post", "web") {
		t.Fatal("expected deny before attach")
	}
	if c.Len() != 1 {
		t.Fatalf("expected cached decision, got %d entries", c.Len())
	}

	if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID}); err != nil {
		t.Fatal(err)
	}
	if !mustCan(t, eng, s, "update Post", "web") {
		t.Fatal("expected allow right after attach")
	}

	if err := eng.RevokeRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}
	if mustCan(t, eng, s, "update Post", "web") {
		t.Fatal("expected deny right after revoke")
	}
}

// pausingStore holds the next ListAssignments call after it has read the
// store, so a writer can slip in between the read and the cache fill.
type pausingStore struct {
	*memory.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newPausingStore() *pausingStore {
	return &pausingStore{
		Store:   memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *pausingStore) ListAssignments(ctx context.Context, f *assignment.ListFilter) ([]*assignment.Assignment, error) {
	res, err := s.Store.ListAssignments(ctx, f)
	if s.armed.CompareAndSwap(true, false) {
		close(s.entered)
		<-s.release
	}
	return res, err
}

func TestCheckDoesNotCacheAcrossConcurrentWrite(t *testing.T) {
	tests := []struct {
		name       string
		preGranted bool
		write      func(*warrant.Engine, warrant.Subject, id.RoleID) error
		want       bool
	}{
		{
			name: "grant",
			write: func(eng *warrant.Engine, s warrant.Subject, rid id.RoleID) error {
				return eng.GrantRole(context.Background(), s, rid)
			},
			want: true,
		},
		{
			name:       "revoke",
			preGranted: true,
			write: func(eng *warrant.Engine, s warrant.Subject, rid id.RoleID) error {
				return eng.RevokeRole(context.Background(), s, rid)
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := newPausingStore()
			eng, err := warrant.NewEngine(warrant.WithStore(st), warrant.WithCache(cache.NewMemory()))
			if err != nil {
				t.Fatal(err)
			}
			p := mustPermission(t, eng, "update Post", "web")
			r := mustRole(t, eng, "editor", "web", "")
			if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID}); err != nil {
				t.Fatal(err)
			}
			s := user("u1")
			if tt.preGranted {
				if err := eng.GrantRole(ctx, s, r.ID); err != nil {
					t.Fatal(err)
				}
			}

			st.armed.Store(true)
			done := make(chan error, 1)
			go func() {
				_, err := eng.Can(ctx, s, "update Post", "web")
				done <- err
			}()

			<-st.entered
			if err := tt.write(eng, s, r.ID); err != nil {
				t.Fatal(err)
			}
			close(st.release)
			if err := <-done; err != nil {
				t.Fatal(err)
			}

			if got := mustCan(t, eng, s, "update Post", "web"); got != tt.want {
				t.Fatalf("after %s: Can = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestPermissionRoles(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, warrant.WithConfig(tenancyConfig()))

	p := mustPermission(t, eng, "update Post", "web")
	other := mustPermission(t, eng, "delete Post", "web")
	writer := mustRole(t, eng, "writer", "web", "acme")
	admin := mustRole(t, eng, "admin", "web", "acme")
	foreign := mustRole(t, eng, "editor", "web", "globex")
	bystander := mustRole(t, eng, "viewer", "web", "acme")

	for _, r := range []*role.Role{writer, admin, foreign} {
		if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID}); err != nil {
			t.Fatal(err)
		}
	}
	if err := eng.AssignPermissions(ctx, bystander.ID, []id.PermissionID{other.ID}); err != nil {
		t.Fatal(err)
	}

	roles, err := eng.PermissionRoles(ctx, p.ID, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 || roles[0].ID != admin.ID || roles[1].ID != writer.ID {
		t.Fatalf("expected [admin writer] in acme, got %v", roleNames(roles))
	}
	if roles[0].PermissionCount != 1 {
		t.Fatalf("expected permission count 1, got %d", roles[0].PermissionCount)
	}

	roles, _ = eng.PermissionRoles(ctx, p.ID, "globex")
	if len(roles) != 1 || roles[0].ID != foreign.ID {
		t.Fatalf("expected [editor] in globex, got %v", roleNames(roles))
	}

	roles, _ = eng.PermissionRoles(ctx, p.ID, "")
	if len(roles) != 0 {
		t.Fatalf("expected no roles without a tenant, got %v", roleNames(roles))
	}

	if _, err := eng.PermissionRoles(ctx, id.NewPermissionID(), "acme"); !errors.Is(err, warrant.ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
}

func roleNames(roles []*role.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names
}

type failingHook struct{}

func (failingHook) Name() string { return "failing" }

func (failingHook) OnRoleCreated(context.Context, *role.Role) error {
	return errors.New("hook failed")
}

func TestPluginRegistryUsesFinalLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	eng := newTestEngine(t,
		warrant.WithPlugin(failingHook{}),
		warrant.WithLogger(logger),
	)

	mustRole(t, eng, "editor", "web", "")
	if !strings.Contains(buf.String(), "plugin hook error") {
		t.Fatalf("expected hook error on the configured logger, got %q", buf.String())
	}
}

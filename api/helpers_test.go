package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/xraph/forge"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/id"
)

func TestMapErrorPassthrough(t *testing.T) {
	if mapError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	plain := errors.New("boom")
	if got := mapError(plain); got != plain {
		t.Fatalf("expected unmapped error to pass through, got %v", got)
	}
}

func TestMapErrorDomainKinds(t *testing.T) {
	kinds := []error{
		warrant.ErrRoleNotFound,
		warrant.ErrDuplicate,
		warrant.ErrGuardMismatch,
		warrant.ErrTenantMismatch,
		warrant.ErrUnknownGuard,
		fmt.Errorf("create role: %w", warrant.ErrDuplicate),
		&warrant.BatchError{Op: "grant roles", Items: []warrant.BatchItem{{ID: "role_x", Err: warrant.ErrRoleNotFound}}},
	}
	for _, err := range kinds {
		got := mapError(err)
		if got == nil {
			t.Fatalf("%v: expected an HTTP error", err)
		}
		if got == err {
			t.Fatalf("%v: expected error to be mapped", err)
		}
	}
}

func TestBind(t *testing.T) {
	a := &API{validate: validator.New()}

	if err := a.bind(&CreatePermissionRequest{}); err == nil {
		t.Fatal("expected missing name to be rejected")
	}
	if err := a.bind(&CreatePermissionRequest{Name: "update Post"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.bind(&BulkIDsRequest{}); err == nil {
		t.Fatal("expected empty id list to be rejected")
	}
	batch := &BatchCheckRequest{Checks: []CheckRequest{{SubjectKind: "user", SubjectID: "u1"}}}
	if err := a.bind(batch); err == nil {
		t.Fatal("expected nested check without permission to be rejected")
	}
}

func TestTenantOf(t *testing.T) {
	ctx := context.Background()
	if got, err := tenantOf(ctx, "acme"); err != nil || got != "acme" {
		t.Fatalf("expected explicit tenant, got %q (%v)", got, err)
	}
	if got, err := tenantOf(ctx, ""); err != nil || got != "" {
		t.Fatalf("expected empty tenant without scope, got %q (%v)", got, err)
	}

	scoped := forge.WithScope(ctx, forge.NewOrgScope("app_1", "acme"))
	if got, err := tenantOf(scoped, ""); err != nil || got != "acme" {
		t.Fatalf("expected scoped org, got %q (%v)", got, err)
	}
	if got, err := tenantOf(scoped, "acme"); err != nil || got != "acme" {
		t.Fatalf("expected matching tenant to pass, got %q (%v)", got, err)
	}
	_, err := tenantOf(scoped, "globex")
	if err == nil {
		t.Fatal("expected a tenant outside the scoped org to be rejected")
	}
	var herr interface{ StatusCode() int }
	if !errors.As(err, &herr) || herr.StatusCode() != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}

	app := forge.WithScope(ctx, forge.NewAppScope("app_1"))
	if got, err := tenantOf(app, "globex"); err != nil || got != "globex" {
		t.Fatalf("expected explicit tenant under app scope, got %q (%v)", got, err)
	}
}

func TestParseIDs(t *testing.T) {
	r := id.NewRoleID()
	got, err := parseRoleIDs([]string{r.String()})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != r {
		t.Fatalf("expected [%s], got %v", r, got)
	}
	if _, err := parseRoleIDs([]string{id.NewPermissionID().String()}); err == nil {
		t.Fatal("expected permission ID to be rejected as role ID")
	}
	if _, err := parsePermissionIDs([]string{"nope"}); err == nil {
		t.Fatal("expected malformed ID to be rejected")
	}
}

func TestDefaultLimit(t *testing.T) {
	tests := []struct{ in, want int }{{0, 50}, {-3, 50}, {20, 20}, {5000, 1000}}
	for _, tt := range tests {
		if got := defaultLimit(tt.in); got != tt.want {
			t.Errorf("defaultLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

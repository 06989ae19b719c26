package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/warrant/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"RoleID", id.NewRoleID, "role_"},
		{"PermissionID", id.NewPermissionID, "perm_"},
		{"AssignmentID", id.NewAssignmentID, "asgn_"},
		{"GrantID", id.NewGrantID, "grnt_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"RoleID", id.NewRoleID, id.ParseRoleID},
		{"PermissionID", id.NewPermissionID, id.ParsePermissionID},
		{"AssignmentID", id.NewAssignmentID, id.ParseAssignmentID},
		{"GrantID", id.NewGrantID, id.ParseGrantID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed != original {
				t.Errorf("round-trip mismatch: %q != %q", parsed, original)
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	roleStr := id.NewRoleID().String()
	if _, err := id.ParsePermissionID(roleStr); err == nil {
		t.Fatal("expected error parsing role ID as permission ID")
	}
	if _, err := id.ParseGrantID(id.NewAssignmentID().String()); err == nil {
		t.Fatal("expected error parsing assignment ID as grant ID")
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := id.Parse(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Fatal("zero ID should be nil")
	}
	if i.String() != "" {
		t.Fatalf("expected empty string, got %q", i.String())
	}
	v, err := i.Value()
	if err != nil || v != nil {
		t.Fatalf("expected nil value, got %v (%v)", v, err)
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewRoleID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatal(err)
	}
	if restored != original {
		t.Fatalf("expected %s, got %s", original, restored)
	}
}

func TestScan(t *testing.T) {
	original := id.NewPermissionID()
	var fromString, fromBytes, fromNil id.ID
	if err := fromString.Scan(original.String()); err != nil {
		t.Fatal(err)
	}
	if err := fromBytes.Scan([]byte(original.String())); err != nil {
		t.Fatal(err)
	}
	if err := fromNil.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if fromString != original || fromBytes != original {
		t.Fatal("scan mismatch")
	}
	if !fromNil.IsNil() {
		t.Fatal("expected nil after scanning NULL")
	}
	if err := fromNil.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}

func TestUnique(t *testing.T) {
	a := id.NewRoleID()
	b := id.NewRoleID()
	got := id.Unique([]id.ID{b, a, id.Nil, b, a})
	if len(got) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(got))
	}
	if got[0].String() > got[1].String() {
		t.Fatal("expected sorted output")
	}
}

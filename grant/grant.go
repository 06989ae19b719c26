// Package grant defines the Grant entity: a permission attached straight to
// a subject, bypassing roles.
package grant

import (
	"slices"
	"time"

	"github.com/xraph/warrant/id"
)

// Grant binds a permission to a subject. TenantID is the subject's active
// tenant at grant time, empty when tenancy is disabled.
type Grant struct {
	ID           id.GrantID      `json:"id" db:"id"`
	TenantID     string          `json:"tenant_id,omitempty" db:"tenant_id"`
	PermissionID id.PermissionID `json:"permission_id" db:"permission_id"`
	Guard        string          `json:"guard" db:"guard"`
	SubjectKind  string          `json:"subject_kind" db:"subject_kind"`
	SubjectID    string          `json:"subject_id" db:"subject_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

// Key identifies a grant independently of its ID.
type Key struct {
	TenantID     string
	PermissionID id.PermissionID
	SubjectKind  string
	SubjectID    string
}

// Key returns the unique key of g.
func (g *Grant) Key() Key {
	return Key{TenantID: g.TenantID, PermissionID: g.PermissionID, SubjectKind: g.SubjectKind, SubjectID: g.SubjectID}
}

// ListFilter contains filters for listing grants.
type ListFilter struct {
	PermissionID *id.PermissionID `json:"permission_id,omitempty"`
	Guard        string           `json:"guard,omitempty"`
	SubjectKind  string           `json:"subject_kind,omitempty"`
	SubjectID    string           `json:"subject_id,omitempty"`
	Scoped       bool             `json:"scoped,omitempty"`
	TenantIDs    []string         `json:"tenant_ids,omitempty"`
}

// Matches reports whether g satisfies the filter.
func (f *ListFilter) Matches(g *Grant) bool {
	if f == nil {
		return true
	}
	if f.PermissionID != nil && g.PermissionID != *f.PermissionID {
		return false
	}
	if f.Guard != "" && g.Guard != f.Guard {
		return false
	}
	if f.SubjectKind != "" && g.SubjectKind != f.SubjectKind {
		return false
	}
	if f.SubjectID != "" && g.SubjectID != f.SubjectID {
		return false
	}
	if f.Scoped && !slices.Contains(f.TenantIDs, g.TenantID) {
		return false
	}
	return true
}

// Empty reports whether the filter can never match.
func (f *ListFilter) Empty() bool { return f != nil && f.Scoped && len(f.TenantIDs) == 0 }

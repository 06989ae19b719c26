// Package assignment defines the Assignment entity (subject→role edge).
package assignment

import (
	"slices"
	"time"

	"github.com/xraph/warrant/id"
)

// Assignment binds a role to a subject. TenantID is the subject's active
// tenant at grant time, empty when tenancy is disabled. Guard mirrors the
// role's guard.
type Assignment struct {
	ID          id.AssignmentID `json:"id" db:"id"`
	TenantID    string          `json:"tenant_id,omitempty" db:"tenant_id"`
	RoleID      id.RoleID       `json:"role_id" db:"role_id"`
	Guard       string          `json:"guard" db:"guard"`
	SubjectKind string          `json:"subject_kind" db:"subject_kind"`
	SubjectID   string          `json:"subject_id" db:"subject_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Key identifies an assignment independently of its ID.
type Key struct {
	TenantID    string
	RoleID      id.RoleID
	SubjectKind string
	SubjectID   string
}

// Key returns the unique key of a.
func (a *Assignment) Key() Key {
	return Key{TenantID: a.TenantID, RoleID: a.RoleID, SubjectKind: a.SubjectKind, SubjectID: a.SubjectID}
}

// ListFilter contains filters for listing assignments.
type ListFilter struct {
	RoleID      *id.RoleID `json:"role_id,omitempty"`
	Guard       string     `json:"guard,omitempty"`
	SubjectKind string     `json:"subject_kind,omitempty"`
	SubjectID   string     `json:"subject_id,omitempty"`

	// Scoped restricts results to TenantIDs; scoped with none matches nothing.
	Scoped    bool     `json:"scoped,omitempty"`
	TenantIDs []string `json:"tenant_ids,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Matches reports whether a satisfies the filter, ignoring pagination.
func (f *ListFilter) Matches(a *Assignment) bool {
	if f == nil {
		return true
	}
	if f.RoleID != nil && a.RoleID != *f.RoleID {
		return false
	}
	if f.Guard != "" && a.Guard != f.Guard {
		return false
	}
	if f.SubjectKind != "" && a.SubjectKind != f.SubjectKind {
		return false
	}
	if f.SubjectID != "" && a.SubjectID != f.SubjectID {
		return false
	}
	if f.Scoped && !slices.Contains(f.TenantIDs, a.TenantID) {
		return false
	}
	return true
}

// Empty reports whether the filter can never match.
func (f *ListFilter) Empty() bool { return f != nil && f.Scoped && len(f.TenantIDs) == 0 }

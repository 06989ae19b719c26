// Package permission defines the Permission entity and its store interface.
package permission

import (
	"strings"
	"time"

	"github.com/xraph/warrant/id"
)

// Permission is a named capability within one guard. The pair
// (Name, Guard) is unique.
type Permission struct {
	ID        id.PermissionID `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Guard     string          `json:"guard" db:"guard"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Label renders the permission as "name (guard)" for option lists.
func (p *Permission) Label() string { return p.Name + " (" + p.Guard + ")" }

// ListFilter contains filters for listing permissions. Results are always
// ordered by name.
type ListFilter struct {
	Guard string `json:"guard,omitempty"`

	// Search matches a case-insensitive substring of the name.
	Search string `json:"search,omitempty"`

	// Resources keeps permissions whose name ends with any of the given
	// resource names (e.g. "Post" matches "update Post").
	Resources []string `json:"resources,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Matches reports whether p satisfies the filter, ignoring pagination.
// In-process backends use it; SQL backends express the same predicate.
func (f *ListFilter) Matches(p *Permission) bool {
	if f == nil {
		return true
	}
	if f.Guard != "" && p.Guard != f.Guard {
		return false
	}
	name := strings.ToLower(p.Name)
	if f.Search != "" && !strings.Contains(name, strings.ToLower(f.Search)) {
		return false
	}
	if len(f.Resources) > 0 {
		for _, r := range f.Resources {
			if strings.HasSuffix(name, strings.ToLower(r)) {
				return true
			}
		}
		return false
	}
	return true
}

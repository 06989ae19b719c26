package assignment

import (
	"context"

	"github.com/xraph/warrant/id"
)

// Store defines persistence operations for role assignments.
type Store interface {
	// CreateAssignments persists assignments in one atomic write. Entries
	// whose Key already exists are skipped.
	CreateAssignments(ctx context.Context, as []*Assignment) error

	// DeleteAssignment removes the assignment with the given key. Removing
	// a missing assignment is a no-op.
	DeleteAssignment(ctx context.Context, key Key) error

	// ListAssignments returns assignments matching the filter, oldest first.
	ListAssignments(ctx context.Context, filter *ListFilter) ([]*Assignment, error)

	// ListSubjectsForRole returns every assignment of a role.
	ListSubjectsForRole(ctx context.Context, roleID id.RoleID) ([]*Assignment, error)
}

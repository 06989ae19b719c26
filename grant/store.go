package grant

import "context"

// Store defines persistence operations for direct permission grants.
type Store interface {
	// CreateGrants persists grants in one atomic write, skipping entries
	// whose Key already exists.
	CreateGrants(ctx context.Context, gs []*Grant) error

	// DeleteGrant removes the grant with the given key; missing is a no-op.
	DeleteGrant(ctx context.Context, key Key) error

	// ListGrants returns grants matching the filter, oldest first.
	ListGrants(ctx context.Context, filter *ListFilter) ([]*Grant, error)
}

package warrant

import "context"

// Cache stores check results. The engine invalidates it on every mutation
// before returning, so a cached answer never outlives the data behind it.
type Cache interface {
	// Get returns a cached check result, if available.
	Get(ctx context.Context, tenantID string, req *CheckRequest) (*CheckResult, bool)

	// Set stores a check result.
	Set(ctx context.Context, tenantID string, req *CheckRequest, result *CheckResult)

	// InvalidateSubject removes all cached results for one subject.
	InvalidateSubject(ctx context.Context, tenantID string, kind SubjectKind, subjectID string)

	// InvalidateAll removes every cached result.
	InvalidateAll(ctx context.Context)
}

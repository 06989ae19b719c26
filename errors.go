package warrant

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Every error returned by the engine wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrDuplicate is returned when a write violates a uniqueness rule.
	ErrDuplicate = errors.New("warrant: already exists")

	// ErrGuardMismatch is returned when an edge would cross guards.
	ErrGuardMismatch = errors.New("warrant: guard mismatch")

	// ErrTenantMismatch is returned when an edge would cross tenants.
	ErrTenantMismatch = errors.New("warrant: tenant mismatch")

	// ErrValidation is returned for malformed or policy-violating input.
	ErrValidation = errors.New("warrant: validation failed")

	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("warrant: not found")

	// ErrBatchValidation is matched by every *BatchError.
	ErrBatchValidation = errors.New("warrant: batch validation failed")
)

// Specific errors, each wrapping one of the kinds above.
var (
	ErrRoleNotFound       error = &kindError{"warrant: role not found", ErrNotFound}
	ErrPermissionNotFound error = &kindError{"warrant: permission not found", ErrNotFound}
	ErrGuardImmutable     error = &kindError{"warrant: role guard cannot be changed", ErrValidation}
	ErrUnknownGuard       error = &kindError{"warrant: unknown guard", ErrValidation}
	ErrEmptyName          error = &kindError{"warrant: name is required", ErrValidation}
	ErrTenantNotAllowed   error = &kindError{"warrant: tenant supplied while tenancy is disabled", ErrValidation}
	ErrTenantRequired     error = &kindError{"warrant: tenant is required", ErrValidation}
	ErrEmptySubject       error = &kindError{"warrant: subject kind and id are required", ErrValidation}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// BatchItem is one rejected entry of a batch operation.
type BatchItem struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

// BatchError reports every invalid item of a batch that was rejected as a
// whole. Nothing was written when it is returned.
type BatchError struct {
	Op    string
	Items []BatchItem
}

func (e *BatchError) Error() string {
	parts := make([]string, len(e.Items))
	for i, it := range e.Items {
		parts[i] = fmt.Sprintf("%s (%v)", it.ID, it.Err)
	}
	return fmt.Sprintf("warrant: %s: %d invalid item(s): %s", e.Op, len(e.Items), strings.Join(parts, ", "))
}

// Is matches ErrBatchValidation.
func (e *BatchError) Is(target error) bool { return target == ErrBatchValidation }

// Unwrap exposes the per-item errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Items))
	for i, it := range e.Items {
		errs[i] = it.Err
	}
	return errs
}

// InvalidIDs returns the ids of the rejected items in input order.
func (e *BatchError) InvalidIDs() []string {
	out := make([]string, len(e.Items))
	for i, it := range e.Items {
		out[i] = it.ID
	}
	return out
}

// batch collects item errors while a batch input is validated.
type batch struct {
	op    string
	items []BatchItem
	seen  map[string]struct{}
}

func newBatch(op string) *batch { return &batch{op: op, seen: make(map[string]struct{})} }

func (b *batch) fail(itemID string, err error) {
	if _, dup := b.seen[itemID]; dup {
		return
	}
	b.seen[itemID] = struct{}{}
	b.items = append(b.items, BatchItem{ID: itemID, Err: err})
}

func (b *batch) err() error {
	if len(b.items) == 0 {
		return nil
	}
	return &BatchError{Op: b.op, Items: b.items}
}

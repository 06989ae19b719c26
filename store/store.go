// Package store defines the aggregate persistence interface. Each entity
// package (role, permission, assignment, grant) defines its own store
// interface; a backend (memory, postgres, sqlite, mongo) implements them all.
package store

import (
	"context"
	"errors"

	"github.com/xraph/warrant/assignment"
	"github.com/xraph/warrant/grant"
	"github.com/xraph/warrant/permission"
	"github.com/xraph/warrant/role"
)

var (
	// ErrNotFound is wrapped by backends when a looked-up entity is missing.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is wrapped by backends when a write violates a unique key.
	ErrConflict = errors.New("store: unique key conflict")
)

// Store is the aggregate persistence interface.
type Store interface {
	role.Store
	permission.Store
	assignment.Store
	grant.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

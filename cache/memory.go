// Package cache provides check result caches for the warrant engine: an
// in-process LRU with TTL and a Redis-backed cache shared between
// processes.
package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xraph/warrant"
)

// Compile-time interface check.
var _ warrant.Cache = (*Memory)(nil)

// Memory is an in-memory LRU cache with TTL-based expiration.
type Memory struct {
	lru *lru.LRU[string, *warrant.CheckResult]
}

// MemoryOption configures the memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	ttl     time.Duration
	maxSize int
}

// WithTTL sets the cache entry time-to-live. Zero disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(c *memoryConfig) { c.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(c *memoryConfig) { c.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	cfg := memoryConfig{ttl: 5 * time.Minute, maxSize: 10000}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory{lru: lru.NewLRU[string, *warrant.CheckResult](cfg.maxSize, nil, cfg.ttl)}
}

// Get returns a copy of a cached check result.
func (m *Memory) Get(_ context.Context, tenantID string, req *warrant.CheckRequest) (*warrant.CheckResult, bool) {
	r, ok := m.lru.Get(checkKey(tenantID, req))
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// Set stores a copy of a check result.
func (m *Memory) Set(_ context.Context, tenantID string, req *warrant.CheckRequest, result *warrant.CheckResult) {
	m.lru.Add(checkKey(tenantID, req), result.Clone())
}

// InvalidateSubject removes all cached results for one subject.
func (m *Memory) InvalidateSubject(_ context.Context, tenantID string, kind warrant.SubjectKind, subjectID string) {
	prefix := subjectPrefix(tenantID, kind, subjectID)
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
}

// InvalidateAll removes every cached result.
func (m *Memory) InvalidateAll(_ context.Context) { m.lru.Purge() }

// Len returns the number of cached entries.
func (m *Memory) Len() int { return m.lru.Len() }

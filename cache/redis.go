package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/warrant"
)

// Compile-time interface check.
var _ warrant.Cache = (*Redis)(nil)

const defaultRedisPrefix = "warrant:check:"

// Redis caches check results in Redis so several engine instances share
// one cache and one invalidation. Redis failures degrade to cache misses
// and are logged.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithRedisTTL sets the entry time-to-live. Zero keeps entries until
// invalidated.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithRedisPrefix sets the key namespace. Defaults to "warrant:check:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(r *Redis) { r.prefix = prefix }
}

// WithRedisLogger sets the logger for Redis errors.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(r *Redis) { r.logger = l }
}

// NewRedis creates a Redis-backed cache.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		prefix: defaultRedisPrefix,
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns a cached check result.
func (r *Redis) Get(ctx context.Context, tenantID string, req *warrant.CheckRequest) (*warrant.CheckResult, bool) {
	data, err := r.client.Get(ctx, r.prefix+checkKey(tenantID, req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("cache get failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var res warrant.CheckResult
	if err := json.Unmarshal(data, &res); err != nil {
		r.logger.Warn("cache entry corrupt", slog.String("error", err.Error()))
		return nil, false
	}
	return &res, true
}

// Set stores a check result.
func (r *Redis) Set(ctx context.Context, tenantID string, req *warrant.CheckRequest, result *warrant.CheckResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, r.prefix+checkKey(tenantID, req), data, r.ttl).Err(); err != nil {
		r.logger.Warn("cache set failed", slog.String("error", err.Error()))
	}
}

// InvalidateSubject removes all cached results for one subject.
func (r *Redis) InvalidateSubject(ctx context.Context, tenantID string, kind warrant.SubjectKind, subjectID string) {
	r.deleteMatching(ctx, r.prefix+subjectPrefix(tenantID, kind, subjectID)+"*")
}

// InvalidateAll removes every cached result under the prefix.
func (r *Redis) InvalidateAll(ctx context.Context) {
	r.deleteMatching(ctx, r.prefix+"*")
}

func (r *Redis) deleteMatching(ctx context.Context, pattern string) {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			r.logger.Warn("cache invalidation failed",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()),
			)
			return
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				r.logger.Warn("cache invalidation failed",
					slog.String("pattern", pattern),
					slog.String("error", err.Error()),
				)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

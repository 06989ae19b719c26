// Package middleware provides HTTP authorization middleware for warrant.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/warrant"
)

// SubjectResolver extracts the subject of a request. ok is false for
// anonymous requests, which are always denied.
type SubjectResolver func(ctx forge.Context) (subject warrant.Subject, ok bool)

// Option configures the middleware.
type Option func(*settings)

type settings struct {
	guard   string
	resolve SubjectResolver
}

// WithGuard checks permissions in the named guard instead of the
// subject's own.
func WithGuard(name string) Option {
	return func(s *settings) { s.guard = name }
}

// WithSubjectResolver replaces the default resolver, which reads the
// Forge user ID and takes the active tenant from the Forge scope.
func WithSubjectResolver(fn SubjectResolver) Option {
	return func(s *settings) { s.resolve = fn }
}

func newSettings(opts []Option) *settings {
	s := &settings{resolve: ResolveUser}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Require allows the request only if the subject holds permission.
func Require(eng *warrant.Engine, permission string, opts ...Option) forge.Middleware {
	return RequireAll(eng, []string{permission}, opts...)
}

// RequireAny allows the request if the subject holds ANY of permissions.
func RequireAny(eng *warrant.Engine, permissions []string, opts ...Option) forge.Middleware {
	s := newSettings(opts)
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject, ok := s.resolve(ctx)
			if !ok {
				return denyResponse(ctx)
			}
			for _, p := range permissions {
				allowed, err := eng.Can(ctx.Context(), subject, p, s.guard)
				if err == nil && allowed {
					return next(ctx)
				}
			}
			return denyResponse(ctx)
		}
	}
}

// RequireAll allows the request only if the subject holds ALL permissions.
func RequireAll(eng *warrant.Engine, permissions []string, opts ...Option) forge.Middleware {
	s := newSettings(opts)
	return func(next forge.Handler) forge.Handler {
		return func(ctx forge.Context) error {
			subject, ok := s.resolve(ctx)
			if !ok {
				return denyResponse(ctx)
			}
			for _, p := range permissions {
				allowed, err := eng.Can(ctx.Context(), subject, p, s.guard)
				if err != nil || !allowed {
					return denyResponse(ctx)
				}
			}
			return next(ctx)
		}
	}
}

// ResolveUser is the default SubjectResolver. It reads the Forge user ID
// and uses the scope's organization as the tenant. The guard is left empty
// so the engine's default guard applies.
func ResolveUser(ctx forge.Context) (warrant.Subject, bool) {
	userID := forge.UserIDFromContext(ctx.Context())
	if userID == "" {
		return warrant.Subject{}, false
	}
	subject := warrant.Subject{Kind: warrant.SubjectUser, ID: userID}
	if sc, ok := forge.ScopeFrom(ctx.Context()); ok {
		subject.Tenant = sc.OrgID()
	}
	return subject, true
}

func denyResponse(ctx forge.Context) error {
	ctx.SetHeader("Content-Type", "application/json")
	ctx.Response().WriteHeader(http.StatusForbidden)
	return json.NewEncoder(ctx.Response()).Encode(map[string]string{"error": "access denied"})
}

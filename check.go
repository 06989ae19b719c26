package warrant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/warrant/store"
)

// Can reports whether subject holds the named permission in guard, either
// by direct grant or through any of its roles. An empty guard means the
// subject's guard. Can never writes anything besides the result cache.
func (e *Engine) Can(ctx context.Context, subject Subject, permissionName, guardName string) (bool, error) {
	res, err := e.Check(ctx, subject, permissionName, guardName)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// Check is like Can but returns the full decision.
func (e *Engine) Check(ctx context.Context, subject Subject, permissionName, guardName string) (*CheckResult, error) {
	s, g, err := e.checkInput(subject, guardName)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(permissionName)
	if name == "" {
		return nil, ErrEmptyName
	}
	req := &CheckRequest{Subject: s, Permission: name, Guard: g}
	tenant := e.scoper.EdgeTenant(s.Tenant)

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, tenant, req); ok {
			return cached, nil
		}
	}
	if e.plugins != nil {
		e.plugins.EmitBeforeCheck(ctx, req)
	}

	var result *CheckResult
	if e.cache != nil {
		// Concurrent misses for the same key share one evaluation. The
		// generation is part of the key so a check that starts after an
		// invalidation never joins an evaluation that began before it.
		gen := e.generation()
		key := strconv.FormatUint(gen, 10) + "\x00" + checkKey(tenant, req)
		v, err, _ := e.fills.Do(key, func() (any, error) {
			res, err := e.evaluate(ctx, req)
			if err != nil {
				return nil, err
			}
			e.fill(ctx, gen, tenant, req, res)
			return res, nil
		})
		if err != nil {
			return nil, err
		}
		result, _ = v.(*CheckResult)
	} else {
		result, err = e.evaluate(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	if e.plugins != nil {
		e.plugins.EmitAfterCheck(ctx, req, result)
	}
	return result, nil
}

func (e *Engine) evaluate(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	s := req.Subject
	p, err := e.store.GetPermissionByName(ctx, req.Guard, req.Permission)
	if errors.Is(err, store.ErrNotFound) {
		return &CheckResult{
			Decision: DecisionDenyUnknownPermission,
			Reason:   fmt.Sprintf("permission %q does not exist in guard %q", req.Permission, req.Guard),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("warrant check: %w", err)
	}

	grants, err := e.subjectGrants(ctx, s, req.Guard, &p.ID)
	if err != nil {
		return nil, fmt.Errorf("warrant check: %w", err)
	}
	if len(grants) > 0 {
		return &CheckResult{
			Allowed:   true,
			Decision:  DecisionAllow,
			MatchedBy: []MatchInfo{{Source: "grant", RuleID: grants[0].ID.String(), Detail: "direct grant of " + p.Name}},
		}, nil
	}

	roles, err := e.subjectRoles(ctx, s, req.Guard)
	if err != nil {
		return nil, fmt.Errorf("warrant check: %w", err)
	}
	if len(roles) == 0 {
		return &CheckResult{Decision: DecisionDenyNoRoles, Reason: "subject has no roles in scope"}, nil
	}
	for _, r := range roles {
		perms, err := e.currentPermissionSet(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("warrant check: %w", err)
		}
		if _, ok := perms[p.ID]; ok {
			return &CheckResult{
				Allowed:   true,
				Decision:  DecisionAllow,
				MatchedBy: []MatchInfo{{Source: "role", RuleID: r.ID.String(), Detail: "role " + r.Name + " grants " + p.Name}},
			}, nil
		}
	}
	return &CheckResult{Decision: DecisionDenyNoPerms, Reason: "no role or grant carries the permission"}, nil
}

// checkInput normalizes a subject and resolves the guard of a read. An
// empty guard falls back to the subject's guard.
func (e *Engine) checkInput(subject Subject, guardName string) (Subject, string, error) {
	s, err := e.normalizeSubject(subject)
	if err != nil {
		return s, "", err
	}
	if strings.TrimSpace(guardName) == "" {
		return s, s.Guard, nil
	}
	g, err := e.resolveGuard(guardName)
	if err != nil {
		return s, "", err
	}
	return s, g, nil
}

func checkKey(tenant string, req *CheckRequest) string {
	return strings.Join([]string{tenant, string(req.Subject.Kind), req.Subject.ID, req.Guard, req.Permission}, "\x00")
}

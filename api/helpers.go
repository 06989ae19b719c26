package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xraph/forge"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/id"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var be *warrant.BatchError
	if errors.As(err, &be) {
		return forge.BadRequest(fmt.Sprintf("%s: invalid ids: %s", be.Op, strings.Join(be.InvalidIDs(), ", ")))
	}
	switch {
	case errors.Is(err, warrant.ErrNotFound):
		return forge.NotFound(err.Error())
	case errors.Is(err, warrant.ErrDuplicate),
		errors.Is(err, warrant.ErrGuardMismatch),
		errors.Is(err, warrant.ErrTenantMismatch),
		errors.Is(err, warrant.ErrValidation):
		return forge.BadRequest(err.Error())
	}
	return err
}

// bind validates a request body against its `validate` tags.
func (a *API) bind(req any) error {
	err := a.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return forge.BadRequest(err.Error())
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag())
	}
	return forge.BadRequest(strings.Join(msgs, "; "))
}

// tenantOf resolves the active tenant. The forge scope's org ID wins; an
// explicit tenant is only honoured when no org is scoped or when it names
// the same org.
func tenantOf(ctx context.Context, explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	s, ok := forge.ScopeFrom(ctx)
	if !ok || s.OrgID() == "" {
		return explicit, nil
	}
	if explicit != "" && explicit != s.OrgID() {
		return "", forge.Forbidden(fmt.Sprintf("tenant %q is outside the scoped organization", explicit))
	}
	return s.OrgID(), nil
}

func subjectFrom(ctx forge.Context, guard, tenant string) (warrant.Subject, error) {
	t, err := tenantOf(ctx.Context(), tenant)
	if err != nil {
		return warrant.Subject{}, err
	}
	return warrant.Subject{
		Kind:   warrant.SubjectKind(ctx.Param("subjectKind")),
		ID:     ctx.Param("subjectId"),
		Guard:  guard,
		Tenant: t,
	}, nil
}

func parseRoleIDs(raw []string) ([]id.RoleID, error) {
	out := make([]id.RoleID, len(raw))
	for i, s := range raw {
		rid, err := id.ParseRoleID(s)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid role ID %q: %v", s, err))
		}
		out[i] = rid
	}
	return out, nil
}

func parsePermissionIDs(raw []string) ([]id.PermissionID, error) {
	out := make([]id.PermissionID, len(raw))
	for i, s := range raw {
		pid, err := id.ParsePermissionID(s)
		if err != nil {
			return nil, forge.BadRequest(fmt.Sprintf("invalid permission ID %q: %v", s, err))
		}
		out[i] = pid
	}
	return out, nil
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

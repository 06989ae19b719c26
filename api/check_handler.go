package api

import (
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/warrant"
)

func (a *API) registerCheckRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("check"))

	if err := g.POST("/check", a.check,
		forge.WithSummary("Check permission"),
		forge.WithDescription("Reports whether a subject holds a permission in a guard within its tenant."),
		forge.WithOperationID("checkPermission"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Check result", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	if err := g.POST("/check/enforce", a.enforce,
		forge.WithSummary("Enforce permission"),
		forge.WithDescription("Like check, but responds 403 when the permission is not held."),
		forge.WithOperationID("enforcePermission"),
		forge.WithRequestSchema(CheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Allowed", CheckResponse{}),
		forge.WithResponseSchema(http.StatusForbidden, "Denied", CheckResponse{}),
		forge.WithErrorResponses(),
	); err != nil {
		return err
	}

	return g.POST("/check/batch", a.batchCheck,
		forge.WithSummary("Batch check"),
		forge.WithDescription("Evaluates several checks in one request."),
		forge.WithOperationID("batchCheck"),
		forge.WithRequestSchema(BatchCheckRequest{}),
		forge.WithResponseSchema(http.StatusOK, "Batch results", BatchCheckResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) check(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := a.runCheck(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) enforce(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	resp, err := a.runCheck(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Allowed {
		return resp, ctx.JSON(http.StatusForbidden, resp)
	}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) batchCheck(ctx forge.Context, req *BatchCheckRequest) (*BatchCheckResponse, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	results := make([]CheckResponse, len(req.Checks))
	for i := range req.Checks {
		resp, err := a.runCheck(ctx, &req.Checks[i])
		if err != nil {
			return nil, err
		}
		results[i] = *resp
	}
	resp := &BatchCheckResponse{Results: results}
	return resp, ctx.JSON(http.StatusOK, resp)
}

func (a *API) runCheck(ctx forge.Context, req *CheckRequest) (*CheckResponse, error) {
	if err := a.bind(req); err != nil {
		return nil, err
	}
	tenant, err := tenantOf(ctx.Context(), req.TenantID)
	if err != nil {
		return nil, err
	}
	subject := warrant.Subject{
		Kind:   warrant.SubjectKind(req.SubjectKind),
		ID:     req.SubjectID,
		Guard:  req.Guard,
		Tenant: tenant,
	}
	result, err := a.eng.Check(ctx.Context(), subject, req.Permission, req.Guard)
	if err != nil {
		return nil, mapError(err)
	}
	return toCheckResponse(result), nil
}

func toCheckResponse(r *warrant.CheckResult) *CheckResponse {
	resp := &CheckResponse{
		Allowed:  r.Allowed,
		Decision: string(r.Decision),
		Reason:   r.Reason,
	}
	for _, m := range r.MatchedBy {
		resp.MatchedBy = append(resp.MatchedBy, MatchInfo{
			Source: m.Source,
			RuleID: m.RuleID,
			Detail: m.Detail,
		})
	}
	return resp
}

package api

import (
	"net/http"

	"github.com/xraph/forge"
)

func (a *API) registerGuardRoutes(router forge.Router) error {
	g := router.Group("/v1", forge.WithGroupTags("guards"))

	return g.GET("/guards", a.listGuards,
		forge.WithSummary("List guards"),
		forge.WithDescription("Lists the configured guards and the default guard."),
		forge.WithOperationID("listGuards"),
		forge.WithResponseSchema(http.StatusOK, "Guards", GuardsResponse{}),
		forge.WithErrorResponses(),
	)
}

func (a *API) listGuards(ctx forge.Context, _ *struct{}) (*GuardsResponse, error) {
	resp := &GuardsResponse{Default: a.eng.DefaultGuard(), Guards: a.eng.Guards()}
	return resp, ctx.JSON(http.StatusOK, resp)
}

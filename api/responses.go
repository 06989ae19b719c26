package api

import (
	"github.com/xraph/warrant/discovery"
	"github.com/xraph/warrant/permission"
)

// CheckResponse is the response for an authorization check.
type CheckResponse struct {
	Allowed   bool        `json:"allowed" description:"Whether the request is allowed"`
	Decision  string      `json:"decision" description:"Decision code"`
	Reason    string      `json:"reason,omitempty" description:"Human-readable reason"`
	MatchedBy []MatchInfo `json:"matched_by,omitempty" description:"Matched edges"`
}

// MatchInfo identifies the edge that allowed a check.
type MatchInfo struct {
	Source string `json:"source" description:"Edge kind (role, grant)"`
	RuleID string `json:"rule_id,omitempty" description:"Role or grant ID"`
	Detail string `json:"detail,omitempty" description:"Match detail"`
}

// GuardsResponse lists the configured guards.
type GuardsResponse struct {
	Default string   `json:"default" description:"Guard used when none is given"`
	Guards  []string `json:"guards" description:"Configured guards"`
}

// DiscoverResponse lists permissions that could be generated.
type DiscoverResponse struct {
	Candidates []discovery.Candidate `json:"candidates" description:"Missing permissions"`
	Resources  []string              `json:"resources" description:"Declared resource names"`
}

// ImportResponse lists the permissions created by an import.
type ImportResponse struct {
	Created []*permission.Permission `json:"created" description:"Created permissions"`
}

// NamesResponse is a sorted list of permission names.
type NamesResponse struct {
	Names []string `json:"names" description:"Permission names"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}

// BatchCheckResponse holds one result per requested check, in order.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results"`
}

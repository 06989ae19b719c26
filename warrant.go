// Package warrant provides a guard-partitioned, tenant-aware role and
// permission core for Go.
//
// Permissions are (name, guard) pairs. Roles group permissions of one guard
// and optionally belong to a tenant. Subjects receive roles and direct
// permission grants, and Can answers whether a subject holds a permission
// in a guard within its active tenant.
//
//	eng, err := warrant.NewEngine(
//	    warrant.WithStore(memory.New()),
//	)
//	p, _ := eng.CreatePermission(ctx, "update Post", "web")
//	r, _ := eng.CreateRole(ctx, "editor", "web", "")
//	_ = eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID})
//	_ = eng.GrantRole(ctx, warrant.Subject{Kind: warrant.SubjectUser, ID: "u1"}, r.ID)
//	ok, _ := eng.Can(ctx, warrant.Subject{Kind: warrant.SubjectUser, ID: "u1"}, "update Post", "web")
package warrant

import "slices"

// SubjectKind identifies the type of principal receiving roles and grants.
type SubjectKind string

const (
	// SubjectUser represents a human user.
	SubjectUser SubjectKind = "user"

	// SubjectAPIKey represents an API key.
	SubjectAPIKey SubjectKind = "api_key"

	// SubjectService represents a service-to-service caller.
	SubjectService SubjectKind = "service"
)

// Subject is the principal of an assignment or check. Guard is the
// authentication context the caller resolved it in; Tenant is its active
// tenant. Neither is read from ambient state.
type Subject struct {
	Kind   SubjectKind `json:"kind"`
	ID     string      `json:"id"`
	Guard  string      `json:"guard,omitempty"`
	Tenant string      `json:"tenant,omitempty"`
}

// CheckRequest is the input to a permission check.
type CheckRequest struct {
	Subject    Subject `json:"subject"`
	Permission string  `json:"permission"`
	Guard      string  `json:"guard"`
}

// CheckResult is the outcome of a permission check.
type CheckResult struct {
	Allowed   bool        `json:"allowed"`
	Decision  Decision    `json:"decision"`
	Reason    string      `json:"reason,omitempty"`
	MatchedBy []MatchInfo `json:"matched_by,omitempty"`
}

// Clone returns a deep copy of r.
func (r *CheckResult) Clone() *CheckResult {
	if r == nil {
		return nil
	}
	c := *r
	c.MatchedBy = slices.Clone(r.MatchedBy)
	return &c
}

// Decision is the check outcome.
type Decision string

const (
	// DecisionAllow means the subject holds the permission.
	DecisionAllow Decision = "allow"

	// DecisionDenyUnknownPermission means no permission with that name
	// exists in the guard.
	DecisionDenyUnknownPermission Decision = "deny_unknown_permission"

	// DecisionDenyNoRoles means the subject has neither roles nor a direct
	// grant in scope.
	DecisionDenyNoRoles Decision = "deny_no_roles"

	// DecisionDenyNoPerms means no role or grant carries the permission.
	DecisionDenyNoPerms Decision = "deny_no_perms"
)

// MatchInfo describes what granted the permission.
type MatchInfo struct {
	Source string `json:"source"` // "grant" or "role"
	RuleID string `json:"rule_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

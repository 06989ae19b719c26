package cache

import (
	"net/url"
	"strings"

	"github.com/xraph/warrant"
)

// Key components are query-escaped, so ':' never appears inside one and
// glob metacharacters never reach a Redis MATCH pattern.

func subjectPrefix(tenantID string, kind warrant.SubjectKind, subjectID string) string {
	return strings.Join([]string{
		url.QueryEscape(tenantID),
		url.QueryEscape(string(kind)),
		url.QueryEscape(subjectID),
	}, ":") + ":"
}

func checkKey(tenantID string, req *warrant.CheckRequest) string {
	return subjectPrefix(tenantID, req.Subject.Kind, req.Subject.ID) +
		url.QueryEscape(req.Guard) + ":" + url.QueryEscape(req.Permission)
}

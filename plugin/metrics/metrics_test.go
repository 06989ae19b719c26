package metrics_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/warrant"
	"github.com/xraph/warrant/id"
	"github.com/xraph/warrant/plugin/metrics"
	"github.com/xraph/warrant/store/memory"
)

func TestMetricsThroughEngine(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	eng, err := warrant.NewEngine(
		warrant.WithStore(memory.New()),
		warrant.WithPlugin(m),
	)
	if err != nil {
		t.Fatal(err)
	}

	p, err := eng.CreatePermission(ctx, "update Post", "web")
	if err != nil {
		t.Fatal(err)
	}
	r, err := eng.CreateRole(ctx, "editor", "web", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.AssignPermissions(ctx, r.ID, []id.PermissionID{p.ID}); err != nil {
		t.Fatal(err)
	}
	s := warrant.Subject{Kind: warrant.SubjectUser, ID: "u1"}
	if err := eng.GrantRole(ctx, s, r.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Can(ctx, s, "update Post", "web"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Can(ctx, s, "delete Post", "web"); err != nil {
		t.Fatal(err)
	}

	for event, want := range map[string]float64{
		metrics.EventPermissionCreated:  1,
		metrics.EventRoleCreated:        1,
		metrics.EventPermissionAttached: 1,
		metrics.EventRoleAssigned:       1,
		metrics.EventRoleUnassigned:     0,
	} {
		if got := testutil.ToFloat64(m.MutationsTotal.WithLabelValues(event)); got != want {
			t.Fatalf("%s: expected %v, got %v", event, want, got)
		}
	}
	if got := testutil.ToFloat64(m.ChecksTotal.WithLabelValues("web", string(warrant.DecisionAllow))); got != 1 {
		t.Fatalf("expected 1 allowed check, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChecksTotal.WithLabelValues("web", string(warrant.DecisionDenyUnknownPermission))); got != 1 {
		t.Fatalf("expected 1 unknown-permission check, got %v", got)
	}
}

func TestOnAfterCheckIgnoresForeignTypes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	if err := m.OnAfterCheck(context.Background(), "req", 42); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CollectAndCount(m.ChecksTotal); n != 0 {
		t.Fatalf("expected no series, got %d", n)
	}
}

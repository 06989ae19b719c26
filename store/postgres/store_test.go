package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"

	"github.com/xraph/warrant/store"
	"github.com/xraph/warrant/store/postgres"
	"github.com/xraph/warrant/store/storetest"
)

const truncateAll = `TRUNCATE warrant_grants, warrant_assignments, warrant_role_permissions, warrant_permissions, warrant_roles CASCADE`

// startPostgres runs a throwaway server and returns a migrated store. The
// test is skipped when no container runtime is reachable.
func startPostgres(t *testing.T) (*postgres.Store, *pgdriver.PgDB) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container in short mode")
	}
	ctx := context.Background()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		t.Skip("docker not available, skipping postgres store tests")
	}
	_ = provider.Close()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("warrant_test"),
		tcpostgres.WithUsername("warrant"),
		tcpostgres.WithPassword("warrant"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Errorf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	drv := pgdriver.New()
	if err := drv.Open(ctx, dsn); err != nil {
		t.Fatal(err)
	}
	db, err := grove.Open(drv)
	if err != nil {
		t.Fatal(err)
	}
	s := postgres.New(db)
	t.Cleanup(func() { _ = s.Close() })

	if err := s.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return s, drv
}

func TestStore(t *testing.T) {
	s, drv := startPostgres(t)
	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		if _, err := drv.Exec(context.Background(), truncateAll); err != nil {
			t.Fatal(err)
		}
		return s
	})
}

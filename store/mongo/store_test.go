package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/warrant/store"
	"github.com/xraph/warrant/store/mongo"
	"github.com/xraph/warrant/store/storetest"
)

// WARRANT_MONGO_URI must point at a replica set, e.g.
// mongodb://localhost:27017/?replicaSet=rs0. Each subtest gets its own
// database, dropped on cleanup.
const uriEnv = "WARRANT_MONGO_URI"

func TestStore(t *testing.T) {
	uri := os.Getenv(uriEnv)
	if uri == "" {
		t.Skipf("%s not set, skipping mongo store tests", uriEnv)
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		t.Helper()
		ctx := context.Background()

		drv := mongodriver.New()
		name := fmt.Sprintf("warrant_test_%d", time.Now().UnixNano())
		if err := drv.Open(ctx, uri, mongodriver.WithDatabase(name)); err != nil {
			t.Fatal(err)
		}
		db, err := grove.Open(drv)
		if err != nil {
			t.Fatal(err)
		}
		s := mongo.New(db)
		t.Cleanup(func() {
			_ = drv.Database().Drop(context.Background())
			_ = s.Close()
		})

		if err := s.Migrate(ctx); err != nil {
			t.Fatal(err)
		}
		return s
	})
}

package testfixtures

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"lklobby/internal/app/db"
	"lklobby/internal/app/store"
)

// StoreHarness provides a durable store adapter backed by a temporary,
// migrated SQLite database for integration-style persistence tests.
type StoreHarness struct {
	DB    *sql.DB
	Pool  *db.HandlePool
	Store *store.Store
}

// NewStoreHarness opens a temporary database, runs migrations, and builds a
// handle pool of the given size on top of it. Cleanup is registered with tb.
func NewStoreHarness(tb testing.TB, poolSize int, acquireTimeout time.Duration) *StoreHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "lklobby.db")

	sqlDB, err := db.Open(path, poolSize)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}

	pool, err := db.NewHandlePool(context.Background(), sqlDB, poolSize, acquireTimeout)
	if err != nil {
		_ = sqlDB.Close()
		tb.Fatalf("failed to build handle pool: %v", err)
	}

	tb.Cleanup(func() {
		_ = pool.Close()
		_ = sqlDB.Close()
	})

	return &StoreHarness{
		DB:    sqlDB,
		Pool:  pool,
		Store: store.New(pool),
	}
}

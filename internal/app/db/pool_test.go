package db_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lklobby/internal/app/db"
)

func openTestDB(t *testing.T, poolSize int) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pool_test.db")
	sqlDB, err := db.Open(path, poolSize)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestHandlePool_AcquireRelease(t *testing.T) {
	sqlDB := openTestDB(t, 2)

	pool, err := db.NewHandlePool(context.Background(), sqlDB, 2, time.Second)
	if err != nil {
		t.Fatalf("NewHandlePool failed: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	h1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	h2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	pool.Release(h1)

	h3, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after Release failed: %v", err)
	}

	pool.Release(h2)
	pool.Release(h3)
}

func TestHandlePool_Exhausted(t *testing.T) {
	sqlDB := openTestDB(t, 2)

	pool, err := db.NewHandlePool(context.Background(), sqlDB, 2, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewHandlePool failed: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	h1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}
	h2, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}

	start := time.Now()
	_, err = pool.Acquire(ctx)
	if !errors.Is(err, db.ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Acquire returned before the timeout elapsed: %v", elapsed)
	}

	pool.Release(h1)
	pool.Release(h2)
}

func TestHandlePool_BlockedAcquireUnblocksOnRelease(t *testing.T) {
	sqlDB := openTestDB(t, 1)

	pool, err := db.NewHandlePool(context.Background(), sqlDB, 1, 2*time.Second)
	if err != nil {
		t.Fatalf("NewHandlePool failed: %v", err)
	}
	defer pool.Close()

	ctx := context.Background()

	h1, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan error, 1)
	go func() {
		h, err := pool.Acquire(ctx)
		if err == nil {
			pool.Release(h)
		}
		acquired <- err
	}()

	time.Sleep(20 * time.Millisecond)
	pool.Release(h1)

	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("blocked Acquire failed after Release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Acquire did not complete after Release")
	}
}

func TestHandlePool_ContextCancelled(t *testing.T) {
	sqlDB := openTestDB(t, 1)

	pool, err := db.NewHandlePool(context.Background(), sqlDB, 1, time.Minute)
	if err != nil {
		t.Fatalf("NewHandlePool failed: %v", err)
	}
	defer pool.Close()

	h1, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer pool.Release(h1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = pool.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestHandlePool_AcquireAfterClose(t *testing.T) {
	sqlDB := openTestDB(t, 1)

	pool, err := db.NewHandlePool(context.Background(), sqlDB, 1, time.Second)
	if err != nil {
		t.Fatalf("NewHandlePool failed: %v", err)
	}

	if err := pool.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, db.ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

/*
Package db owns the durable store connection layer.

This file defines the HandlePool, a fixed set of database handles checked out once
at startup and recycled across callers. Acquire blocks for at most the configured
timeout; callers must release every handle exactly once, including on error paths.
*/
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPoolExhausted is returned by Acquire when no handle becomes free within
// the pool's acquire timeout.
var ErrPoolExhausted = errors.New("db: handle pool exhausted")

// ErrPoolClosed is returned by Acquire after the pool has been shut down.
var ErrPoolClosed = errors.New("db: handle pool closed")

// HandlePool hands out short-lived database handles under a bounded-concurrency
// discipline. The pool size is fixed at construction; a full checkout naturally
// back-pressures write-heavy bursts.
type HandlePool struct {
	handles        chan *sql.Conn
	size           int
	acquireTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewHandlePool checks out size dedicated connections from sqlDB and returns a
// pool managing them. It fails if any connection cannot be established.
func NewHandlePool(ctx context.Context, sqlDB *sql.DB, size int, acquireTimeout time.Duration) (*HandlePool, error) {
	if size < 1 {
		return nil, fmt.Errorf("db: pool size must be at least 1, got %d", size)
	}

	p := &HandlePool{
		handles:        make(chan *sql.Conn, size),
		size:           size,
		acquireTimeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		conn, err := sqlDB.Conn(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("db: failed to establish pool handle %d/%d: %w", i+1, size, err)
		}
		p.handles <- conn
	}

	return p, nil
}

// Acquire returns a free handle, blocking until one is released, the acquire
// timeout elapses (ErrPoolExhausted), or ctx is cancelled.
func (p *HandlePool) Acquire(ctx context.Context) (*sql.Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	// Fast path: a handle is already free.
	select {
	case h := <-p.handles:
		return h, nil
	default:
	}

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case h := <-p.handles:
		return h, nil
	case <-timer.C:
		return nil, ErrPoolExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a handle to the pool. Releasing nil is a no-op. Each acquired
// handle must be released exactly once.
func (p *HandlePool) Release(h *sql.Conn) {
	if h == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()

	if closed {
		_ = h.Close()
		return
	}

	select {
	case p.handles <- h:
	default:
		// More releases than acquires; discard rather than grow the pool.
		_ = h.Close()
	}
}

// Size returns the fixed number of handles managed by the pool.
func (p *HandlePool) Size() int {
	return p.size
}

// Close shuts the pool down and closes every currently free handle. Handles
// still checked out are closed as they are released.
func (p *HandlePool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var firstErr error
	for {
		select {
		case h := <-p.handles:
			if err := h.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		default:
			return firstErr
		}
	}
}

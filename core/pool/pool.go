package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"scene-archiver/core/storage"

	"go.uber.org/zap"
)

var (
	// ErrPoolExhausted is returned when no connection slot frees up within
	// the configured acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("connection pool closed")
)

// Factory creates a new remote store client.
type Factory func() (storage.Client, error)

// Conn is a pooled connection borrowed from the pool. Callers must call
// Release exactly once on every exit path; the client handle must not be
// used after release.
type Conn struct {
	Client storage.Client

	pool      *Pool
	createdAt time.Time
	lastUsed  time.Time
	released  bool
}

// Age returns how long ago this connection was created.
func (c *Conn) Age() time.Duration {
	return time.Since(c.createdAt)
}

// Release returns the connection to the pool. The connection is
// health-checked and either parked in the idle set or closed.
func (c *Conn) Release() {
	c.pool.release(c)
}

// Stats is a snapshot of pool counters.
type Stats struct {
	// Created is the number of connections ever created.
	Created uint64 `json:"created"`
	// Reused is the number of times an idle connection was handed out.
	Reused uint64 `json:"reused"`
	// Closed is the number of connections evicted or discarded.
	Closed uint64 `json:"closed"`
	// PoolHits counts acquires satisfied from the idle set.
	PoolHits uint64 `json:"pool_hits"`
	// PoolMisses counts acquires that had to create a connection.
	PoolMisses uint64 `json:"pool_misses"`
	// WaitTime is the cumulative time spent waiting in Acquire.
	WaitTime time.Duration `json:"wait_time_ns"`
	// InUse is the number of currently borrowed connections.
	InUse int `json:"in_use"`
	// Idle is the number of parked connections.
	Idle int `json:"idle"`
}

// Pool manages a bounded set of reusable remote store clients.
//
// Reuse is LIFO: the most recently released connection is handed out first,
// which keeps the working set small and minimizes the number of distinct
// connections that go stale.
type Pool struct {
	cfg     Config
	factory Factory
	log     *zap.Logger

	// slots is a counting semaphore: one token per allowed borrow.
	slots chan struct{}

	mu     sync.Mutex
	idle   []*Conn
	stats  Stats
	closed bool
}

// New creates a connection pool. The factory is invoked lazily; no
// connections exist until the first Acquire.
func New(cfg Config, factory Factory, log *zap.Logger) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}
	if cfg.AcquireTimeoutSeconds <= 0 {
		cfg.AcquireTimeoutSeconds = 30
	}
	if cfg.MaxAgeSeconds <= 0 {
		cfg.MaxAgeSeconds = 900
	}
	if log == nil {
		log = zap.NewNop()
	}

	slots := make(chan struct{}, cfg.MaxConnections)
	for i := 0; i < cfg.MaxConnections; i++ {
		slots <- struct{}{}
	}

	return &Pool{
		cfg:     cfg,
		factory: factory,
		log:     log,
		slots:   slots,
	}
}

// Acquire borrows a connection, waiting until one is available or a new one
// can be created. It fails with ErrPoolExhausted if no slot frees within the
// acquire timeout, or with the context error if ctx is cancelled first.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	start := time.Now()

	timer := time.NewTimer(time.Duration(p.cfg.AcquireTimeoutSeconds) * time.Second)
	defer timer.Stop()

	select {
	case <-p.slots:
	case <-timer.C:
		return nil, ErrPoolExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	waited := time.Since(start)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.slots <- struct{}{}
		return nil, ErrPoolClosed
	}
	p.stats.WaitTime += waited

	maxAge := time.Duration(p.cfg.MaxAgeSeconds) * time.Second

	// Pop the most recently released connection, discarding any that have
	// aged out along the way.
	for len(p.idle) > 0 {
		c := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if time.Since(c.createdAt) > maxAge {
			p.stats.Closed++
			continue
		}

		p.stats.PoolHits++
		p.stats.Reused++
		p.stats.InUse++
		c.lastUsed = time.Now()
		c.released = false
		p.mu.Unlock()
		return c, nil
	}

	p.stats.PoolMisses++
	p.mu.Unlock()

	// Create outside the mutex; the slot token is held so the bound still
	// applies.
	client, err := p.factory()
	if err != nil {
		// The slot is released so another caller can retry.
		p.slots <- struct{}{}
		p.mu.Lock()
		p.stats.PoolMisses-- // creation never happened
		p.mu.Unlock()
		return nil, fmt.Errorf("failed to create pooled connection: %w", err)
	}

	now := time.Now()
	conn := &Conn{
		Client:    client,
		pool:      p,
		createdAt: now,
		lastUsed:  now,
	}

	p.mu.Lock()
	p.stats.Created++
	p.stats.InUse++
	p.mu.Unlock()

	return conn, nil
}

// release health-checks the connection and either parks it or discards it,
// then frees the slot for the next waiter.
func (p *Pool) release(c *Conn) {
	p.mu.Lock()
	if c.released {
		p.mu.Unlock()
		return
	}
	c.released = true
	p.stats.InUse--
	closed := p.closed
	p.mu.Unlock()

	maxAge := time.Duration(p.cfg.MaxAgeSeconds) * time.Second
	keep := !closed && time.Since(c.createdAt) <= maxAge

	// The health probe runs outside the pool mutex so a slow remote never
	// blocks other acquire/release traffic.
	if keep && p.cfg.HealthBucket != "" {
		timeout := time.Duration(p.cfg.HealthCheckTimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		_, err := c.Client.BucketExists(ctx, p.cfg.HealthBucket)
		cancel()
		if err != nil {
			p.log.Debug("Pooled connection failed health check, discarding", zap.Error(err))
			keep = false
		}
	}

	p.mu.Lock()
	if keep {
		c.lastUsed = time.Now()
		p.idle = append(p.idle, c)
	} else {
		p.stats.Closed++
	}
	p.mu.Unlock()

	p.slots <- struct{}{}
}

// Cap returns the configured maximum number of borrowed connections.
func (p *Pool) Cap() int {
	return p.cfg.MaxConnections
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.stats
	s.Idle = len(p.idle)
	return s
}

// Close discards all idle connections and marks the pool closed. Borrowed
// connections are discarded as they are released.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.stats.Closed += uint64(len(p.idle))
	p.idle = nil
}

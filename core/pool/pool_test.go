package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"scene-archiver/core/storage"
	"scene-archiver/core/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T, cfg Config) (*Pool, *mocks.Client) {
	t.Helper()
	client := new(mocks.Client)
	p := New(cfg, func() (storage.Client, error) {
		return client, nil
	}, nil)
	t.Cleanup(p.Close)
	return p, client
}

func TestAcquireCreatesLazily(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 2})

	stats := p.Stats()
	assert.Zero(t, stats.Created)

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	stats = p.Stats()
	assert.Equal(t, uint64(1), stats.Created)
	assert.Equal(t, uint64(1), stats.PoolMisses)
	assert.Equal(t, 1, stats.InUse)
}

func TestReleaseParksAndAcquireReuses(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 2})
	ctx := context.Background()

	conn, err := p.Acquire(ctx)
	require.NoError(t, err)
	first := conn.Client
	conn.Release()

	stats := p.Stats()
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 0, stats.InUse)

	conn, err = p.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	assert.Same(t, first, conn.Client)
	stats = p.Stats()
	assert.Equal(t, uint64(1), stats.Created)
	assert.Equal(t, uint64(1), stats.PoolHits)
	assert.Equal(t, uint64(1), stats.Reused)
}

func TestReuseIsLIFO(t *testing.T) {
	clients := []*mocks.Client{new(mocks.Client), new(mocks.Client)}
	next := 0
	p := New(Config{MaxConnections: 2}, func() (storage.Client, error) {
		c := clients[next]
		next++
		return c, nil
	}, nil)
	defer p.Close()
	ctx := context.Background()

	a, err := p.Acquire(ctx)
	require.NoError(t, err)
	b, err := p.Acquire(ctx)
	require.NoError(t, err)

	a.Release()
	b.Release()

	// b was released last, so it comes back first.
	conn, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()
	assert.Same(t, clients[1], conn.Client)
}

func TestAcquireBlocksAtCapacity(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 2})
	ctx := context.Background()

	a, err := p.Acquire(ctx)
	require.NoError(t, err)
	b, err := p.Acquire(ctx)
	require.NoError(t, err)

	acquired := make(chan *Conn)
	go func() {
		conn, err := p.Acquire(ctx)
		assert.NoError(t, err)
		acquired <- conn
	}()

	select {
	case <-acquired:
		t.Fatal("third acquire should block while the pool is at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	a.Release()
	select {
	case conn := <-acquired:
		if conn != nil {
			conn.Release()
		}
	case <-time.After(time.Second):
		t.Fatal("third acquire did not unblock after a release")
	}
	b.Release()

	stats := p.Stats()
	assert.Positive(t, stats.WaitTime)
	assert.Equal(t, uint64(3), stats.PoolHits+stats.PoolMisses)
}

func TestAcquireTimesOutWithErrPoolExhausted(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 1, AcquireTimeoutSeconds: 1})
	ctx := context.Background()

	conn, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, ErrPoolExhausted)
}

func TestAcquireHonorsContextCancellation(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 1})

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	defer conn.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAcquireEvictsAgedConnections(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 2, MaxAgeSeconds: 300})
	ctx := context.Background()

	conn, err := p.Acquire(ctx)
	require.NoError(t, err)
	conn.Release()

	p.mu.Lock()
	require.Len(t, p.idle, 1)
	p.idle[0].createdAt = time.Now().Add(-time.Hour)
	p.mu.Unlock()

	conn, err = p.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Closed)
	assert.Equal(t, uint64(2), stats.Created)
	assert.Zero(t, stats.PoolHits)
}

func TestReleaseDiscardsAgedConnections(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 2, MaxAgeSeconds: 300})

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.createdAt = time.Now().Add(-time.Hour)
	conn.Release()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Closed)
	assert.Zero(t, stats.Idle)
}

func TestReleaseHealthChecksConnection(t *testing.T) {
	p, client := newTestPool(t, Config{MaxConnections: 2, HealthBucket: "probe"})
	client.On("BucketExists", mock.Anything, "probe").Return(true, nil).Once()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()

	assert.Equal(t, 1, p.Stats().Idle)
	client.AssertExpectations(t)
}

func TestReleaseDiscardsUnhealthyConnection(t *testing.T) {
	p, client := newTestPool(t, Config{MaxConnections: 2, HealthBucket: "probe"})
	client.On("BucketExists", mock.Anything, "probe").
		Return(false, errors.New("connection reset")).Once()

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()

	stats := p.Stats()
	assert.Zero(t, stats.Idle)
	assert.Equal(t, uint64(1), stats.Closed)
	client.AssertExpectations(t)
}

func TestAcquireFactoryErrorFreesSlot(t *testing.T) {
	fail := true
	p := New(Config{MaxConnections: 1}, func() (storage.Client, error) {
		if fail {
			return nil, errors.New("endpoint unreachable")
		}
		return new(mocks.Client), nil
	}, nil)
	defer p.Close()
	ctx := context.Background()

	_, err := p.Acquire(ctx)
	require.Error(t, err)

	// The slot must come back, and the failed creation must not count as a
	// miss: hits plus misses always equals successful acquires.
	fail = false
	conn, err := p.Acquire(ctx)
	require.NoError(t, err)
	defer conn.Release()

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.PoolMisses)
	assert.Zero(t, stats.PoolHits)
	assert.Equal(t, uint64(1), stats.Created)
}

func TestDoubleReleaseIsIgnored(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 1})

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)
	conn.Release()
	conn.Release()

	stats := p.Stats()
	assert.Equal(t, 1, stats.Idle)
	assert.Equal(t, 0, stats.InUse)
}

func TestClosedPoolRejectsAcquire(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxConnections: 2})

	conn, err := p.Acquire(context.Background())
	require.NoError(t, err)

	p.Close()

	_, err = p.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)

	// A connection still out is discarded on release, not parked.
	conn.Release()
	stats := p.Stats()
	assert.Zero(t, stats.Idle)
	assert.Equal(t, uint64(1), stats.Closed)
}

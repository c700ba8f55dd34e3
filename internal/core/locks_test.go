package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestLockTable_MutualExclusion(t *testing.T) {
	table := newLockTable(time.Second)

	var inside, maxInside atomic.Int32
	var g errgroup.Group
	for range 32 {
		g.Go(func() error {
			release, err := table.acquire(context.Background(), "same")
			if err != nil {
				return err
			}
			defer release()

			n := inside.Add(1)
			if n > maxInside.Load() {
				maxInside.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, table.size())
}

func TestLockTable_DistinctNamesIndependent(t *testing.T) {
	table := newLockTable(50 * time.Millisecond)
	ctx := context.Background()

	releaseA, err := table.acquire(ctx, "a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := table.acquire(ctx, "b")
	require.NoError(t, err, "holding a must not block b")
	releaseB()
}

func TestLockTable_Timeout(t *testing.T) {
	table := newLockTable(30 * time.Millisecond)
	ctx := context.Background()

	release, err := table.acquire(ctx, "a")
	require.NoError(t, err)

	start := time.Now()
	_, err = table.acquire(ctx, "a")
	assert.ErrorIs(t, err, ErrBusy)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)

	release()
	assert.Equal(t, 0, table.size())
}

func TestLockTable_CallerCancel(t *testing.T) {
	table := newLockTable(time.Minute)

	release, err := table.acquire(context.Background(), "a")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = table.acquire(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "caller deadline is not reported as busy")
	assert.NotErrorIs(t, err, ErrBusy)
}

func TestLockTable_MultiNamePartialFailure(t *testing.T) {
	table := newLockTable(30 * time.Millisecond)
	ctx := context.Background()

	releaseB, err := table.acquire(ctx, "b")
	require.NoError(t, err)

	// a is taken first, then the wait on b times out; a must be given back.
	_, err = table.acquire(ctx, "b", "a")
	require.ErrorIs(t, err, ErrBusy)

	releaseA, err := table.acquire(ctx, "a")
	require.NoError(t, err)
	releaseA()
	releaseB()

	assert.Equal(t, 0, table.size())
}

func TestLockTable_DuplicateNames(t *testing.T) {
	table := newLockTable(30 * time.Millisecond)

	release, err := table.acquire(context.Background(), "a", "a")
	require.NoError(t, err, "a name listed twice is locked once")
	release()
	assert.Equal(t, 0, table.size())
}

func TestLockTable_OppositeOrder(t *testing.T) {
	table := newLockTable(time.Second)

	var g errgroup.Group
	for range 50 {
		g.Go(func() error {
			release, err := table.acquire(context.Background(), "x", "y")
			if err != nil {
				return err
			}
			release()
			return nil
		})
		g.Go(func() error {
			release, err := table.acquire(context.Background(), "y", "x")
			if err != nil {
				return err
			}
			release()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, table.size())
}

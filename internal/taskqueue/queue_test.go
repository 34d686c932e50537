// internal/taskqueue/queue_test.go
package taskqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
)

func noopJob(id string) Job {
	return Job{ID: id, Kind: "test", Run: func(ctx context.Context) error { return nil }}
}

func TestTrySubmitAtCapacity(t *testing.T) {
	// Workers not started yet, so the channel alone decides admission.
	q := New(2, 1, time.Minute, logger.NewTestLogger(t))

	accepted, rejected := 0, 0
	for i := 0; i < 5; i++ {
		if err := q.TrySubmit(noopJob("job")); err != nil {
			require.True(t, stderrors.IsQueueFull(err))
			rejected++
		} else {
			accepted++
		}
	}

	assert.Equal(t, 2, accepted)
	assert.Equal(t, 3, rejected)
	assert.Equal(t, 2, q.Depth())
}

func TestSubmitBlocksUntilDrained(t *testing.T) {
	q := New(1, 1, time.Minute, logger.NewTestLogger(t))

	release := make(chan struct{})
	slow := Job{ID: "slow", Kind: "test", Run: func(ctx context.Context) error {
		<-release
		return nil
	}}

	q.Start()
	defer q.Stop(context.Background())

	require.NoError(t, q.Submit(context.Background(), slow))

	// Fill the single buffered slot while the worker is busy.
	require.Eventually(t, func() bool {
		return q.TrySubmit(noopJob("filler")) == nil
	}, time.Second, 5*time.Millisecond)

	submitted := make(chan error, 1)
	go func() {
		submitted <- q.Submit(context.Background(), noopJob("blocked"))
	}()

	select {
	case err := <-submitted:
		t.Fatalf("submit should block while queue is full, got %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-submitted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("submit did not unblock after drain")
	}
}

func TestSubmitHonorsContext(t *testing.T) {
	q := New(1, 1, time.Minute, logger.NewTestLogger(t))
	require.NoError(t, q.TrySubmit(noopJob("filler")))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Submit(ctx, noopJob("late"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	q := New(10, 1, time.Minute, logger.NewTestLogger(t))

	ran := make(chan string, 2)
	require.NoError(t, q.TrySubmit(Job{ID: "bad", Kind: "test", Run: func(ctx context.Context) error {
		panic("boom")
	}}))
	require.NoError(t, q.TrySubmit(Job{ID: "good", Kind: "test", Run: func(ctx context.Context) error {
		ran <- "good"
		return nil
	}}))

	q.Start()
	defer q.Stop(context.Background())

	select {
	case id := <-ran:
		assert.Equal(t, "good", id)
	case <-time.After(time.Second):
		t.Fatal("job after a panicking job never ran")
	}
}

func TestFIFOWithSingleWorker(t *testing.T) {
	q := New(10, 1, time.Minute, logger.NewTestLogger(t))

	var mu sync.Mutex
	var order []string
	for _, id := range []string{"a", "b", "c"} {
		id := id
		require.NoError(t, q.TrySubmit(Job{ID: id, Kind: "test", Run: func(ctx context.Context) error {
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			return nil
		}}))
	}

	q.Start()
	require.NoError(t, q.Stop(context.Background()))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestStopDrainsPendingJobs(t *testing.T) {
	q := New(10, 2, time.Minute, logger.NewTestLogger(t))

	var done sync.WaitGroup
	const jobs = 6
	done.Add(jobs)
	for i := 0; i < jobs; i++ {
		require.NoError(t, q.TrySubmit(Job{ID: "j", Kind: "test", Run: func(ctx context.Context) error {
			done.Done()
			return nil
		}}))
	}

	q.Start()
	require.NoError(t, q.Stop(context.Background()))
	done.Wait()

	// Further submits are rejected, not dropped silently.
	err := q.TrySubmit(noopJob("late"))
	require.Error(t, err)
	assert.True(t, stderrors.IsQueueFull(err))
}

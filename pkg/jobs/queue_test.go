package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("sync", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue(Job{Type: "sync_course", Payload: map[string]string{"code": "TDT4120"}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	select {
	case job := <-done:
		require.Equal(t, id, job.ID)
		require.Equal(t, "TDT4120", job.Payload["code"])
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("sync", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{Type: "sync_all"})
	require.NoError(t, err)

	select {
	case <-done:
		require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job not retried")
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("sync", func(context.Context, Job) error { return nil }, QueueConfig{})
	_, err := q.Enqueue(Job{Type: "sync_all"})
	require.Error(t, err)
}

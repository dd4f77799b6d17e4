package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(Job{ID: "job", Type: "export"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&handled))
}

func TestQueueRetriesThenExhausts(t *testing.T) {
	var attempts int32
	exhausted := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnExhausted: func(ctx context.Context, job Job, err error) {
			exhausted <- job
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case job := <-exhausted:
		assert.Equal(t, "job-1", job.ID)
		assert.Equal(t, 3, job.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never exhausted")
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}

func TestQueueBackoffCapped(t *testing.T) {
	q := NewQueue("b", nil, QueueConfig{RetryDelay: time.Second, MaxRetryDelay: 5 * time.Second})
	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
}

package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testJob struct {
	ID string `json:"id"`
}

func TestPublishConsume(t *testing.T) {
	q := New(4)
	defer q.Close()

	require.NoError(t, q.Publish(context.Background(), "t", testJob{ID: "a"}))

	msg := <-q.Subscribe("t")
	var job testJob
	require.NoError(t, msg.Decode(&job))
	assert.Equal(t, "a", job.ID)
}

func TestTopicsAreIndependent(t *testing.T) {
	q := New(4)
	defer q.Close()
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "one", testJob{ID: "1"}))
	require.NoError(t, q.Publish(ctx, "two", testJob{ID: "2"}))

	var job testJob
	require.NoError(t, (<-q.Subscribe("two")).Decode(&job))
	assert.Equal(t, "2", job.ID)
	require.NoError(t, (<-q.Subscribe("one")).Decode(&job))
	assert.Equal(t, "1", job.ID)
}

func TestPublishAfterClose(t *testing.T) {
	q := New(4)
	q.Close()

	err := q.Publish(context.Background(), "t", testJob{ID: "a"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseDrainsConsumers(t *testing.T) {
	q := New(4)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "t", testJob{ID: "a"}))
	require.NoError(t, q.Publish(ctx, "t", testJob{ID: "b"}))
	q.Close()

	var got []string
	for msg := range q.Subscribe("t") {
		var job testJob
		require.NoError(t, msg.Decode(&job))
		got = append(got, job.ID)
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestPublishHonorsContextWhenFull(t *testing.T) {
	q := New(1)
	defer q.Close()
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, "t", testJob{ID: "a"}))

	cancelCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	err := q.Publish(cancelCtx, "t", testJob{ID: "b"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseIsIdempotent(t *testing.T) {
	q := New(1)
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestCloseUnblocksPendingPublish(t *testing.T) {
	q := New(1)
	ctx := context.Background()

	// Fill the buffer so the next publish blocks in the send.
	require.NoError(t, q.Publish(ctx, "t", testJob{ID: "a"}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Publish(ctx, "t", testJob{ID: "b"})
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("publisher still blocked after close")
	}

	// The buffered message survives and the topic reads as drained.
	var got []string
	for msg := range q.Subscribe("t") {
		var job testJob
		require.NoError(t, msg.Decode(&job))
		got = append(got, job.ID)
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestConcurrentPublishAndClose(t *testing.T) {
	q := New(1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := q.Publish(ctx, "t", testJob{ID: "x"})
				if err != nil {
					assert.ErrorIs(t, err, ErrClosed)
					return
				}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	// Returns only if every publisher came back with ErrClosed instead
	// of panicking on a closed channel.
	wg.Wait()
}

func TestSubscribeAfterClose(t *testing.T) {
	q := New(1)
	q.Close()

	select {
	case _, ok := <-q.Subscribe("fresh-topic"):
		assert.False(t, ok, "topics opened after close must read as closed")
	case <-time.After(time.Second):
		t.Fatal("late subscriber blocked on a closed queue")
	}
}

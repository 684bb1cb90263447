package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storybook-service/internal/queue"
)

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	defer q.Close()

	first := queue.Job{OrderID: uuid.New()}
	second := queue.Job{OrderID: uuid.New()}
	require.NoError(t, q.Enqueue(context.Background(), first))
	require.NoError(t, q.Enqueue(context.Background(), second))

	got, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.OrderID, got.OrderID)

	got, err = q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second.OrderID, got.OrderID)
}

func TestMemoryQueue_DequeueHonorsContext(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryQueue_Close(t *testing.T) {
	q := queue.NewMemoryQueue(4)
	require.NoError(t, q.Close())

	err := q.Enqueue(context.Background(), queue.Job{OrderID: uuid.New()})
	assert.ErrorIs(t, err, queue.ErrClosed)

	_, err = q.Dequeue(context.Background())
	assert.ErrorIs(t, err, queue.ErrClosed)

	// Closing twice is harmless.
	assert.NoError(t, q.Close())
}

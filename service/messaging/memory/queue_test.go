package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testNotice struct {
	ID      string
	Subject string
}

func TestQueue(t *testing.T) {
	config := DefaultConfig()
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[testNotice](config)

	ctx := context.Background()
	payload := testNotice{ID: "n-1", Subject: "promotion review"}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.Equal(t, 0, queue.Size())
	assert.EqualValues(t, payload, *message.T())

	assert.NoError(t, message.Ack())
	// Second ack must be rejected.
	assert.Error(t, message.Ack())
}

func TestQueueRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 1
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[testNotice](config)

	ctx := context.Background()
	assert.NoError(t, queue.Publish(ctx, &testNotice{ID: "retry"}))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, message.Nack(nil))

	time.Sleep(30 * time.Millisecond)

	// One retry allowed.
	message, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, message.Nack(nil))

	time.Sleep(30 * time.Millisecond)

	// Retry budget exhausted: message parked on the DLQ, queue drained.
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue[testNotice](DefaultConfig())
	ctx := context.Background()

	const producers = 5
	const perProducer = 10

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = queue.Publish(ctx, &testNotice{ID: "x"})
			}
		}(p)
	}
	wg.Wait()

	consumed := 0
	for {
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		message, err := queue.Consume(cctx)
		cancel()
		if err != nil {
			break
		}
		_ = message.Ack()
		consumed++
	}
	assert.Equal(t, producers*perProducer, consumed)
}

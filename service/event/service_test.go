package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type notice struct {
	Text string
}

func TestTypedPublishConsume(t *testing.T) {
	service, err := New("memory")
	assert.NoError(t, err)

	publisher, err := PublisherOf[notice](service)
	assert.NoError(t, err)

	ctx := context.Background()
	err = publisher.Publish(ctx, NewEvent(&Context{Topic: "request.created", RequestID: "r1"}, notice{Text: "hello"}))
	assert.NoError(t, err)

	consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	received, err := publisher.Consume(consumeCtx)
	assert.NoError(t, err)
	assert.Equal(t, "hello", received.Data.Text)
	assert.Equal(t, "request.created", received.Context.Topic)
}

func TestTypedListener(t *testing.T) {
	service, err := New("memory")
	assert.NoError(t, err)

	var mu sync.Mutex
	var seen []string
	err = SetListenerOf(service, func(e *Event[notice]) {
		mu.Lock()
		seen = append(seen, e.Data.Text)
		mu.Unlock()
	})
	assert.NoError(t, err)

	publisher, err := PublisherOf[notice](service)
	assert.NoError(t, err)
	ctx := context.Background()
	for _, text := range []string{"one", "two"} {
		assert.NoError(t, publisher.Publish(ctx, NewEvent(&Context{}, notice{Text: text})))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestAnyMirror(t *testing.T) {
	service, err := New("memory")
	assert.NoError(t, err)

	var mu sync.Mutex
	count := 0
	service.SetListener(func(*Event[any]) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	publisher, err := PublisherOf[notice](service)
	assert.NoError(t, err)
	assert.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{}, notice{Text: "mirrored"})))

	// Typed events are mirrored onto the untyped stream.
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	}, time.Second, 10*time.Millisecond)
}

func TestUnsupportedVendor(t *testing.T) {
	_, err := New("carrier-pigeon")
	assert.Error(t, err)
}

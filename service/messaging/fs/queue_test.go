package fs

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"
)

type testNotice struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
}

func TestQueue(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "quorum-queue")
	if err != nil {
		t.Fatalf("failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	fs := afs.New()
	ctx := context.Background()

	config := Config{BaseURL: tempDir, MaxRetries: 2, RetryDelay: 10 * time.Millisecond}
	queue, err := NewQueue[testNotice](fs, config)
	assert.NoError(t, err)

	for _, dir := range []string{queue.pendingDir, queue.processingDir, queue.doneDir, queue.dlqDir} {
		exists, err := fs.Exists(ctx, dir)
		assert.NoError(t, err)
		assert.True(t, exists, dir)
	}

	payload := testNotice{ID: "n-1", Subject: "discharge review"}
	assert.NoError(t, queue.Publish(ctx, &payload))
	assert.Equal(t, 1, queue.Size(ctx))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.EqualValues(t, payload, *message.T())
	assert.Equal(t, 0, queue.Size(ctx))

	assert.NoError(t, message.Ack())
	assert.Error(t, message.Ack())

	// Queue drained.
	message, err = queue.Consume(ctx)
	assert.NoError(t, err)
	assert.Nil(t, message)
}

func TestQueueDeadLetter(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "quorum-dlq")
	if err != nil {
		t.Fatalf("failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	fs := afs.New()
	ctx := context.Background()

	config := Config{BaseURL: tempDir, MaxRetries: 0, RetryDelay: time.Millisecond}
	queue, err := NewQueue[testNotice](fs, config)
	assert.NoError(t, err)

	assert.NoError(t, queue.Publish(ctx, &testNotice{ID: "dead"}))

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.NoError(t, message.Nack(nil))

	// MaxRetries=0: the nacked message must land in the dead-letter folder.
	objects, err := fs.List(ctx, queue.dlqDir)
	assert.NoError(t, err)
	found := 0
	for _, obj := range objects {
		if !obj.IsDir() {
			found++
		}
	}
	assert.Equal(t, 1, found)
	assert.Equal(t, 0, queue.Size(ctx))
}

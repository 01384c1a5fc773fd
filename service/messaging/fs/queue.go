// Package fs provides a filesystem-backed messaging.Queue built on viant/afs.
// It is used where messages must survive a process restart, typically the
// outbound review-notice feed: a notice published before a crash is still on
// disk and will be consumed after recovery.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"

	"github.com/guildware/quorum/internal/idgen"
	"github.com/guildware/quorum/service/messaging"
)

// State tracks a message through its on-disk lifecycle.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateDead       State = "dead"
)

// Config holds configuration for the filesystem queue.
type Config struct {
	BaseURL    string        // base directory or URL for queue folders
	MaxRetries int           // attempts before a message is parked in dlq
	RetryDelay time.Duration // minimum wait before a nacked message is retried
}

// DefaultConfig returns a default queue configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "/tmp/quorum/queue",
		MaxRetries: 3,
		RetryDelay: time.Second,
	}
}

// Message implements messaging.Message persisted as a JSON file.
type Message[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	State     State     `json:"state"`
	Error     string    `json:"error,omitempty"`
	Retries   int       `json:"retries"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload
func (m *Message[T]) T() *T { return &m.Data }

// Ack moves the message file into the done folder.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.State = StateDone
	m.UpdatedAt = time.Now()
	return m.queue.finish(context.Background(), m, m.queue.doneDir)
}

// Nack records the failure; the message is either re-queued for retry or,
// once MaxRetries is exhausted, moved to the dead-letter folder.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.Retries++
	m.UpdatedAt = time.Now()
	if err != nil {
		m.Error = err.Error()
	}
	if m.Retries > m.queue.config.MaxRetries {
		m.State = StateDead
		return m.queue.finish(context.Background(), m, m.queue.dlqDir)
	}
	m.State = StatePending
	return m.queue.finish(context.Background(), m, m.queue.pendingDir)
}

// Queue implements a filesystem-based messaging.Queue.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	doneDir       string
	dlqDir        string
	mu            sync.Mutex
}

// NewQueue creates a filesystem queue rooted at config.BaseURL, creating the
// state folders when absent.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingDir:    path.Join(config.BaseURL, "pending"),
		processingDir: path.Join(config.BaseURL, "processing"),
		doneDir:       path.Join(config.BaseURL, "done"),
		dlqDir:        path.Join(config.BaseURL, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.processingDir, q.doneDir, q.dlqDir} {
		if exists, _ := fs.Exists(ctx, dir); !exists {
			if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return q, nil
}

// Publish writes a new message file into the pending folder.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := time.Now()
	message := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
		queue:     q,
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return q.upload(ctx, path.Join(q.pendingDir, q.filename(message.ID)), data)
}

// Consume claims the oldest pending message by moving it into the processing
// folder. It returns (nil, nil) when the queue is empty.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	var pending []storage.Object
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			pending = append(pending, obj)
		}
	}
	if len(pending) == 0 {
		return nil, nil
	}

	obj := oldest(pending)
	message, err := q.read(ctx, obj.URL())
	if err != nil {
		// Unreadable message file goes straight to the dead-letter folder.
		_ = q.fs.Move(ctx, obj.URL(), path.Join(q.dlqDir, "invalid-"+obj.Name()))
		return nil, err
	}
	if message.Retries > 0 && time.Since(message.UpdatedAt) < q.config.RetryDelay {
		return nil, nil
	}
	message.State = StateProcessing
	message.UpdatedAt = time.Now()
	message.queue = q

	data, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal claimed message: %w", err)
	}
	// Write the claim first, delete from pending only afterwards so that a
	// crash in between duplicates rather than loses the message.
	if err := q.upload(ctx, path.Join(q.processingDir, obj.Name()), data); err != nil {
		return nil, fmt.Errorf("failed to claim message: %w", err)
	}
	if err := q.fs.Delete(ctx, obj.URL()); err != nil {
		return nil, fmt.Errorf("failed to remove claimed message: %w", err)
	}
	return message, nil
}

// Size returns the number of pending message files.
func (q *Queue[T]) Size(ctx context.Context) int {
	objects, err := q.fs.List(ctx, q.pendingDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, obj := range objects {
		if !obj.IsDir() && strings.HasSuffix(obj.Name(), ".json") {
			count++
		}
	}
	return count
}

// finish moves a message out of the processing folder into destDir.
func (q *Queue[T]) finish(ctx context.Context, m *Message[T], destDir string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	name := q.filename(m.ID)
	if err := q.upload(ctx, path.Join(destDir, name), data); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", destDir, err)
	}
	processing := path.Join(q.processingDir, name)
	if exists, _ := q.fs.Exists(ctx, processing); exists {
		if err := q.fs.Delete(ctx, processing); err != nil {
			return fmt.Errorf("failed to delete processing copy: %w", err)
		}
	}
	return nil
}

func (q *Queue[T]) filename(id string) string {
	return id + ".json"
}

func (q *Queue[T]) upload(ctx context.Context, dest string, data []byte) error {
	return q.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewBuffer(data))
}

func (q *Queue[T]) read(ctx context.Context, URL string) (*Message[T], error) {
	data, err := q.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", URL, err)
	}
	var message Message[T]
	if err := json.Unmarshal(data, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", URL, err)
	}
	return &message, nil
}

func oldest(objects []storage.Object) storage.Object {
	ret := objects[0]
	for _, candidate := range objects[1:] {
		if candidate.ModTime().Before(ret.ModTime()) {
			ret = candidate
		}
	}
	return ret
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)

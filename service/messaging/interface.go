package messaging

import (
	"context"
)

// Vendor identifies a queue implementation ("memory", "fs", ...).
type Vendor string

// Queue is an abstract message queue carrying any payload type. The core
// uses it on two edges: inbound interaction events feeding the broker and
// outbound review notices delivered to operators.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}

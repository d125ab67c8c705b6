package messaging

import (
	"context"
)

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available or ctx is done
	Consume(ctx context.Context) (Message[T], error)
}

// Poller is a queue that can also be drained without blocking
type Poller[T any] interface {
	Queue[T]

	// TryConsume returns the next message, or false when the queue is empty
	TryConsume() (Message[T], bool)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack rejects this message; implementations keep rejected messages for inspection
	Nack(err error) error
}

// Package taskqueue provides the asynchronous queue between request intake
// and the judging loop.
package taskqueue

import (
	"context"
	"errors"
)

// ErrClosed is returned when sending into a closed queue
var ErrClosed = errors.New("taskqueue: closed")

// Sender interface is used to send tasks into the queue
type Sender[T, R any] interface {
	// Send enqueues the task, the result is delivered to the returned channel
	// exactly once
	Send(context.Context, T) (<-chan R, error)
}

// Receiver interface is used to receive tasks from the queue
type Receiver[T, R any] interface {
	// ReceiveC get the channel to receive tasks
	ReceiveC() <-chan Task[T, R]
}

// Queue provides asynchronous message queue for tasks
type Queue[T, R any] interface {
	Sender[T, R]
	Receiver[T, R]

	// Len returns the number of tasks waiting in queue
	Len() int

	// Close rejects further sends, tasks already queued stay receivable
	Close()

	// Drain waits for sends in progress to finish after Close and returns
	// the tasks left in queue
	Drain() []Task[T, R]
}

// Task represent a single queued task
type Task[T, R any] interface {
	// Context is the context of the sender
	Context() context.Context

	// Task gets the task parameter
	Task() T

	// Done returns the result for the task (should be called only once at end)
	Done(R)
}

package taskqueue

import (
	"context"
	"sync"
)

var _ Queue[int, int] = &ChannelQueue[int, int]{}

// ChannelQueue implements taskqueue by buffered go channel
type ChannelQueue[T, R any] struct {
	queue  chan Task[T, R]
	closed chan struct{}

	// mu guards isClosed so that no send starts after Close
	mu       sync.Mutex
	isClosed bool
	sending  sync.WaitGroup
}

// NewChannelQueue creates new Queue with buffed go channel
func NewChannelQueue[T, R any](size int) *ChannelQueue[T, R] {
	return &ChannelQueue[T, R]{
		queue:  make(chan Task[T, R], size),
		closed: make(chan struct{}),
	}
}

// Send puts task into the queue, it blocks while the queue is full
func (q *ChannelQueue[T, R]) Send(ctx context.Context, t T) (<-chan R, error) {
	q.mu.Lock()
	if q.isClosed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	q.sending.Add(1)
	q.mu.Unlock()
	defer q.sending.Done()

	c := make(chan R, 1)
	select {
	case q.queue <- channelTask[T, R]{ctx: ctx, task: t, result: c}:
		return c, nil
	case <-q.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReceiveC returns the underlying channel
func (q *ChannelQueue[T, R]) ReceiveC() <-chan Task[T, R] {
	return q.queue
}

// Len returns the number of buffered tasks
func (q *ChannelQueue[T, R]) Len() int {
	return len(q.queue)
}

// Close marks the queue closed
func (q *ChannelQueue[T, R]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.isClosed {
		q.isClosed = true
		close(q.closed)
	}
}

// Drain returns the queued tasks once every send in progress has returned.
// It must be called after Close.
func (q *ChannelQueue[T, R]) Drain() []Task[T, R] {
	q.sending.Wait()
	var tasks []Task[T, R]
	for {
		select {
		case t := <-q.queue:
			tasks = append(tasks, t)
		default:
			return tasks
		}
	}
}

type channelTask[T, R any] struct {
	ctx    context.Context
	task   T
	result chan<- R
}

func (t channelTask[T, R]) Context() context.Context {
	return t.ctx
}

func (t channelTask[T, R]) Task() T {
	return t.task
}

func (t channelTask[T, R]) Done(r R) {
	t.result <- r
}

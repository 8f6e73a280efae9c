package queue

import "sync"

// Queue is a generic FIFO queue. It is not safe for concurrent use; see Mailbox.
type Queue[T any] struct {
	items []T
}

// New creates and returns a new Queue instance.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Enqueue adds an element to the end of the queue.
func (q *Queue[T]) Enqueue(item T) {
	q.items = append(q.items, item)
}

// Dequeue removes and returns the front element of the queue.
// The boolean is false if the queue was empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, true
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	return len(q.items)
}

// Clear drops every queued element.
func (q *Queue[T]) Clear() {
	q.items = nil
}

// Mailbox is an unbounded, concurrency-safe FIFO with a wake-up channel.
// Any goroutine may Post; a single consumer waits on Ready and drains with
// Receive until it reports false. Post never blocks.
type Mailbox[T any] struct {
	mu     sync.Mutex
	queue  *Queue[T]
	ready  chan struct{}
	closed bool
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		queue: New[T](),
		ready: make(chan struct{}, 1),
	}
}

// Post appends item. It returns false once the mailbox is closed.
func (m *Mailbox[T]) Post(item T) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue.Enqueue(item)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready fires at least once after each Post.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.ready
}

// Receive pops the oldest item.
func (m *Mailbox[T]) Receive() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Dequeue()
}

// Len reports how many items are waiting.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Len()
}

// Close rejects further posts and discards anything still queued.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.queue.Clear()
}

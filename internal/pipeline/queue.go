package pipeline

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/umi-ai/umi/internal/model"
)

var (
	// ErrQueueEmpty is returned by Dequeue when the timeout expires with no
	// pending task.
	ErrQueueEmpty = errors.New("queue empty")
	// ErrQueueClosed is returned when operating on a closed queue.
	ErrQueueClosed = errors.New("queue closed")
)

// DefaultQueueSize is the queue capacity used when the caller doesn't set one.
const DefaultQueueSize = 100

// queueItem wraps a task with its scheduling keys. The sequence number is
// assigned at enqueue time and breaks priority ties in FIFO order, tasks
// themselves are never compared.
type queueItem struct {
	task *model.Task
	seq  uint64
}

type itemHeap []*queueItem

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x interface{}) { *h = append(*h, x.(*queueItem)) }
func (h *itemHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is a bounded priority queue. Lower numeric priority dequeues first,
// equal priorities dequeue in insertion order. Enqueue blocks while the queue
// is at capacity, this is the pipeline's only backpressure mechanism.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	items    itemHeap
	capacity int
	seq      uint64
	closed   bool
}

// NewQueue creates a new bounded priority queue.
func NewQueue(capacity int) (*Queue, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive: %w", model.ErrNotValid)
	}

	q := &Queue{
		items:    make(itemHeap, 0, capacity),
		capacity: capacity,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q, nil
}

// Enqueue inserts a task, blocking while the queue is at capacity. The task's
// priority is clamped to >= 0 before insertion.
func (q *Queue) Enqueue(task *model.Task) error {
	if task.Priority < 0 {
		task.Priority = 0
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) >= q.capacity {
		if q.closed {
			return ErrQueueClosed
		}
		q.notFull.Wait()
	}
	if q.closed {
		return ErrQueueClosed
	}

	q.seq++
	heap.Push(&q.items, &queueItem{task: task, seq: q.seq})
	q.notEmpty.Signal()
	return nil
}

// Dequeue blocks up to timeout and returns the highest-priority pending task,
// or ErrQueueEmpty when the timeout expires.
func (q *Queue) Dequeue(timeout time.Duration) (*model.Task, error) {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrQueueEmpty
		}
		q.timedWait(q.notEmpty, remaining)
	}

	item := heap.Pop(&q.items).(*queueItem)
	q.notFull.Signal()
	return item.task, nil
}

// timedWait waits on the condition up to d. Spurious wakeups are fine, every
// caller re-checks its predicate in a loop.
func (q *Queue) timedWait(c *sync.Cond, d time.Duration) {
	t := time.AfterFunc(d, c.Broadcast)
	defer t.Stop()
	c.Wait()
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close closes the queue, unblocking all waiters. Pending tasks are
// discarded, the queue is not durable by design.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

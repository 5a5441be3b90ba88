package tracking

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// queuedHit is a validated hit waiting for delivery, carrying the identity
// it is cached and flushed under.
type queuedHit struct {
	id        string
	hit       Hit
	createdAt time.Time
}

func newQueuedHit(h Hit) *queuedHit {
	return &queuedHit{
		id:        uuid.NewString(),
		hit:       h,
		createdAt: time.Now(),
	}
}

// fifo is an unbounded concurrency-safe FIFO of pending hits. Arbitrary
// caller goroutines push while the scheduler drains; no external locking is
// required.
type fifo struct {
	mu    sync.Mutex
	items []*queuedHit
}

func (q *fifo) push(items ...*queuedHit) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// requeueFront puts failed items back at the head, preserving their
// original order ahead of anything enqueued meanwhile.
func (q *fifo) requeueFront(items []*queuedHit) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]*queuedHit, 0, len(items)+len(q.items)), items...), q.items...)
}

func (q *fifo) drain() []*queuedHit {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

func (q *fifo) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

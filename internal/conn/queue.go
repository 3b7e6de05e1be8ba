package conn

import (
	"fmt"
	"sync"
)

// sendQueue buffers outbound payloads while the transport is down so a
// reconnect can flush them in order instead of silently dropping sends.
type sendQueue struct {
	mu      sync.Mutex
	items   []any
	maxSize int
}

func newSendQueue(maxSize int) *sendQueue {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &sendQueue{maxSize: maxSize}
}

// push enqueues a payload, failing explicitly when the buffer is full.
func (q *sendQueue) push(payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.maxSize {
		return fmt.Errorf("outbound queue full (%d pending)", len(q.items))
	}
	q.items = append(q.items, payload)
	return nil
}

// requeue puts undelivered payloads back at the front, ahead of anything
// queued since the drain. The size bound is not applied here: a failed
// flush must never turn into a drop.
func (q *sendQueue) requeue(payloads []any) {
	if len(payloads) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append([]any(nil), payloads...), q.items...)
}

// drain removes and returns all queued payloads in FIFO order.
func (q *sendQueue) drain() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// size returns the number of pending payloads.
func (q *sendQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Package queue implements the bounded-hysteresis, effectively-unbounded
// priority queue that buffers inbound commands between the subscription
// stream and the worker pool. Higher numeric priority is dispatched first;
// ties are broken by arrival order via an increasing sequence number.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/Goden-Gun/command-connector/pkg/wire"
)

// initialCapacity is a small fixed hint for growth hysteresis; the queue is
// otherwise unbounded, matching the 1000-entry PriorityBlockingQueue in the
// original Java.
const initialCapacity = 1000

type item struct {
	cmd      *wire.Command
	priority int32
	seq      uint64
}

// heapSlice is a max-heap on priority, FIFO (ascending seq) on ties.
type heapSlice []item

func (h heapSlice) Len() int { return len(h) }
func (h heapSlice) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h heapSlice) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *heapSlice) Push(x interface{}) {
	*h = append(*h, x.(item))
}
func (h *heapSlice) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// PriorityQueue is a concurrent priority queue of inbound wire commands,
// safe for many producers and many consumers.
type PriorityQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  heapSlice
	nextSeq uint64
	closed bool
}

// New constructs an empty PriorityQueue.
func New() *PriorityQueue {
	q := &PriorityQueue{items: make(heapSlice, 0, initialCapacity)}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.items)
	return q
}

// Add enqueues cmd, ordered by its processing-instruction priority.
func (q *PriorityQueue) Add(cmd *wire.Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	heap.Push(&q.items, item{cmd: cmd, priority: cmd.Priority, seq: q.nextSeq})
	q.nextSeq++
	q.cond.Signal()
}

// Poll removes and returns the highest-priority item, blocking up to timeout
// for one to arrive. It returns nil if timeout elapses or the queue is
// closed with nothing left to drain.
func (q *PriorityQueue) Poll(timeout time.Duration) *wire.Command {
	deadline := time.Now().Add(timeout)

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 {
		if q.closed {
			return nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		if !q.waitUntil(remaining) {
			return nil
		}
	}
	it := heap.Pop(&q.items).(item)
	return it.cmd
}

// waitUntil blocks on q.cond for at most d. sync.Cond has no native timed
// wait, so a timer goroutine wakes it via Broadcast if nothing else does;
// the caller re-checks its own condition afterward either way.
func (q *PriorityQueue) waitUntil(d time.Duration) bool {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()
	q.cond.Wait()
	return true
}

// Close unblocks any waiting Poll callers once the queue drains; it does not
// discard items already enqueued.
func (q *PriorityQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Len reports the current queue depth.
func (q *PriorityQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

package petdoor

import (
	"container/heap"

	"github.com/nerrad567/petdoor-bridge/internal/protocol"
)

// outbound is one encoded message waiting for, or occupying, the wire.
type outbound struct {
	kind     protocol.Kind
	command  string
	msgID    int
	priority protocol.Priority
	seq      uint64
	data     []byte

	// pending is nil for fire-and-forget messages.
	pending *Pending
}

// messageHeap orders by (priority, seq). The payload never takes part.
type messageHeap []*outbound

func (h messageHeap) Len() int { return len(h) }

func (h messageHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h messageHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *messageHeap) Push(x any) { *h = append(*h, x.(*outbound)) }

func (h *messageHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return m
}

// commandQueue is the outbound priority queue. Within a priority tier
// messages leave in submission order.
//
// Thread Safety:
//   - Not safe for concurrent use; the Client guards it with its mutex.
type commandQueue struct {
	h   messageHeap
	seq uint64
}

// push stamps the message with the next sequence number and enqueues it.
func (q *commandQueue) push(m *outbound) {
	m.seq = q.seq
	q.seq++
	heap.Push(&q.h, m)
}

// pop removes the next message, or returns nil when empty.
func (q *commandQueue) pop() *outbound {
	if len(q.h) == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*outbound)
}

// peek returns the next message without removing it.
func (q *commandQueue) peek() *outbound {
	if len(q.h) == 0 {
		return nil
	}
	return q.h[0]
}

func (q *commandQueue) len() int {
	return len(q.h)
}

// clear empties the queue, resets the sequence counter and returns what
// was dropped.
func (q *commandQueue) clear() []*outbound {
	dropped := q.h
	q.h = nil
	q.seq = 0
	return dropped
}

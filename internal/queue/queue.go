// Package queue provides the bounded per-guild utterance FIFO drained by
// the session worker.
//
// The queue accepts concurrent producers (event router, control plane,
// slash commands) and a single consumer. When full, the configured policy
// decides whether the oldest item is dropped to make room or the new item
// is rejected. A sentinel entry tells the consumer to exit; it bypasses
// both the size bound and the drop policy.
package queue

import "sync"

// DefaultMaxSize bounds the queue when no size is configured.
const DefaultMaxSize = 100

// Policy selects the behaviour of Enqueue on a full queue.
type Policy string

const (
	// DropOldest removes the head to make room for the new item.
	DropOldest Policy = "drop_oldest"

	// Reject refuses the new item and leaves the queue unchanged.
	Reject Policy = "reject"
)

// IsValid reports whether p is a known policy.
func (p Policy) IsValid() bool {
	return p == DropOldest || p == Reject
}

// Item is a single utterance awaiting playback. Volume 0 means the sink
// default; callers that want explicit attenuation set it in (0, 2].
type Item struct {
	Text    string
	VoiceID string
	Volume  float64

	// Source labels where the utterance came from ("chat", "command",
	// "web", "announcement") for metrics attribution.
	Source string

	// AllowDefault marks announcement-path utterances that may use the
	// tenant's reserved server voice.
	AllowDefault bool
}

// entry wraps an Item so the stop sentinel can share the FIFO.
type entry struct {
	item     Item
	sentinel bool
}

// Queue is a bounded FIFO of utterances. Safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []entry
	max    int
	policy Policy
}

// New creates a Queue bounded at max items with the given full-queue
// policy. Non-positive max falls back to [DefaultMaxSize]; an unknown
// policy falls back to [DropOldest].
func New(max int, policy Policy) *Queue {
	if max <= 0 {
		max = DefaultMaxSize
	}
	if !policy.IsValid() {
		policy = DropOldest
	}
	q := &Queue{max: max, policy: policy}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends it, applying the full-queue policy. It reports how many
// items were dropped to make room and whether it was accepted.
func (q *Queue) Enqueue(it Item) (dropped int, accepted bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.max {
		if q.policy == Reject {
			return 0, false
		}
		q.items = q.items[1:]
		dropped = 1
	}
	q.items = append(q.items, entry{item: it})
	q.cond.Signal()
	return dropped, true
}

// EnqueueSentinel appends the stop marker. It is always accepted.
func (q *Queue) EnqueueSentinel() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, entry{sentinel: true})
	q.cond.Signal()
}

// Dequeue blocks until an entry is available. ok is false when the entry
// is the stop sentinel.
func (q *Queue) Dequeue() (it Item, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e.item, !e.sentinel
}

// Len returns the number of queued entries, sentinels included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

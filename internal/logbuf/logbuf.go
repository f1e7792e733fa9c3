// Package logbuf keeps a bounded in-memory ring of rendered log lines and
// fans new lines out to subscribers. It backs the control plane's
// /api/logs tail endpoint and the /api/logs/stream SSE feed.
//
// Ingestion never blocks: a subscriber that stops draining its channel
// silently loses lines past its buffer.
package logbuf

import "sync"

// DefaultMaxLines bounds the ring when no size is configured.
const DefaultMaxLines = 1000

// Buffer is the log line ring plus subscriber registry. Safe for
// concurrent use.
type Buffer struct {
	mu    sync.Mutex
	lines []string
	start int // ring head index
	count int
	subs  map[chan string]struct{}
}

// New creates a Buffer bounded at max lines. Non-positive max falls back
// to [DefaultMaxLines].
func New(max int) *Buffer {
	if max <= 0 {
		max = DefaultMaxLines
	}
	return &Buffer{
		lines: make([]string, max),
		subs:  make(map[chan string]struct{}),
	}
}

// Append records a line, evicting the oldest when full, and posts it to
// every subscriber without blocking.
func (b *Buffer) Append(line string) {
	b.mu.Lock()
	idx := (b.start + b.count) % len(b.lines)
	if b.count == len(b.lines) {
		b.start = (b.start + 1) % len(b.lines)
	} else {
		b.count++
	}
	b.lines[idx] = line

	for ch := range b.subs {
		select {
		case ch <- line:
		default:
			// Subscriber stalled; drop the line for it.
		}
	}
	b.mu.Unlock()
}

// Tail returns the most recent n lines in chronological order. n past the
// ring size returns everything buffered.
func (b *Buffer) Tail(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || n > b.count {
		n = b.count
	}
	out := make([]string, n)
	first := b.start + b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.lines[(first+i)%len(b.lines)]
	}
	return out
}

// Subscribe registers a listener with its own bounded queue. The returned
// cancel func unregisters it and closes the channel; it is safe to call
// more than once.
func (b *Buffer) Subscribe(queueSize int) (<-chan string, func()) {
	if queueSize <= 0 {
		queueSize = 100
	}
	ch := make(chan string, queueSize)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of active subscribers.
func (b *Buffer) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

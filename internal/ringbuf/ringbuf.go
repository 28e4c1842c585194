// Package ringbuf provides a fixed-capacity ring of price ticks that
// overwrites its oldest entry when full. The engine records one tick
// per monitor poll while a position is open, giving the API a bounded
// recent-price trail without unbounded growth.
package ringbuf

import "time"

// Tick is one observed price point.
type Tick struct {
	At    time.Time `json:"at"`
	Price float64   `json:"price"`
}

// Ring holds the most recent ticks up to its capacity. It is not safe
// for concurrent use; callers synchronize externally.
type Ring struct {
	buf   []Tick
	head  int // next write index
	count int
}

// New creates a ring holding up to capacity ticks. Minimum capacity is 2.
func New(capacity int) *Ring {
	if capacity < 2 {
		capacity = 2
	}
	return &Ring{buf: make([]Tick, capacity)}
}

// Push records a tick, evicting the oldest when the ring is full.
func (r *Ring) Push(t Tick) {
	r.buf[r.head] = t
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Items returns the held ticks, oldest first.
func (r *Ring) Items() []Tick {
	out := make([]Tick, r.count)
	start := r.head - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Len returns the number of held ticks.
func (r *Ring) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Reset empties the ring without releasing the backing array.
func (r *Ring) Reset() {
	r.head = 0
	r.count = 0
}

package devices

import "container/heap"

// Event is a callback scheduled at an absolute cycle.
type Event struct {
	When  uint64
	fn    func()
	seq   uint64
	index int
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].When == h[j].When {
		return h[i].seq < h[j].seq
	}
	return h[i].When < h[j].When
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x interface{}) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() interface{} {
	old := *h
	e := old[len(old)-1]
	old[len(old)-1] = nil
	e.index = -1
	*h = old[:len(old)-1]
	return e
}

// Scheduler is a discrete event queue driven by the core's cycle count.
// Callbacks run on the caller of Advance.
type Scheduler struct {
	now   uint64
	seq   uint64
	queue eventHeap
}

func (s *Scheduler) Now() uint64 { return s.now }

func (s *Scheduler) Schedule(delay uint64, fn func()) *Event {
	s.seq++
	e := &Event{When: s.now + delay, fn: fn, seq: s.seq}
	heap.Push(&s.queue, e)
	return e
}

func (s *Scheduler) Cancel(e *Event) {
	if e != nil && e.index >= 0 && e.index < len(s.queue) && s.queue[e.index] == e {
		heap.Remove(&s.queue, e.index)
	}
}

// Next returns the cycle of the earliest pending event.
func (s *Scheduler) Next() (uint64, bool) {
	if len(s.queue) == 0 {
		return 0, false
	}
	return s.queue[0].When, true
}

// Advance moves time forward and fires every event that came due, in order.
func (s *Scheduler) Advance(cycles uint64) {
	target := s.now + cycles
	for len(s.queue) > 0 && s.queue[0].When <= target {
		e := heap.Pop(&s.queue).(*Event)
		if e.When > s.now {
			s.now = e.When
		}
		e.fn()
	}
	s.now = target
}

// Reset drops all pending events and rewinds time.
func (s *Scheduler) Reset() {
	s.now = 0
	s.queue = nil
}

// Package sched implements the engine's deadline scheduler: a stable,
// preallocated priority queue of requests ordered by the sample time
// they should execute at.
package sched

import (
	"container/heap"
	"errors"
	"unsafe"
)

// ErrQueueOverflow is returned by Push when the scheduler is already at
// its preallocated capacity.
var ErrQueueOverflow = errors.New("sched: queue overflow")

// Time is a sample count since the engine started, used as the
// scheduler's deadline unit.
type Time int64

// Item is one scheduled unit of work: run fn at deadline Time.
type Item struct {
	Deadline Time
	Fn       func()

	seq int
}

// Scheduler is a preallocated, stable (FIFO among equal deadlines)
// min-heap of Items. Push and Pop are both O(log n); Len is O(1).
type Scheduler struct {
	items    []*Item
	pool     []Item
	free     []int
	lastSeq  int
	lastPop  Time
	hasPopped bool
}

// New creates a Scheduler preallocated to hold up to capacity items.
func New(capacity int) *Scheduler {
	s := &Scheduler{
		pool: make([]Item, capacity),
		free: make([]int, capacity),
	}
	for i := 0; i < capacity; i++ {
		s.free[i] = capacity - 1 - i
	}
	return s
}

// Len returns the number of items currently scheduled.
func (s *Scheduler) Len() int { return len(s.items) }

// Cap returns the scheduler's preallocated capacity.
func (s *Scheduler) Cap() int { return len(s.pool) }

// Push schedules fn to run at deadline, returning ErrQueueOverflow if the
// scheduler is at capacity. Items with equal deadlines pop in the order
// they were pushed.
func (s *Scheduler) Push(deadline Time, fn func()) error {
	if len(s.free) == 0 {
		return ErrQueueOverflow
	}
	slot := s.free[len(s.free)-1]
	s.free = s.free[:len(s.free)-1]

	it := &s.pool[slot]
	it.Deadline = deadline
	it.Fn = fn
	it.seq = s.lastSeq
	s.lastSeq++

	heap.Push(heapView{s}, it)
	return nil
}

// Peek returns the next deadline to pop without removing it, and false if
// the scheduler is empty.
func (s *Scheduler) Peek() (Time, bool) {
	if len(s.items) == 0 {
		return 0, false
	}
	return s.items[0].Deadline, true
}

// Pop removes and returns the item with the smallest deadline (ties
// broken by push order), and false if the scheduler is empty. Popped
// deadlines are non-decreasing across successive calls.
func (s *Scheduler) Pop() (Time, func(), bool) {
	if len(s.items) == 0 {
		return 0, nil, false
	}
	it := heap.Pop(heapView{s}).(*Item)
	s.lastPop = it.Deadline
	s.hasPopped = true

	slot := s.slotOf(it)
	deadline, fn := it.Deadline, it.Fn
	it.Fn = nil
	s.free = append(s.free, slot)
	return deadline, fn, true
}

// PopBefore pops and returns every item whose deadline is <= cutoff, in
// deadline order, invoking none of them itself — callers run fn
// themselves so they can control error handling and logging.
func (s *Scheduler) PopBefore(cutoff Time) []Item {
	var out []Item
	for {
		deadline, ok := s.Peek()
		if !ok || deadline > cutoff {
			break
		}
		d, fn, _ := s.Pop()
		out = append(out, Item{Deadline: d, Fn: fn})
	}
	return out
}

func (s *Scheduler) slotOf(it *Item) int {
	return int((uintptr(unsafe.Pointer(it)) - uintptr(unsafe.Pointer(&s.pool[0]))) / unsafe.Sizeof(Item{}))
}

// heapView adapts Scheduler to container/heap.Interface without exposing
// heap.Interface methods on Scheduler's own API.
type heapView struct{ s *Scheduler }

func (h heapView) Len() int { return len(h.s.items) }

func (h heapView) Less(i, j int) bool {
	a, b := h.s.items[i], h.s.items[j]
	if a.Deadline != b.Deadline {
		return a.Deadline < b.Deadline
	}
	return a.seq < b.seq
}

func (h heapView) Swap(i, j int) {
	h.s.items[i], h.s.items[j] = h.s.items[j], h.s.items[i]
}

func (h heapView) Push(x any) {
	h.s.items = append(h.s.items, x.(*Item))
}

func (h heapView) Pop() any {
	old := h.s.items
	n := len(old)
	it := old[n-1]
	h.s.items = old[:n-1]
	return it
}

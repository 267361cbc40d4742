package ring

import "sync/atomic"

// MPSC is a multi-producer/single-consumer bounded ring buffer, used for
// the incoming request queue where any number of client goroutines may
// post messages but only the audio thread ever drains it.
type MPSC[T any] struct {
	head atomic.Uint64
	_    [cacheLine - 8]byte

	tail atomic.Uint64
	_    [cacheLine - 8]byte

	slots []mpscSlot[T]
	mask  uint64
}

type mpscSlot[T any] struct {
	seq   atomic.Uint64
	value T
}

// NewMPSC creates a ring of the given capacity, rounded up to the next
// power of two.
func NewMPSC[T any](capacity int) *MPSC[T] {
	size := nextPow2(capacity)
	m := &MPSC[T]{
		slots: make([]mpscSlot[T], size),
		mask:  size - 1,
	}
	for i := range m.slots {
		m.slots[i].seq.Store(uint64(i))
	}
	return m
}

// Cap returns the ring's usable capacity.
func (m *MPSC[T]) Cap() int { return int(m.mask + 1) }

// Push enqueues v, reporting false if the ring is full. Safe to call
// concurrently from any number of goroutines.
func (m *MPSC[T]) Push(v T) bool {
	for {
		pos := m.tail.Load()
		slot := &m.slots[pos&m.mask]
		seq := slot.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if m.tail.CompareAndSwap(pos, pos+1) {
				slot.value = v
				slot.seq.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		default:
			// Another producer has claimed this slot; retry.
		}
	}
}

// Pop dequeues the oldest value, reporting false if the ring is empty.
// Must only be called from the single consumer goroutine.
func (m *MPSC[T]) Pop() (T, bool) {
	var zero T
	pos := m.head.Load()
	slot := &m.slots[pos&m.mask]
	seq := slot.seq.Load()
	diff := int64(seq) - int64(pos+1)
	if diff != 0 {
		return zero, false
	}
	v := slot.value
	slot.value = zero
	slot.seq.Store(pos + m.mask + 1)
	m.head.Store(pos + 1)
	return v, true
}

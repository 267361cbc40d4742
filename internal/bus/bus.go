// Package bus implements epoch-stamped audio buses. Rather than clearing
// every internal bus at the start of every block, each bus carries the
// engine epoch at which it was last written; a reader compares its epoch
// against the engine's current epoch to tell a fresh write from stale
// data left over from a previous block.
package bus

import "sync"

// Epoch is a monotonically increasing block counter. The engine
// increments it by exactly one per process call.
type Epoch uint64

// Bus is a single-channel audio buffer shared between synths via the
// node graph. Every bus is epoch-stamped and supports multiple writers
// within a block (accumulation). Hardware input buses are overwritten
// each block by the engine's hardware I/O step; hardware output buses
// are written by synths like any other bus and copied to hardware (or
// zeroed, if stale) at the end of the block.
type Bus struct {
	mu    sync.RWMutex
	data  []float32
	epoch Epoch
}

// New creates a bus with the given number of frames, initially at epoch 0.
func New(numFrames int) *Bus {
	return &Bus{data: make([]float32, numFrames)}
}

// Epoch returns the epoch this bus was last written at.
func (b *Bus) Epoch() Epoch {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.epoch
}

// Read copies the bus contents into dst if the bus is fresh for the given
// epoch, or zeroes dst otherwise (stale data reads as silence).
func (b *Bus) Read(epoch Epoch, dst []float32) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.epoch == epoch {
		copy(dst, b.data)
	} else {
		for i := range dst {
			dst[i] = 0
		}
	}
}

// ReadFeedback copies the bus's last-written contents into dst
// regardless of epoch, giving a feedback-typed reader the previous
// block's data even after the bus has gone stale for the current one.
// An untouched bus (never written) still reads as silence, since data
// starts zeroed.
func (b *Bus) ReadFeedback(dst []float32) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	copy(dst, b.data)
}

// Write accumulates src into the bus if it is already fresh for the given
// epoch, or overwrites it and stamps the new epoch otherwise. This is how
// multiple synths writing to the same bus within a block sum their
// contributions without a separate mix step.
func (b *Bus) Write(epoch Epoch, src []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.epoch == epoch {
		for i, v := range src {
			b.data[i] += v
		}
	} else {
		copy(b.data, src)
		b.epoch = epoch
	}
}

// WriteExact overwrites the bus unconditionally and stamps epoch,
// discarding any accumulation in progress. Used by the engine to copy
// hardware input into the hardware input buses once per block, and by
// ReplaceOut output connections.
func (b *Bus) WriteExact(epoch Epoch, src []float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	copy(b.data, src)
	b.epoch = epoch
}

// Data returns the bus's raw backing slice. Callers on the audio thread
// that already hold exclusive access (e.g. the engine copying an external
// output to hardware) may read it without the Read/Write epoch dance.
func (b *Bus) Data() []float32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

// Package request implements the OSC request envelope that flows from
// client goroutines into the audio thread, and the OSC 1.0 decoder
// (extended with Methcla's nested-array argument streams) used to read
// it back out once there.
package request

import "sync/atomic"

// Request is a refcounted wrapper around one OSC packet's bytes. The
// audio thread and, for bundles, the scheduler may both hold a reference
// to the same Request at once (the scheduler retains it until its
// deadline). Releasing the last reference never frees memory directly on
// the audio thread — it hands the free off to a worker via postToWorker.
type Request struct {
	refs    atomic.Int32
	Payload []byte
	free    func()
}

// New wraps payload in a Request with an initial reference count of one.
// free is called at most once, when the last reference is released, and
// must be safe to run on a worker thread.
func New(payload []byte, free func()) *Request {
	r := &Request{Payload: payload, free: free}
	r.refs.Store(1)
	return r
}

// Retain increments the reference count. Used when a bundle is pushed
// onto the scheduler while still referenced by the caller.
func (r *Request) Retain() {
	r.refs.Add(1)
}

// Release decrements the reference count, forwarding free to the worker
// via postToWorker exactly once, when the count reaches zero.
func (r *Request) Release(postToWorker func(func())) {
	if r.refs.Add(-1) == 0 && r.free != nil {
		postToWorker(r.free)
	}
}

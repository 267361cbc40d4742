// Package worker implements the non-realtime worker pool the audio
// thread hands blocking or allocating work off to: plugin destruction
// and freeing memory that was retained past a request's lifetime.
package worker

import (
	"sync"

	"github.com/samplecount/rtaudio/internal/ring"
)

type command struct {
	fn func()
}

// Pool runs commands posted from the audio thread on a fixed number of
// background goroutines, and lets those goroutines post work back for the
// audio thread to run on its own time, once per block, via Perform.
type Pool struct {
	toWorker   chan command
	fromWorker *ring.MPSC[command]
	wg         sync.WaitGroup
}

// New starts numWorkers goroutines draining a queue of the given
// capacity, matching the reference engine's two-worker-thread pool.
func New(numWorkers, queueSize int) *Pool {
	p := &Pool{
		toWorker:   make(chan command, queueSize),
		fromWorker: ring.NewMPSC[command](queueSize),
	}
	p.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for cmd := range p.toWorker {
		cmd.fn()
	}
}

// PostToWorker hands fn off to a worker goroutine. It must only be called
// from the audio thread, never blocks, and reports false if the queue is
// full — callers should treat that as a dropped request and log it, not
// retry inline.
func (p *Pool) PostToWorker(fn func()) bool {
	select {
	case p.toWorker <- command{fn: fn}:
		return true
	default:
		return false
	}
}

// PostFromWorker queues fn to run on the audio thread during its next
// Perform call. Safe to call concurrently from any worker goroutine.
func (p *Pool) PostFromWorker(fn func()) bool {
	return p.fromWorker.Push(command{fn: fn})
}

// Perform runs every command currently queued from workers. Called once
// per block, from the audio thread, never blocks.
func (p *Pool) Perform() {
	for {
		cmd, ok := p.fromWorker.Pop()
		if !ok {
			return
		}
		cmd.fn()
	}
}

// Close stops accepting new work and waits for every worker goroutine to
// drain the queue and exit.
func (p *Pool) Close() {
	close(p.toWorker)
	p.wg.Wait()
}

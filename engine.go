// Package rtaudio implements a real-time audio engine core: a
// sample-accurate scheduler, a node-tree DSP graph, and a dual-thread
// command protocol between the audio thread and a non-realtime worker
// pool, driven by OSC-style control messages.
package rtaudio

import (
	"log/slog"
	"sync"

	"github.com/samplecount/rtaudio/internal/bus"
	"github.com/samplecount/rtaudio/internal/graph"
	"github.com/samplecount/rtaudio/internal/request"
	"github.com/samplecount/rtaudio/internal/ring"
	"github.com/samplecount/rtaudio/internal/rtmem"
	"github.com/samplecount/rtaudio/internal/sched"
	"github.com/samplecount/rtaudio/internal/worker"
	"github.com/samplecount/rtaudio/plugin"
	"github.com/samplecount/rtaudio/soundfile"
)

// ReplyFunc receives the wire bytes of an /ack or /error reply, destined
// for whichever client sent the original request. The engine does not
// concern itself with how replies reach clients — that's the caller's
// transport to wire up.
type ReplyFunc func(payload []byte)

// Engine owns the node tree, audio buses, scheduler, and worker pool, and
// drives them once per block from Process. Every method documented as
// audio-thread-only must be called from the same goroutine Process runs
// on; everything else is safe to call from any goroutine.
type Engine struct {
	opts   Options
	log    *slog.Logger
	reply  ReplyFunc
	epoch  bus.Epoch

	rtMem   *rtmem.Arena
	buses   *bus.Registry
	nodes   *graph.NodeMap
	plugins *plugin.Registry
	sfiles  *soundfile.Registry

	requests  *ring.MPSC[*request.Request]
	scheduler *sched.Scheduler
	workers   *worker.Pool

	bufPool sync.Pool

	currentTime sched.Time
}

// New constructs an Engine. handler is called with every /ack or /error
// reply the engine produces; it must not block.
func New(opts Options, handler ReplyFunc, logger *slog.Logger) *Engine {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		opts:      opts,
		log:       logger,
		reply:     handler,
		rtMem:     rtmem.New(opts.RealtimeMemorySize),
		buses:     bus.NewRegistry(opts.totalBuses(), opts.BlockSize),
		nodes:     graph.NewNodeMap(opts.MaxNumNodes),
		plugins:   plugin.NewRegistry(),
		sfiles:    soundfile.NewRegistry(),
		requests:  ring.NewMPSC[*request.Request](opts.RequestQueueSize),
		scheduler: sched.New(opts.SchedulerQueueSize),
		workers:   worker.New(opts.NumWorkers, opts.WorkerQueueSize),
	}
	e.bufPool.New = func() any { return make([]byte, 0, 512) }
	return e
}

// RegisterSynthDef makes def available to /synth/new requests under uri.
func (e *Engine) RegisterSynthDef(uri string, def plugin.SynthDef) {
	e.plugins.Register(uri, def)
}

// Close stops the worker pool. Call after the driver has stopped calling
// Process.
func (e *Engine) Close() {
	e.workers.Close()
}

// Epoch returns the engine's current block counter.
func (e *Engine) Epoch() bus.Epoch { return e.epoch }

// engineWorld implements plugin.World.
type engineWorld struct{ e *Engine }

func (w engineWorld) SampleRate() float64            { return w.e.opts.SampleRate }
func (w engineWorld) BlockSize() int                 { return w.e.opts.BlockSize }
func (w engineWorld) SoundFiles() plugin.SoundFileAPI { return w.e.sfiles }

// Send queues an OSC request for processing on the next call to Process.
// Safe to call from any goroutine; reports false if the request queue is
// full.
func (e *Engine) Send(payload []byte) bool {
	buf := e.bufPool.Get().([]byte)
	if cap(buf) < len(payload) {
		buf = make([]byte, len(payload))
	} else {
		buf = buf[:len(payload)]
	}
	copy(buf, payload)

	req := request.New(buf, func() {
		e.bufPool.Put(buf[:0])
	})
	if !e.requests.Push(req) {
		e.log.Warn("request queue full, dropping packet", "size", len(payload))
		return false
	}
	return true
}

// Process renders one block. currentTime is in seconds since the engine
// started; inputs and outputs are [channel][sample], outputs sized
// BlockSize and fully written by Process on return.
func (e *Engine) Process(currentTime float64, numFrames int, inputs, outputs [][]float32) {
	if numFrames > e.opts.BlockSize {
		panic("rtaudio: numFrames exceeds configured BlockSize")
	}

	nowSamples := sched.Time(currentTime * e.opts.SampleRate)
	nextSamples := nowSamples + sched.Time(numFrames)
	e.currentTime = nowSamples

	e.processRequests(nowSamples)
	e.processScheduler(nowSamples, nextSamples)
	e.workers.Perform()

	numOut := e.opts.numOutBuses()
	numIn := e.opts.numInBuses()

	for i := 0; i < numIn && i < len(inputs); i++ {
		if b, err := e.buses.At(bus.ID(numOut + i)); err == nil {
			b.WriteExact(e.epoch, inputs[i][:numFrames])
		}
	}

	ctx := &graph.ProcessContext{NumFrames: numFrames, Epoch: e.epoch, Buses: e.buses}
	e.nodes.Root().Process(ctx)

	for i := 0; i < numOut && i < len(outputs); i++ {
		b, err := e.buses.At(bus.ID(i))
		if err != nil || b.Epoch() != e.epoch {
			for j := 0; j < numFrames; j++ {
				outputs[i][j] = 0
			}
			continue
		}
		copy(outputs[i][:numFrames], b.Data()[:numFrames])
	}

	e.epoch++
}

func (e *Engine) replyError(requestID int32, err error) {
	msg := err.Error()
	payload, encErr := request.EncodeError(requestID, msg)
	if encErr != nil {
		e.log.Error("failed to encode error reply", "err", encErr)
		return
	}
	e.log.Debug("request failed", "requestId", requestID, "err", msg)
	if e.reply != nil {
		e.reply(payload)
	}
}

func (e *Engine) replyAck(requestID int32, extra ...int32) {
	payload, err := request.EncodeAck(requestID, extra...)
	if err != nil {
		e.log.Error("failed to encode ack reply", "err", err)
		return
	}
	if e.reply != nil {
		e.reply(payload)
	}
}

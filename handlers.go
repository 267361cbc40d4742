package rtaudio

import (
	"math"

	"github.com/samplecount/rtaudio/internal/bus"
	"github.com/samplecount/rtaudio/internal/graph"
	"github.com/samplecount/rtaudio/internal/request"
	"github.com/samplecount/rtaudio/internal/sched"
	"github.com/samplecount/rtaudio/plugin"
)

// notificationRequestID addresses replies to a client that cannot be
// correlated to any particular request, e.g. a packet that failed to
// parse before its request id could be read.
const notificationRequestID int32 = -1

// postToWorker adapts worker.Pool.PostToWorker's bool result to the
// func(func()) shape Request.Release expects, logging instead of
// silently dropping a deferred free when the worker queue is full.
func (e *Engine) postToWorker(fn func()) {
	if !e.workers.PostToWorker(fn) {
		e.log.Error("worker queue full, dropping deferred work")
	}
}

// processRequests drains every packet queued since the previous block
// and runs each one through the two-phase dispatch: an immediate phase
// that runs right away, and an activation phase that either runs in the
// same pass or is pushed onto the scheduler for a later block.
func (e *Engine) processRequests(now sched.Time) {
	for {
		req, ok := e.requests.Pop()
		if !ok {
			return
		}
		e.processOneRequest(req, now)
	}
}

// processScheduler runs every scheduled item whose deadline falls within
// [now, next), the block currently being rendered.
func (e *Engine) processScheduler(now, next sched.Time) {
	for _, it := range e.scheduler.PopBefore(next - 1) {
		if it.Fn != nil {
			it.Fn()
		}
	}
}

func (e *Engine) processOneRequest(req *request.Request, now sched.Time) {
	pkt, err := request.ParsePacket(req.Payload)
	if err != nil {
		e.log.Error("malformed packet", "err", err)
		e.replyError(notificationRequestID, err)
		req.Release(e.postToWorker)
		return
	}

	switch p := pkt.(type) {
	case *request.Bundle:
		e.processRequestBundle(req, p, now)
	case *request.Message:
		if e.processMessageImmediate(p) {
			e.processMessageActivation(p, now, now)
		}
		req.Release(e.postToWorker)
	}
}

// processRequestBundle runs a top-level bundle's immediate phase, then
// either runs its activation phase in place (timetag 1, or any deadline
// that has already passed) or retains req and pushes the activation
// phase onto the scheduler for its deadline.
func (e *Engine) processRequestBundle(req *request.Request, b *request.Bundle, now sched.Time) {
	e.processBundleImmediate(b)

	if b.Time == 1 {
		e.processBundleActivation(b, now, now)
		req.Release(e.postToWorker)
		return
	}

	deadline := sched.Time(math.Float64frombits(b.Time) * e.opts.SampleRate)
	if deadline <= now {
		e.processBundleActivation(b, now, now)
		req.Release(e.postToWorker)
		return
	}

	req.Retain()
	if err := e.scheduler.Push(deadline, func() {
		e.processBundleActivation(b, deadline, e.currentTime)
		req.Release(e.postToWorker)
	}); err != nil {
		e.log.Warn("scheduler queue overflow, dropping bundle", "deadline", deadline)
		e.replyError(notificationRequestID, err)
		req.Release(e.postToWorker) // undo the Retain just above
	}
	req.Release(e.postToWorker) // the reference the request queue itself held
}

// processBundleImmediate runs the immediate phase of every packet in b,
// recursing into nested bundles (which are flattened: a nested bundle's
// own timetag is discarded, matching the reference engine's "scheduled
// bundles are flattened" ordering guarantee). Reports whether any
// contained message still needs an activation phase.
func (e *Engine) processBundleImmediate(b *request.Bundle) bool {
	needsScheduling := false
	for _, p := range b.Packets {
		switch v := p.(type) {
		case *request.Bundle:
			if e.processBundleImmediate(v) {
				needsScheduling = true
			}
		case *request.Message:
			if e.processMessageImmediate(v) {
				needsScheduling = true
			}
		}
	}
	return needsScheduling
}

func (e *Engine) processBundleActivation(b *request.Bundle, scheduleTime, currentTime sched.Time) {
	for _, p := range b.Packets {
		switch v := p.(type) {
		case *request.Bundle:
			e.processBundleActivation(v, scheduleTime, currentTime)
		case *request.Message:
			e.processMessageActivation(v, scheduleTime, currentTime)
		}
	}
}

// processMessageImmediate runs whatever part of m's handling must happen
// right away, reporting whether an activation phase is still needed.
// /group/new and the two query messages are fully handled here, matching
// the reference engine; /synth/new constructs and registers its synth
// here and activates it in the activation phase; every other recognized
// message defers its real work to the activation phase
// so it can be scheduled at a sample-accurate deadline, and unrecognized
// addresses do the same so they fail loudly there instead of silently
// here.
func (e *Engine) processMessageImmediate(m *request.Message) bool {
	switch m.Address {
	case "/group/new":
		e.handleGroupNew(m)
		return false
	case "/synth/new":
		return e.handleSynthNewImmediate(m)
	case "/query/external_inputs":
		e.handleQueryExternalInputs(m)
		return false
	case "/query/external_outputs":
		e.handleQueryExternalOutputs(m)
		return false
	default:
		return true
	}
}

func (e *Engine) processMessageActivation(m *request.Message, scheduleTime, currentTime sched.Time) {
	switch m.Address {
	case "/group/new", "/query/external_inputs", "/query/external_outputs":
		// Fully handled by processMessageImmediate; a bundle's activation
		// phase walks every message, so these are skipped here.
	case "/synth/new":
		e.handleSynthNewActivation(m, scheduleTime, currentTime)
	case "/node/free":
		e.handleNodeFree(m)
	case "/node/set":
		e.handleNodeSet(m)
	case "/synth/map/input":
		e.handleMapInput(m)
	case "/synth/map/output":
		e.handleMapOutput(m)
	default:
		e.replyError(notificationRequestID, newError(ErrUnknown, "unrecognized address %q", m.Address))
	}
}

// enclosingGroup resolves the group a newly constructed node should be
// attached to, relative to target: target itself if it's already a
// group, otherwise target's parent, matching §4.4's "targets that are
// Synths resolve to their parent".
func enclosingGroup(target graph.Node) *graph.Group {
	if g, ok := target.(*graph.Group); ok {
		return g
	}
	return target.Parent()
}

func (e *Engine) handleGroupNew(m *request.Message) {
	args := m.Args()
	requestID, err := args.Int32()
	if err != nil {
		e.replyError(notificationRequestID, err)
		return
	}
	nodeID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	targetID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	action, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}

	target, err := e.nodes.Lookup(graph.ID(targetID))
	if err != nil {
		e.replyError(requestID, errNodeID(targetID))
		return
	}
	if _, err := e.nodes.Lookup(graph.ID(nodeID)); err == nil {
		e.replyError(requestID, errDuplicateNodeID(nodeID))
		return
	}

	g := graph.NewGroup(graph.ID(nodeID))
	parent := enclosingGroup(target)
	parent.Insert(g, graph.AddAction(action), target)
	if err := e.nodes.Register(g); err != nil {
		parent.Remove(g)
		e.replyError(requestID, err)
		return
	}
	e.replyAck(requestID, nodeID)
}

// parseSynthNewHeader reads /synth/new's fixed leading fields from a
// fresh cursor over m's arguments, leaving synthControls and synthArgs
// for the caller to read next. Both the immediate and activation phases
// call this independently via m.Args(), so activation doesn't depend on
// state the immediate phase left behind.
func parseSynthNewHeader(args *request.ArgStream) (requestID int32, defURI string, nodeID, targetID, action int32, err error) {
	if requestID, err = args.Int32(); err != nil {
		return
	}
	if defURI, err = args.String(); err != nil {
		return
	}
	if nodeID, err = args.Int32(); err != nil {
		return
	}
	if targetID, err = args.Int32(); err != nil {
		return
	}
	action, err = args.Int32()
	return
}

func (e *Engine) handleSynthNewImmediate(m *request.Message) bool {
	args := m.Args()
	requestID, defURI, nodeID, targetID, action, err := parseSynthNewHeader(args)
	if err != nil {
		e.replyError(notificationRequestID, err)
		return false
	}

	def, err := e.plugins.Lookup(defURI)
	if err != nil {
		e.replyError(requestID, errSynthDefNotFound(defURI))
		return false
	}
	target, err := e.nodes.Lookup(graph.ID(targetID))
	if err != nil {
		e.replyError(requestID, errNodeID(targetID))
		return false
	}
	if _, err := e.nodes.Lookup(graph.ID(nodeID)); err == nil {
		e.replyError(requestID, errDuplicateNodeID(nodeID))
		return false
	}

	counts := graph.PortCounts{
		NumAudioInputs:    e.plugins.NumAudioInputs(defURI),
		NumAudioOutputs:   e.plugins.NumAudioOutputs(defURI),
		NumControlInputs:  e.plugins.NumControlInputs(defURI),
		NumControlOutputs: e.plugins.NumControlOutputs(defURI),
	}

	var controls *request.ArgStream
	if !args.AtEnd() {
		controls, err = args.Array()
		if err != nil {
			e.replyError(requestID, err)
			return false
		}
	}

	// synthArgs stays a genuinely nil plugin.Args (not a typed nil
	// pointer boxed in the interface) when the request carries none, so
	// a SynthDef's `args != nil` check behaves as expected.
	var synthArgs plugin.Args
	if !args.AtEnd() {
		stream, err := args.Array()
		if err != nil {
			e.replyError(requestID, err)
			return false
		}
		synthArgs = stream
	}
	instance := def.Construct(engineWorld{e}, synthArgs)

	s, err := graph.NewSynth(graph.ID(nodeID), defURI, instance, counts, e.opts.BlockSize, e.rtMem)
	if err != nil {
		e.replyError(requestID, err)
		return false
	}

	if controls != nil {
		for i := 0; i < counts.NumControlInputs && !controls.AtEnd(); i++ {
			v, err := controls.Float32()
			if err != nil {
				break
			}
			s.SetControlInput(i, v)
		}
	}

	parent := enclosingGroup(target)
	parent.Insert(s, graph.AddAction(action), target)
	if err := e.nodes.Register(s); err != nil {
		parent.Remove(s)
		e.postToWorker(s.Destroy)
		e.replyError(requestID, err)
		return false
	}

	e.replyAck(requestID, nodeID)
	return true
}

func (e *Engine) handleSynthNewActivation(m *request.Message, scheduleTime, currentTime sched.Time) {
	_, _, nodeID, _, _, err := parseSynthNewHeader(m.Args())
	if err != nil {
		return
	}
	n, err := e.nodes.Lookup(graph.ID(nodeID))
	if err != nil {
		return // freed (e.g. by a /node/free earlier in the same bundle) before activation
	}
	s, ok := n.(*graph.Synth)
	if !ok {
		return
	}
	s.Activate(int(scheduleTime - currentTime))
}

func (e *Engine) handleNodeFree(m *request.Message) {
	args := m.Args()
	requestID, err := args.Int32()
	if err != nil {
		e.replyError(notificationRequestID, err)
		return
	}
	nodeID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}

	freed, err := e.nodes.Free(graph.ID(nodeID))
	if err != nil {
		e.replyError(requestID, errNodeID(nodeID))
		return
	}
	for _, s := range freed {
		e.postToWorker(s.Destroy)
	}
	e.replyAck(requestID)
}

func (e *Engine) handleNodeSet(m *request.Message) {
	args := m.Args()
	requestID, err := args.Int32()
	if err != nil {
		e.replyError(notificationRequestID, err)
		return
	}
	nodeID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	index, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	value, err := args.Float32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}

	s, err := e.lookupSynth(requestID, nodeID)
	if err != nil {
		return
	}
	if int(index) < 0 || int(index) >= s.NumControlInputs() {
		e.replyError(requestID, errIndexRange("control input", int(index), s.NumControlInputs()))
		return
	}
	s.SetControlInput(int(index), value)
	e.replyAck(requestID)
}

func (e *Engine) handleMapInput(m *request.Message) {
	args := m.Args()
	requestID, err := args.Int32()
	if err != nil {
		e.replyError(notificationRequestID, err)
		return
	}
	nodeID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	port, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	busID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	flags, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}

	s, err := e.lookupSynth(requestID, nodeID)
	if err != nil {
		return
	}
	if int(port) < 0 || int(port) >= s.NumAudioInputs() {
		e.replyError(requestID, errIndexRange("audio input port", int(port), s.NumAudioInputs()))
		return
	}
	if int(busID) < 0 || int(busID) >= e.buses.Len() {
		e.replyError(requestID, newError(ErrBusID, "bus id %d out of range [0,%d)", busID, e.buses.Len()))
		return
	}
	s.MapInput(int(port), bus.ID(busID), graph.InputConnectionType(flags))
	e.replyAck(requestID)
}

func (e *Engine) handleMapOutput(m *request.Message) {
	args := m.Args()
	requestID, err := args.Int32()
	if err != nil {
		e.replyError(notificationRequestID, err)
		return
	}
	nodeID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	port, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	busID, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}
	flags, err := args.Int32()
	if err != nil {
		e.replyError(requestID, err)
		return
	}

	s, err := e.lookupSynth(requestID, nodeID)
	if err != nil {
		return
	}
	if int(port) < 0 || int(port) >= s.NumAudioOutputs() {
		e.replyError(requestID, errIndexRange("audio output port", int(port), s.NumAudioOutputs()))
		return
	}
	if int(busID) < 0 || int(busID) >= e.buses.Len() {
		e.replyError(requestID, newError(ErrBusID, "bus id %d out of range [0,%d)", busID, e.buses.Len()))
		return
	}
	s.MapOutput(int(port), bus.ID(busID), graph.OutputConnectionType(flags))
	e.replyAck(requestID)
}

// lookupSynth looks up nodeID and reports an error reply (and a non-nil
// error) if it doesn't exist or isn't a synth.
func (e *Engine) lookupSynth(requestID, nodeID int32) (*graph.Synth, error) {
	n, err := e.nodes.Lookup(graph.ID(nodeID))
	if err != nil {
		werr := errNodeID(nodeID)
		e.replyError(requestID, werr)
		return nil, werr
	}
	s, ok := n.(*graph.Synth)
	if !ok {
		werr := errNodeType(nodeID, "synth")
		e.replyError(requestID, werr)
		return nil, werr
	}
	return s, nil
}

// handleQueryExternalOutputs and handleQueryExternalInputs answer with
// the bus ids the unified bus-id space assigns to hardware channels
// (see Options.numOutBuses/numInBuses), fully implementing messages the
// reference engine only stubbed.
func (e *Engine) handleQueryExternalOutputs(m *request.Message) {
	requestID, err := m.Args().Int32()
	if err != nil {
		e.replyError(notificationRequestID, err)
		return
	}
	n := e.opts.numOutBuses()
	ids := make([]int32, n)
	for i := range ids {
		ids[i] = int32(i)
	}
	e.replyAck(requestID, ids...)
}

func (e *Engine) handleQueryExternalInputs(m *request.Message) {
	requestID, err := m.Args().Int32()
	if err != nil {
		e.replyError(notificationRequestID, err)
		return
	}
	base := e.opts.numOutBuses()
	n := e.opts.numInBuses()
	ids := make([]int32, n)
	for i := range ids {
		ids[i] = int32(base + i)
	}
	e.replyAck(requestID, ids...)
}

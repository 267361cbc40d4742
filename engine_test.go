package rtaudio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/hypebeast/go-osc/osc"

	"github.com/samplecount/rtaudio/internal/bus"
	"github.com/samplecount/rtaudio/internal/graph"
	"github.com/samplecount/rtaudio/plugins/builtin"
)

func mustBytes(t *testing.T, msg *osc.Message) []byte {
	t.Helper()
	b, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return b
}

// bundleImmediate and bundleAt build "#bundle" packets by hand: this
// protocol's 8-byte timetag is either the literal sentinel 1 or an
// IEEE754 float64 of wall-clock seconds, neither of which go-osc's
// Bundle (which only speaks standard NTP timetags) can produce.
func bundleImmediate(msgs ...*osc.Message) []byte {
	return bundleRaw(1, msgs...)
}

func bundleAt(seconds float64, msgs ...*osc.Message) []byte {
	return bundleRaw(math.Float64bits(seconds), msgs...)
}

func bundleRaw(timetag uint64, msgs ...*osc.Message) []byte {
	var buf []byte
	buf = append(buf, "#bundle\x00"...)
	var tbuf [8]byte
	binary.BigEndian.PutUint64(tbuf[:], timetag)
	buf = append(buf, tbuf[:]...)
	for _, m := range msgs {
		b, err := m.MarshalBinary()
		if err != nil {
			panic(err)
		}
		var sz [4]byte
		binary.BigEndian.PutUint32(sz[:], uint32(len(b)))
		buf = append(buf, sz[:]...)
		buf = append(buf, b...)
	}
	return buf
}

func groupNewMsg(requestID, nodeID, targetID, action int32) *osc.Message {
	m := osc.NewMessage("/group/new")
	m.Append(requestID)
	m.Append(nodeID)
	m.Append(targetID)
	m.Append(action)
	return m
}

func synthNewMsg(requestID int32, uri string, nodeID, targetID, action int32) *osc.Message {
	m := osc.NewMessage("/synth/new")
	m.Append(requestID)
	m.Append(uri)
	m.Append(nodeID)
	m.Append(targetID)
	m.Append(action)
	return m
}

func mapOutputMsg(requestID, nodeID, port, busID, flags int32) *osc.Message {
	m := osc.NewMessage("/synth/map/output")
	m.Append(requestID)
	m.Append(nodeID)
	m.Append(port)
	m.Append(busID)
	m.Append(flags)
	return m
}

func nodeSetMsg(requestID, nodeID, index int32, value float32) *osc.Message {
	m := osc.NewMessage("/node/set")
	m.Append(requestID)
	m.Append(nodeID)
	m.Append(index)
	m.Append(value)
	return m
}

func nodeFreeMsg(requestID, nodeID int32) *osc.Message {
	m := osc.NewMessage("/node/free")
	m.Append(requestID)
	m.Append(nodeID)
	return m
}

func newTestEngine(t *testing.T, opts Options, replies *[][]byte) *Engine {
	t.Helper()
	e := New(opts, func(payload []byte) {
		*replies = append(*replies, payload)
	}, nil)
	e.RegisterSynthDef("test.silence", builtin.Silence{})
	e.RegisterSynthDef("test.sine", builtin.Sine{})
	t.Cleanup(e.Close)
	return e
}

func decodeReply(t *testing.T, payload []byte) *osc.Message {
	t.Helper()
	pkt, err := osc.ParsePacket(string(payload))
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	msg, ok := pkt.(*osc.Message)
	if !ok {
		t.Fatalf("reply is not a message: %T", pkt)
	}
	return msg
}

// Scenario 1: empty engine.
func TestEmptyEngineProducesSilenceAndAdvancesEpoch(t *testing.T) {
	var replies [][]byte
	e := newTestEngine(t, Options{SampleRate: 48000, BlockSize: 64, NumHardwareOutputs: 2}, &replies)

	out := [][]float32{make([]float32, 64), make([]float32, 64)}
	e.Process(0.0, 64, nil, out)

	for ch := range out {
		for i, v := range out[ch] {
			if v != 0 {
				t.Fatalf("out[%d][%d] = %v, want 0", ch, i, v)
			}
		}
	}
	if e.Epoch() != 1 {
		t.Fatalf("epoch = %d, want 1", e.Epoch())
	}
}

// Scenario 2: immediate synth, bundled at timetag 1 ("immediate").
func TestImmediateSynthViaBundle(t *testing.T) {
	var replies [][]byte
	e := newTestEngine(t, Options{SampleRate: 48000, BlockSize: 64, NumHardwareOutputs: 1}, &replies)

	e.Send(bundleImmediate(
		groupNewMsg(1, 1, 0, int32(graph.AddToTail)),
		synthNewMsg(2, "test.silence", 2, 1, int32(graph.AddToTail)),
	))
	e.Send(mustBytes(t, mapOutputMsg(3, 2, 0, 0, int32(0))))

	out := [][]float32{make([]float32, 64)}
	e.Process(0.0, 64, nil, out)

	if _, err := e.nodes.Lookup(graph.ID(2)); err != nil {
		t.Fatalf("node 2 not registered: %v", err)
	}
	for i, v := range out[0] {
		if v != 0 {
			t.Fatalf("out[0][%d] = %v, want 0 (silence synth)", i, v)
		}
	}
	for _, r := range replies {
		if msg := decodeReply(t, r); msg.Address == "/error" {
			t.Fatalf("unexpected error reply: %+v", msg)
		}
	}
}

// Scenario 3: deferred activation at a future wall-clock timetag.
func TestDeferredActivationComputesSampleOffset(t *testing.T) {
	var replies [][]byte
	e := newTestEngine(t, Options{SampleRate: 48000, BlockSize: 64, NumHardwareOutputs: 1}, &replies)

	e.Send(mustBytes(t, groupNewMsg(1, 1, 0, int32(graph.AddToTail))))
	e.Process(0.0, 64, nil, [][]float32{make([]float32, 64)})

	e.Send(bundleAt(0.5, synthNewMsg(2, "test.sine", 2, 1, int32(graph.AddToTail))))

	blockSize := 64
	sampleRate := 48000.0
	foundOffset := -1
	for i := 1; i <= 1000; i++ {
		currentTime := float64(i*blockSize) / sampleRate
		e.Process(currentTime, blockSize, nil, [][]float32{make([]float32, blockSize)})

		n, err := e.nodes.Lookup(graph.ID(2))
		if err != nil {
			t.Fatalf("synth not constructed by the immediate phase: %v", err)
		}
		s, ok := n.(*graph.Synth)
		if !ok {
			t.Fatalf("node 2 is not a synth")
		}
		if s.Active() {
			want := int(0.5*sampleRate) - int(currentTime*sampleRate)
			foundOffset = want
			break
		}
	}
	if foundOffset < 0 {
		t.Fatal("synth never activated within 1000 blocks")
	}
	if foundOffset < 0 || foundOffset > blockSize {
		t.Fatalf("sample offset %d out of block range [0,%d]", foundOffset, blockSize)
	}
}

// Scenario 6: freeing a non-existent node reports node-id-error and
// leaves the engine otherwise responsive.
func TestFreeNonExistentNodeReportsError(t *testing.T) {
	var replies [][]byte
	e := newTestEngine(t, Options{SampleRate: 48000, BlockSize: 64}, &replies)

	e.Send(mustBytes(t, nodeFreeMsg(7, 9999)))
	e.Process(0.0, 64, nil, nil)

	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if msg := decodeReply(t, replies[0]); msg.Address != "/error" {
		t.Fatalf("address = %q, want /error", msg.Address)
	}

	e.Send(mustBytes(t, groupNewMsg(8, 1, 0, int32(graph.AddToTail))))
	e.Process(0.0, 64, nil, nil)
	if _, err := e.nodes.Lookup(graph.ID(1)); err != nil {
		t.Fatalf("engine stopped processing requests after an error: %v", err)
	}
}

// Root node (id 0) may never be freed.
func TestFreeRootNodeRejected(t *testing.T) {
	var replies [][]byte
	e := newTestEngine(t, Options{SampleRate: 48000, BlockSize: 64}, &replies)

	e.Send(mustBytes(t, nodeFreeMsg(1, int32(graph.RootID))))
	e.Process(0.0, 64, nil, nil)

	if len(replies) != 1 {
		t.Fatalf("got %d replies, want 1", len(replies))
	}
	if msg := decodeReply(t, replies[0]); msg.Address != "/error" {
		t.Fatalf("address = %q, want /error", msg.Address)
	}
}

// Accumulation on a shared internal bus (scenario 4): two synths mapped
// to the same output bus both contribute, and the bus ends up stamped
// with the current epoch.
func TestAccumulationOnSharedBus(t *testing.T) {
	var replies [][]byte
	e := newTestEngine(t, Options{SampleRate: 48000, BlockSize: 64, MaxNumAudioBuses: 8}, &replies)

	e.Send(mustBytes(t, groupNewMsg(1, 1, 0, int32(graph.AddToTail))))
	e.Send(bundleImmediate(
		synthNewMsg(2, "test.sine", 2, 1, int32(graph.AddToTail)),
		synthNewMsg(3, "test.sine", 3, 1, int32(graph.AddToTail)),
	))
	sharedBus := int32(e.opts.numOutBuses() + e.opts.numInBuses())
	e.Send(mustBytes(t, mapOutputMsg(4, 2, 0, sharedBus, int32(0))))
	e.Send(mustBytes(t, mapOutputMsg(5, 3, 0, sharedBus, int32(0))))
	e.Send(mustBytes(t, nodeSetMsg(6, 2, 0, 440)))
	e.Send(mustBytes(t, nodeSetMsg(7, 3, 0, 440)))

	e.Process(0.0, 64, nil, nil)

	b, err := e.buses.At(bus.ID(sharedBus))
	if err != nil {
		t.Fatalf("bus lookup: %v", err)
	}
	if b.Epoch() != e.epoch-1 {
		t.Fatalf("bus epoch = %d, want %d", b.Epoch(), e.epoch-1)
	}
	allZero := true
	for _, v := range b.Data() {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatal("accumulated bus is all zero, want nonzero sine contributions")
	}
}

// NodeMap at capacity (scenario 5's sibling): once MaxNumNodes nodes are
// registered (root included), the next insertion reports an error
// instead of corrupting the tree, and earlier nodes are unaffected.
func TestNodeMapFullReportsError(t *testing.T) {
	var replies [][]byte
	opts := Options{SampleRate: 48000, BlockSize: 64, MaxNumNodes: 2}
	e := newTestEngine(t, opts, &replies)

	e.Send(mustBytes(t, groupNewMsg(1, 1, 0, int32(graph.AddToTail))))
	e.Process(0.0, 64, nil, nil)
	if _, err := e.nodes.Lookup(graph.ID(1)); err != nil {
		t.Fatalf("first group not registered: %v", err)
	}

	e.Send(mustBytes(t, groupNewMsg(2, 2, 0, int32(graph.AddToTail))))
	e.Process(0.0, 64, nil, nil)

	if len(replies) != 2 {
		t.Fatalf("got %d replies, want 2 (ack for node 1, error for node 2)", len(replies))
	}
	if msg := decodeReply(t, replies[1]); msg.Address != "/error" {
		t.Fatalf("address = %q, want /error", msg.Address)
	}
	if _, err := e.nodes.Lookup(graph.ID(2)); err == nil {
		t.Fatal("node 2 should not be registered after capacity error")
	}
	root, err := e.nodes.LookupGroup(graph.RootID)
	if err != nil {
		t.Fatalf("root lookup: %v", err)
	}
	if root.NumChildren() != 1 {
		t.Fatalf("root has %d children, want 1 (failed insert must not leave a dangling child)", root.NumChildren())
	}
}

// Scheduler overflow (scenario 5): pushing more timestamped bundles than
// the scheduler's capacity reports queue-overflow on the excess without
// destabilizing later blocks.
func TestSchedulerOverflowReportsError(t *testing.T) {
	var replies [][]byte
	opts := Options{SampleRate: 48000, BlockSize: 64, SchedulerQueueSize: 4}
	e := newTestEngine(t, opts, &replies)

	for i := 0; i < opts.SchedulerQueueSize+1; i++ {
		e.Send(bundleAt(10.0, groupNewMsg(int32(100+i), int32(200+i), 0, int32(graph.AddToTail))))
	}
	e.Process(0.0, 64, nil, nil)

	overflowed := false
	for _, r := range replies {
		if msg := decodeReply(t, r); msg.Address == "/error" {
			overflowed = true
		}
	}
	if !overflowed {
		t.Fatal("expected at least one /error reply for scheduler overflow")
	}

	// The engine must still process requests normally afterward.
	e.Send(mustBytes(t, groupNewMsg(999, 1, 0, int32(graph.AddToTail))))
	e.Process(0.0, 64, nil, nil)
	if _, err := e.nodes.Lookup(graph.ID(1)); err != nil {
		t.Fatalf("engine unresponsive after scheduler overflow: %v", err)
	}
}

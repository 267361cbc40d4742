package graph

import (
	"github.com/samplecount/rtaudio/internal/bus"
	"github.com/samplecount/rtaudio/internal/rtmem"
	"github.com/samplecount/rtaudio/plugin"
)

// synthFlag bits record which of a synth's connection sets changed since
// the last time the flag was cleared, mirroring Synth::Flags in the
// reference engine.
type synthFlag uint32

const (
	flagAudioInputChanged synthFlag = 1 << iota
	flagAudioOutputChanged
	flagControlInputChanged
	flagControlOutputChanged
)

// PortCounts describes how many ports of each kind a SynthDef exposes,
// queried from the plugin registry once at /synth/new time.
type PortCounts struct {
	NumAudioInputs    int
	NumAudioOutputs   int
	NumControlInputs  int
	NumControlOutputs int
}

// Synth is a leaf node wrapping one running plugin instance.
type Synth struct {
	header

	uri      string
	instance plugin.Instance
	flags    synthFlag

	audioIn  []AudioInputConnection
	audioOut []AudioOutputConnection

	// audioScratch holds one []float32 of length numFrames per audio
	// port, carved from the engine's rtmem arena at construction time
	// and reused for the synth's lifetime: inputs first, then outputs.
	audioScratch []arenaBuf

	// control holds every control input then every control output
	// value, exactly as in the reference engine's flat controlBuffers
	// layout.
	control          []float32
	numControlInputs int

	// active is false from construction until Activate is called, during
	// the scheduled activation phase of /synth/new; Process is a no-op
	// until then. sampleOffset is consumed on the first active block,
	// zero-padding that many leading samples of every output port so a
	// synth activated mid-block doesn't produce sound before its
	// scheduled sample-accurate deadline.
	active       bool
	sampleOffset int
}

type arenaBuf struct {
	arena *rtmem.Arena
	buf   []float32
}

// NewSynth constructs a Synth bound to instance, with id/uri for
// identification and counts describing instance's port layout. numFrames
// is the block size; arena supplies the per-port audio scratch buffers.
func NewSynth(id ID, uri string, instance plugin.Instance, counts PortCounts, numFrames int, arena *rtmem.Arena) (*Synth, error) {
	s := &Synth{
		header:           header{id: id},
		uri:              uri,
		instance:         instance,
		audioIn:          make([]AudioInputConnection, counts.NumAudioInputs),
		audioOut:         make([]AudioOutputConnection, counts.NumAudioOutputs),
		control:          make([]float32, counts.NumControlInputs+counts.NumControlOutputs),
		numControlInputs: counts.NumControlInputs,
	}
	for i := range s.audioIn {
		s.audioIn[i].index = i
	}
	for i := range s.audioOut {
		s.audioOut[i].index = i
	}

	numAudioPorts := counts.NumAudioInputs + counts.NumAudioOutputs
	s.audioScratch = make([]arenaBuf, numAudioPorts)
	for i := 0; i < numAudioPorts; i++ {
		buf, err := arena.AllocFloat32(numFrames)
		if err != nil {
			s.releaseScratch(i)
			return nil, err
		}
		s.audioScratch[i] = arenaBuf{arena: arena, buf: buf}
	}

	for i := 0; i < counts.NumAudioInputs; i++ {
		instance.Connect(i, s.audioScratch[i].buf)
	}
	for i := 0; i < counts.NumAudioOutputs; i++ {
		instance.Connect(counts.NumAudioInputs+i, s.audioScratch[counts.NumAudioInputs+i].buf)
	}
	for i := range s.control {
		instance.Connect(numAudioPorts+i, s.control[i:i+1:i+1])
	}

	return s, nil
}

func (s *Synth) releaseScratch(upTo int) {
	for i := 0; i < upTo; i++ {
		s.audioScratch[i].arena.FreeFloat32(s.audioScratch[i].buf)
	}
}

func (s *Synth) Kind() Kind { return KindSynth }

// URI returns the SynthDef URI this synth was constructed from.
func (s *Synth) URI() string { return s.uri }

// NumAudioInputs returns the number of audio input ports.
func (s *Synth) NumAudioInputs() int { return len(s.audioIn) }

// NumAudioOutputs returns the number of audio output ports.
func (s *Synth) NumAudioOutputs() int { return len(s.audioOut) }

// NumControlInputs returns the number of control input ports.
func (s *Synth) NumControlInputs() int { return s.numControlInputs }

// NumControlOutputs returns the number of control output ports.
func (s *Synth) NumControlOutputs() int { return len(s.control) - s.numControlInputs }

// ControlInput returns the current value of control input index.
func (s *Synth) ControlInput(index int) float32 {
	return s.control[index]
}

// SetControlInput sets control input index to v.
func (s *Synth) SetControlInput(index int, v float32) {
	s.control[index] = v
	s.flags |= flagControlInputChanged
}

// ControlOutput returns the current value of control output index,
// stored after every control input in the flat control buffer.
func (s *Synth) ControlOutput(index int) float32 {
	return s.control[s.numControlInputs+index]
}

// MapInput binds audio input port to busID with the given connection
// type, reporting whether the binding changed.
func (s *Synth) MapInput(port int, busID bus.ID, typ InputConnectionType) bool {
	changed := s.audioIn[port].Connect(busID, typ)
	if changed {
		s.flags |= flagAudioInputChanged
	}
	return changed
}

// MapOutput binds audio output port to busID with the given connection
// type, reporting whether the binding changed.
func (s *Synth) MapOutput(port int, busID bus.ID, typ OutputConnectionType) bool {
	changed := s.audioOut[port].Connect(busID, typ)
	if changed {
		s.flags |= flagAudioOutputChanged
	}
	return changed
}

// Activate makes the synth eligible for processing starting with the
// block in which it's called. sampleOffset is the number of leading
// samples of that first block to render as silence, so a synth
// scheduled to start partway through a block doesn't produce sound
// before its deadline.
func (s *Synth) Activate(sampleOffset int) {
	s.active = true
	s.sampleOffset = sampleOffset
}

// Active reports whether Activate has been called.
func (s *Synth) Active() bool { return s.active }

// Process reads every input port from its bound bus, runs the plugin
// instance, and writes every output port back to its bound bus. A not
// yet activated synth is skipped entirely.
func (s *Synth) Process(ctx *ProcessContext) {
	if !s.active {
		return
	}
	offset := s.sampleOffset
	s.sampleOffset = 0
	if offset < 0 || offset > ctx.NumFrames {
		offset = 0
	}

	for i := range s.audioIn {
		s.audioIn[i].Read(ctx.Buses, ctx.Epoch, s.audioScratch[i].buf)
	}

	s.reconnectChanged()

	s.instance.Process(ctx.NumFrames)

	base := len(s.audioIn)
	for i := range s.audioOut {
		buf := s.audioScratch[base+i].buf
		for j := 0; j < offset; j++ {
			buf[j] = 0
		}
		s.audioOut[i].Write(ctx.Buses, ctx.Epoch, buf)
	}
}

// reconnectChanged re-invokes the plugin's connect for every port in a
// category the flags mark changed since the last block, then clears
// them. Ports keep the same scratch buffer for the synth's lifetime, so
// this rebinds the plugin to a bus mapping change rather than a new
// buffer; a plugin that reinitializes port-local state on connect (e.g.
// a resampler's phase) relies on seeing the call.
func (s *Synth) reconnectChanged() {
	if s.flags == 0 {
		return
	}
	if s.flags&flagAudioInputChanged != 0 {
		for i := range s.audioIn {
			s.instance.Connect(i, s.audioScratch[i].buf)
		}
	}
	base := len(s.audioIn)
	if s.flags&flagAudioOutputChanged != 0 {
		for i := range s.audioOut {
			s.instance.Connect(base+i, s.audioScratch[base+i].buf)
		}
	}
	if s.flags&(flagControlInputChanged|flagControlOutputChanged) != 0 {
		base += len(s.audioOut)
		for i := range s.control {
			s.instance.Connect(base+i, s.control[i:i+1:i+1])
		}
	}
	s.flags = 0
}

// Destroy releases the plugin instance and its scratch buffers. Must be
// called on a worker thread, never the audio thread — Destroy may
// allocate or block.
func (s *Synth) Destroy() {
	s.instance.Destroy()
	s.releaseScratch(len(s.audioScratch))
}

// Package plugin defines the ABI synth definitions implement to be hosted
// by the engine. A SynthDef describes port layout and provides the
// construct/connect/process/destroy lifecycle the engine drives once per
// instantiated synth; it never allocates once process has begun.
package plugin

// PortRate distinguishes control-rate ports (read once per block) from
// audio-rate ports (a full block of samples per call).
type PortRate int

const (
	RateControl PortRate = iota
	RateAudio
)

// PortDirection is Input or Output.
type PortDirection int

const (
	DirInput PortDirection = iota
	DirOutput
)

// PortDescriptor describes a single port of a SynthDef.
type PortDescriptor struct {
	Name      string
	Rate      PortRate
	Direction PortDirection
	// Trigger marks a control input that fires an edge-triggered event
	// rather than holding a continuous value (e.g. a gate or a bang).
	Trigger bool
}

// SoundFile is an already-open handle to a decoded sound file, used by
// SynthDefs that play back samples (e.g. a disk player plugin). Its
// methods do blocking file I/O; the built-in DiskPlayer calls
// ReadFloat32 from Process, on the audio thread, and the engine does not
// move these calls to a worker.
type SoundFile interface {
	NumChannels() int
	NumFrames() int64
	SampleRate() float64
	// ReadFloat32 reads up to len(dst)/NumChannels frames, interleaved,
	// returning the number of frames actually read.
	ReadFloat32(dst []float32) (framesRead int, err error)
	Close() error
}

// SoundFileAPI opens sound files by path, dispatching to a decoder by
// file extension or content sniffing. The engine provides one
// implementation (see the soundfile package) via World.
type SoundFileAPI interface {
	Open(path string) (SoundFile, error)
}

// World is the subset of engine state a running synth instance may touch:
// the sample rate and block size it was configured for, plus a handle to
// open sound files; Open runs on whichever goroutine calls it, which for
// Construct is the audio thread. It deliberately exposes nothing
// that would let a synth reach outside its own buffers.
type World interface {
	SampleRate() float64
	BlockSize() int
	SoundFiles() SoundFileAPI
}

// Host is passed to Configure so a SynthDef can describe itself before any
// instance is constructed.
type Host interface {
	// AddPort must be called once, in order, for every port the SynthDef
	// exposes; the index assigned is the port's position in that order.
	AddPort(desc PortDescriptor)
}

// Args is a forward-only cursor over a /synth/new request's synthArgs
// stream: construction-time parameters that configure a SynthDef itself
// (e.g. a file path) rather than a control port. It is satisfied
// directly by *request.ArgStream; Construct never needs to know the
// wire format behind it.
type Args interface {
	AtEnd() bool
	Int32() (int32, error)
	Float32() (float32, error)
	String() (string, error)
	Blob() ([]byte, error)
}

// Instance is a single constructed synth. The engine calls Connect once
// per port before the first Process. It may call Connect again for a
// port whose bus mapping changed since the last block, and for every
// control port after a control input was set, immediately before the
// Process call that first observes the change; Destroy runs
// exactly once when the synth is freed.
type Instance interface {
	// Connect binds port index to a buffer. For audio ports buf has
	// BlockSize samples; for control ports buf has exactly one. May be
	// called more than once for the same port.
	Connect(port int, buf []float32)
	// Process renders numFrames samples into the buffers given via
	// Connect. It must not allocate.
	Process(numFrames int)
	// Destroy releases any resources the instance holds. It runs on a
	// worker thread, never on the audio thread.
	Destroy()
}

// SynthDef is the constructor contract a plugin registers under a URI.
type SynthDef interface {
	// Configure describes the SynthDef's ports to host once, before any
	// instance exists.
	Configure(host Host)
	// Construct creates one instance of this SynthDef for world, reading
	// any construction-time parameters from args. It runs on the audio
	// thread and must not allocate from the Go heap; an instance's
	// buffers are supplied separately via rtmem.
	Construct(world World, args Args) Instance
}

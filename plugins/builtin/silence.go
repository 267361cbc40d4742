// Package builtin provides a small set of SynthDefs used by the demo
// command and the engine's own tests: silence, a sine oscillator with a
// frequency control, a gain stage, and a sound-file player.
package builtin

import "github.com/samplecount/rtaudio/plugin"

// Silence is the simplest possible SynthDef: one audio output, always
// zero. Useful as a placeholder target and in tests that only care about
// graph wiring, not signal content.
type Silence struct{}

func (Silence) Configure(host plugin.Host) {
	host.AddPort(plugin.PortDescriptor{Name: "out", Rate: plugin.RateAudio, Direction: plugin.DirOutput})
}

func (Silence) Construct(world plugin.World, args plugin.Args) plugin.Instance {
	return &silenceInstance{}
}

type silenceInstance struct {
	out []float32
}

func (s *silenceInstance) Connect(port int, buf []float32) {
	if port == 0 {
		s.out = buf
	}
}

func (s *silenceInstance) Process(numFrames int) {
	for i := 0; i < numFrames; i++ {
		s.out[i] = 0
	}
}

func (s *silenceInstance) Destroy() {}

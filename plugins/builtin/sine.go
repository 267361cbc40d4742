package builtin

import (
	"math"

	"github.com/samplecount/rtaudio/plugin"
)

// Sine is a fixed-topology oscillator: one control input (frequency in
// Hz) and one audio output.
type Sine struct{}

func (Sine) Configure(host plugin.Host) {
	host.AddPort(plugin.PortDescriptor{Name: "freq", Rate: plugin.RateControl, Direction: plugin.DirInput})
	host.AddPort(plugin.PortDescriptor{Name: "out", Rate: plugin.RateAudio, Direction: plugin.DirOutput})
}

func (Sine) Construct(world plugin.World, args plugin.Args) plugin.Instance {
	return &sineInstance{sampleRate: world.SampleRate()}
}

type sineInstance struct {
	sampleRate float64
	phase      float64
	freq       []float32
	out        []float32
}

func (s *sineInstance) Connect(port int, buf []float32) {
	switch port {
	case 0:
		s.freq = buf
	case 1:
		s.out = buf
	}
}

func (s *sineInstance) Process(numFrames int) {
	freq := float64(s.freq[0])
	inc := 2 * math.Pi * freq / s.sampleRate
	for i := 0; i < numFrames; i++ {
		s.out[i] = float32(math.Sin(s.phase))
		s.phase += inc
		if s.phase >= 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
}

func (s *sineInstance) Destroy() {}

package builtin

import "github.com/samplecount/rtaudio/plugin"

// Gain scales its audio input by a control-rate amplitude, one channel.
type Gain struct{}

func (Gain) Configure(host plugin.Host) {
	host.AddPort(plugin.PortDescriptor{Name: "in", Rate: plugin.RateAudio, Direction: plugin.DirInput})
	host.AddPort(plugin.PortDescriptor{Name: "amp", Rate: plugin.RateControl, Direction: plugin.DirInput})
	host.AddPort(plugin.PortDescriptor{Name: "out", Rate: plugin.RateAudio, Direction: plugin.DirOutput})
}

func (Gain) Construct(world plugin.World, args plugin.Args) plugin.Instance {
	return &gainInstance{}
}

type gainInstance struct {
	in, amp, out []float32
}

func (g *gainInstance) Connect(port int, buf []float32) {
	switch port {
	case 0:
		g.in = buf
	case 1:
		g.amp = buf
	case 2:
		g.out = buf
	}
}

func (g *gainInstance) Process(numFrames int) {
	amp := g.amp[0]
	for i := 0; i < numFrames; i++ {
		g.out[i] = g.in[i] * amp
	}
}

func (g *gainInstance) Destroy() {}

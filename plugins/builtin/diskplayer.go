package builtin

import "github.com/samplecount/rtaudio/plugin"

// DiskPlayer streams a mono sound file straight through to its audio
// output via world.SoundFiles(), exercising the wav/aiff/mp3/vorbis
// decoders wired up in the soundfile package. The file is opened once at
// construction and read one block at a time from Process; unlike a
// production sample player it does not double-buffer ahead on a worker
// thread, so a slow decoder can still stall a block — acceptable for the
// bundled demo, not for a real-time-critical deployment.
//
// Path is a fallback used when a /synth/new request carries no
// synthArgs; a client normally supplies the file to play as the first
// synthArgs string instead, letting one registered "disk player" URI
// serve any file.
type DiskPlayer struct {
	Path string
}

func (d DiskPlayer) Configure(host plugin.Host) {
	host.AddPort(plugin.PortDescriptor{Name: "out", Rate: plugin.RateAudio, Direction: plugin.DirOutput})
}

func (d DiskPlayer) Construct(world plugin.World, args plugin.Args) plugin.Instance {
	path := d.Path
	if args != nil && !args.AtEnd() {
		if p, err := args.String(); err == nil {
			path = p
		}
	}
	sf, err := world.SoundFiles().Open(path)
	if err != nil {
		return &diskPlayerInstance{err: err}
	}
	return &diskPlayerInstance{file: sf}
}

type diskPlayerInstance struct {
	file plugin.SoundFile
	out  []float32
	err  error
}

func (d *diskPlayerInstance) Connect(port int, buf []float32) {
	if port == 0 {
		d.out = buf
	}
}

func (d *diskPlayerInstance) Process(numFrames int) {
	if d.err != nil || d.file == nil {
		for i := 0; i < numFrames; i++ {
			d.out[i] = 0
		}
		return
	}
	n, err := d.file.ReadFloat32(d.out[:numFrames])
	for i := n; i < numFrames; i++ {
		d.out[i] = 0
	}
	if err != nil {
		d.err = err
	}
}

func (d *diskPlayerInstance) Destroy() {
	if d.file != nil {
		d.file.Close()
	}
}

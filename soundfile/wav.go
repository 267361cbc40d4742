package soundfile

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/samplecount/rtaudio/plugin"
)

// wavFile adapts a go-audio/wav decoder to plugin.SoundFile.
type wavFile struct {
	f       *os.File
	dec     *wav.Decoder
	format  *audio.Format
	scratch *audio.IntBuffer
}

// OpenWAV opens a RIFF/WAVE file using github.com/go-audio/wav.
func OpenWAV(path string) (plugin.SoundFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, &formatError{path: path, reason: "not a valid WAV file"}
	}
	dec.ReadInfo()
	format := dec.Format()
	return &wavFile{
		f:      f,
		dec:    dec,
		format: format,
		scratch: &audio.IntBuffer{
			Format: format,
			Data:   make([]int, format.NumChannels*4096),
		},
	}, nil
}

func (w *wavFile) NumChannels() int    { return w.format.NumChannels }
func (w *wavFile) SampleRate() float64 { return float64(w.format.SampleRate) }
func (w *wavFile) NumFrames() int64 {
	dur, err := w.dec.Duration()
	if err != nil {
		return 0
	}
	return int64(dur.Seconds() * w.SampleRate())
}

func (w *wavFile) ReadFloat32(dst []float32) (int, error) {
	numChannels := w.format.NumChannels
	wantFrames := len(dst) / numChannels
	if wantFrames == 0 {
		return 0, nil
	}
	if cap(w.scratch.Data) < wantFrames*numChannels {
		w.scratch.Data = make([]int, wantFrames*numChannels)
	}
	buf := &audio.IntBuffer{Format: w.format, Data: w.scratch.Data[:wantFrames*numChannels]}
	n, err := w.dec.PCMBuffer(buf)
	if err != nil {
		return 0, err
	}
	frames := n / numChannels
	maxVal := float32(int(1) << (uint(w.dec.BitDepth) - 1))
	for i := 0; i < frames*numChannels; i++ {
		dst[i] = float32(buf.Data[i]) / maxVal
	}
	return frames, nil
}

func (w *wavFile) Close() error { return w.f.Close() }

type formatError struct {
	path   string
	reason string
}

func (e *formatError) Error() string { return "soundfile: " + e.path + ": " + e.reason }

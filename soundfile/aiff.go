package soundfile

import (
	"os"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/samplecount/rtaudio/plugin"
)

// aiffFile adapts a go-audio/aiff decoder to plugin.SoundFile.
type aiffFile struct {
	f      *os.File
	dec    *aiff.Decoder
	format *audio.Format
	scratch []int
}

// OpenAIFF opens an AIFF/AIFC file using github.com/go-audio/aiff.
func OpenAIFF(path string) (plugin.SoundFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, &formatError{path: path, reason: "not a valid AIFF file"}
	}
	format := &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)}
	return &aiffFile{f: f, dec: dec, format: format}, nil
}

func (a *aiffFile) NumChannels() int    { return a.format.NumChannels }
func (a *aiffFile) SampleRate() float64 { return float64(a.format.SampleRate) }
func (a *aiffFile) NumFrames() int64    { return int64(a.dec.NumSampleFrames) }

func (a *aiffFile) ReadFloat32(dst []float32) (int, error) {
	numChannels := a.format.NumChannels
	wantFrames := len(dst) / numChannels
	if wantFrames == 0 {
		return 0, nil
	}
	if len(a.scratch) < wantFrames*numChannels {
		a.scratch = make([]int, wantFrames*numChannels)
	}
	buf := &audio.IntBuffer{Format: a.format, Data: a.scratch[:wantFrames*numChannels]}
	n, err := a.dec.PCMBuffer(buf)
	if err != nil {
		return 0, err
	}
	frames := n / numChannels
	maxVal := float32(int(1) << (uint(a.dec.BitDepth) - 1))
	for i := 0; i < frames*numChannels; i++ {
		dst[i] = float32(buf.Data[i]) / maxVal
	}
	return frames, nil
}

func (a *aiffFile) Close() error { return a.f.Close() }

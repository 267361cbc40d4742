package soundfile

import (
	"encoding/binary"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/samplecount/rtaudio/plugin"
)

// mp3File adapts a go-mp3 decoder, which produces 16-bit stereo PCM at
// the stream's native sample rate, to plugin.SoundFile.
type mp3File struct {
	f       *os.File
	dec     *mp3.Decoder
	scratch []byte
}

// OpenMP3 opens an MPEG-1/2 Layer III file using github.com/hajimehoshi/go-mp3.
func OpenMP3(path string) (plugin.SoundFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &mp3File{f: f, dec: dec}, nil
}

func (m *mp3File) NumChannels() int    { return 2 }
func (m *mp3File) SampleRate() float64 { return float64(m.dec.SampleRate()) }
func (m *mp3File) NumFrames() int64    { return m.dec.Length() / 4 }

func (m *mp3File) ReadFloat32(dst []float32) (int, error) {
	wantFrames := len(dst) / 2
	if wantFrames == 0 {
		return 0, nil
	}
	needBytes := wantFrames * 4
	if len(m.scratch) < needBytes {
		m.scratch = make([]byte, needBytes)
	}
	n, err := m.dec.Read(m.scratch[:needBytes])
	if n == 0 {
		return 0, err
	}
	frames := n / 4
	for i := 0; i < frames*2; i++ {
		v := int16(binary.LittleEndian.Uint16(m.scratch[i*2:]))
		dst[i] = float32(v) / 32768
	}
	if err != nil && n > 0 {
		return frames, nil
	}
	return frames, err
}

func (m *mp3File) Close() error { return m.f.Close() }

package soundfile

import (
	"os"

	"github.com/jfreymuth/oggvorbis"
	"github.com/samplecount/rtaudio/plugin"
)

// vorbisFile adapts a jfreymuth/oggvorbis reader to plugin.SoundFile.
type vorbisFile struct {
	f      *os.File
	reader *oggvorbis.Reader
}

// OpenVorbis opens an Ogg Vorbis file using github.com/jfreymuth/oggvorbis.
func OpenVorbis(path string) (plugin.SoundFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &vorbisFile{f: f, reader: r}, nil
}

func (v *vorbisFile) NumChannels() int    { return v.reader.Channels() }
func (v *vorbisFile) SampleRate() float64 { return float64(v.reader.SampleRate()) }
func (v *vorbisFile) NumFrames() int64    { return v.reader.Length() }

func (v *vorbisFile) ReadFloat32(dst []float32) (int, error) {
	n, err := v.reader.Read(dst)
	channels := v.reader.Channels()
	if channels == 0 {
		return 0, err
	}
	return n / channels, err
}

func (v *vorbisFile) Close() error { return v.f.Close() }

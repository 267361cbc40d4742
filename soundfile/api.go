// Package soundfile implements plugin.SoundFileAPI by dispatching to a
// decoder registered for a file's extension. Decoders do blocking file
// I/O on whichever goroutine calls them; this package does not hand the
// work to a worker thread.
package soundfile

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samplecount/rtaudio/plugin"
)

// Decoder opens a sound file's decoded contents given a path.
type Decoder func(path string) (plugin.SoundFile, error)

// Registry dispatches Open calls to a Decoder keyed by lowercased file
// extension (including the leading dot, e.g. ".wav").
type Registry struct {
	decoders map[string]Decoder
}

// NewRegistry returns a Registry with the wav/aiff, mp3, and ogg vorbis
// decoders from this package pre-registered.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	r.Register(".wav", OpenWAV)
	r.Register(".aif", OpenAIFF)
	r.Register(".aiff", OpenAIFF)
	r.Register(".mp3", OpenMP3)
	r.Register(".ogg", OpenVorbis)
	return r
}

// Register binds ext (including the leading dot) to decoder, overwriting
// any previous registration.
func (r *Registry) Register(ext string, decoder Decoder) {
	r.decoders[strings.ToLower(ext)] = decoder
}

// Open dispatches to the decoder registered for path's extension.
func (r *Registry) Open(path string) (plugin.SoundFile, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decoder, ok := r.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("soundfile: no decoder registered for extension %q", ext)
	}
	return decoder(path)
}

var _ plugin.SoundFileAPI = (*Registry)(nil)

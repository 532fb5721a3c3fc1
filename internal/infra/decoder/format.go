package decoder

import (
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Format is one decodable container/codec.
type Format interface {
	// Name returns the format name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// MIMETypes returns the sniffed MIME types this format handles.
	MIMETypes() []string
	// Decode decodes r. The returned streamer owns r.
	Decode(r io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error)
}

// registry holds registered formats.
var registry = make(map[string]Format)

// Register registers a format.
func Register(f Format) {
	registry[f.Name()] = f
}

// GetRegistered returns all registered formats.
func GetRegistered() map[string]Format {
	return registry
}

type mp3Format struct{}

func (mp3Format) Name() string        { return "mp3" }
func (mp3Format) Description() string { return "MPEG-1/2 Audio Layer III" }
func (mp3Format) MIMETypes() []string { return []string{"audio/mpeg"} }

func (mp3Format) Decode(r io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(r)
}

type wavFormat struct{}

func (wavFormat) Name() string        { return "wav" }
func (wavFormat) Description() string { return "RIFF WAVE PCM" }
func (wavFormat) MIMETypes() []string { return []string{"audio/wav"} }

func (wavFormat) Decode(r io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(r)
}

type flacFormat struct{}

func (flacFormat) Name() string        { return "flac" }
func (flacFormat) Description() string { return "Free Lossless Audio Codec" }
func (flacFormat) MIMETypes() []string { return []string{"audio/flac"} }

func (flacFormat) Decode(r io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return flac.Decode(r)
}

type vorbisFormat struct{}

func (vorbisFormat) Name() string        { return "vorbis" }
func (vorbisFormat) Description() string { return "Ogg Vorbis" }
func (vorbisFormat) MIMETypes() []string { return []string{"audio/ogg", "application/ogg"} }

func (vorbisFormat) Decode(r io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	return vorbis.Decode(r)
}

func init() {
	Register(mp3Format{})
	Register(wavFormat{})
	Register(flacFormat{})
	Register(vorbisFormat{})
}

package playback

import (
	"io"

	"github.com/gopxl/beep/v2"
)

// Stream is a decoded audio stream ready to be appended to a Sink.
type Stream struct {
	Streamer beep.Streamer
	Format   beep.Format
	Closer   io.Closer // Releases the decoder and its source; may be nil
}

// Close releases the resources behind the stream.
func (s *Stream) Close() error {
	if s == nil || s.Closer == nil {
		return nil
	}
	return s.Closer.Close()
}

// Decoder turns an encoded byte stream into a decoded Stream.
// Implementations return an error marked ErrUnsupportedFormat when the
// content cannot be decoded. On success the Stream owns r.
type Decoder interface {
	Decode(r io.ReadSeekCloser) (*Stream, error)
}

// Sink is the audio output the controller drives. It holds at most one
// stream; Append replaces whatever was there.
type Sink interface {
	Append(s *Stream)
	Play()
	Pause()
	Stop()
	IsEmpty() bool
	IsPaused() bool
}

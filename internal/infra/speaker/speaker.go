// Package speaker plays decoded streams on the default audio device.
package speaker

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/playback"
)

// ErrSinkUnavailable is returned when no audio device can be opened.
var ErrSinkUnavailable = errors.New("audio output unavailable")

// Config holds speaker configuration.
type Config struct {
	SampleRate int           // Device sample rate
	Buffer     time.Duration // Device buffer length
}

// Sink implements playback.Sink on top of the beep speaker.
// It holds at most one stream; the audio thread silences the device when it
// has nothing to play.
type Sink struct {
	locker sync.Locker
	ctrl   *beep.Ctrl
	queue  *queue
}

// New initializes the audio device and starts feeding it.
func New(cfg Config) (*Sink, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d", cfg.SampleRate)
	}
	if cfg.Buffer <= 0 {
		return nil, errors.Newf("invalid buffer length: %s", cfg.Buffer)
	}

	sr := beep.SampleRate(cfg.SampleRate)
	if err := speaker.Init(sr, sr.N(cfg.Buffer)); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to initialize speaker"), ErrSinkUnavailable)
	}
	zlog.Debug().Msgf("speaker: initialized sample_rate=%d buffer=%s", cfg.SampleRate, cfg.Buffer)

	s := newSink(speakerLocker{})
	speaker.Play(s.ctrl)
	return s, nil
}

func newSink(locker sync.Locker) *Sink {
	q := &queue{}
	return &Sink{
		locker: locker,
		ctrl:   &beep.Ctrl{Streamer: q, Paused: true},
		queue:  q,
	}
}

// Append replaces the held stream. A previous stream is closed.
func (s *Sink) Append(stream *playback.Stream) {
	s.locker.Lock()
	prev := s.queue.current
	s.queue.current = stream
	s.locker.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

// Play unpauses output.
func (s *Sink) Play() {
	s.locker.Lock()
	s.ctrl.Paused = false
	s.locker.Unlock()
}

// Pause pauses output, keeping the position of the held stream.
func (s *Sink) Pause() {
	s.locker.Lock()
	s.ctrl.Paused = true
	s.locker.Unlock()
}

// Stop discards the held stream and pauses output.
func (s *Sink) Stop() {
	s.locker.Lock()
	prev := s.queue.current
	s.queue.current = nil
	s.ctrl.Paused = true
	s.locker.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
}

// IsEmpty reports whether the sink holds no stream.
func (s *Sink) IsEmpty() bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.queue.current == nil
}

// IsPaused reports whether output is paused.
func (s *Sink) IsPaused() bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.ctrl.Paused
}

// Close stops playback and releases the device.
func (s *Sink) Close() {
	s.Stop()
	speaker.Clear()
	speaker.Close()
}

// queue streams the held stream and then silence.
// It runs on the audio thread with the speaker lock held.
type queue struct {
	current *playback.Stream
}

func (q *queue) Stream(samples [][2]float64) (n int, ok bool) {
	filled := 0
	for filled < len(samples) {
		if q.current == nil {
			clear(samples[filled:])
			break
		}

		got, more := q.current.Streamer.Stream(samples[filled:])
		filled += got
		if !more || got == 0 {
			done := q.current
			q.current = nil
			if err := done.Streamer.Err(); err != nil {
				zlog.Warn().Err(err).Msg("speaker: stream ended with error")
			}
			// Close off the audio thread.
			go func() { _ = done.Close() }()
		}
	}
	return len(samples), true
}

func (q *queue) Err() error {
	return nil
}

// speakerLocker guards state shared with the audio thread.
type speakerLocker struct{}

func (speakerLocker) Lock()   { speaker.Lock() }
func (speakerLocker) Unlock() { speaker.Unlock() }

var _ playback.Sink = (*Sink)(nil)

package playback

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/filter"
	"github.com/osa030/19deck/internal/domain/playlist"
	"github.com/osa030/19deck/internal/domain/track"
)

// Errors
var (
	ErrNoCurrentTrack    = errors.New("no track loaded")
	ErrNotFound          = errors.New("track not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Config holds controller configuration.
type Config struct {
	Loop        bool // Initial loop flag
	EventBuffer int  // Capacity of the event channel
}

// Snapshot is a comparable view of the controller state.
type Snapshot struct {
	State   State
	Current track.ID
	Loop    bool
	Tracks  []track.ID
}

// Controller drives a Sink from a Playlist.
// It is not safe for concurrent use; all calls come from one command loop.
type Controller struct {
	playlist *playlist.Playlist
	sink     Sink
	decoder  Decoder
	filters  *filter.Chain

	loop       bool
	active     bool   // A stream we enqueued has not been stopped since
	playbackID string // ID of the last enqueue

	config Config

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a new playback controller.
// filters may be nil, in which case every loaded track is accepted.
func NewController(config Config, sink Sink, decoder Decoder, filters *filter.Chain) *Controller {
	if config.EventBuffer <= 0 {
		config.EventBuffer = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		playlist: playlist.New(),
		sink:     sink,
		decoder:  decoder,
		filters:  filters,
		loop:     config.Loop,
		config:   config,
		eventCh:  make(chan Event, config.EventBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Load loads the file at path and appends it to the playlist.
// Returns the playlist member for that path and whether it was newly added.
func (c *Controller) Load(ctx context.Context, path string) (*track.Track, bool, error) {
	t, err := track.Load(path)
	if err != nil {
		return nil, false, err
	}

	if existing, ok := c.playlist.Find(t.ID()); ok {
		_ = t.Close()
		zlog.Debug().Msgf("playback: %s already in playlist", t.ID())
		return existing, false, nil
	}

	if c.filters != nil {
		if result := c.filters.Execute(ctx, t, c.playlist); !result.Accepted {
			_ = t.Close()
			return nil, false, result.Err(t.DisplayName())
		}
	}

	wasIdle := c.playlist.IsEmpty()
	c.playlist.Insert(t)
	zlog.Info().Msgf("Loaded %s (%d in playlist)", t.DisplayName(), c.playlist.Len())

	if wasIdle {
		c.sendEvent(Event{Type: EventStateChanged, Track: t.ID(), Name: t.DisplayName()})
	}
	return t, true, nil
}

// Remove removes the track referenced by ref (path or display name).
// Removing the current track stops the sink first; the following track
// becomes current without being started.
func (c *Controller) Remove(ref string) error {
	t, ok := c.playlist.Lookup(ref)
	if !ok {
		return errors.Mark(errors.Newf("%q is not in the playlist", ref), ErrNotFound)
	}
	id, name := t.ID(), t.DisplayName()

	if cur, ok := c.playlist.Current(); ok && cur.ID() == id {
		if !c.sink.IsEmpty() {
			c.sink.Stop()
		}
		c.active = false
	}

	c.playlist.Remove(id)
	zlog.Info().Msgf("Removed %s (%d in playlist)", name, c.playlist.Len())

	if c.playlist.IsEmpty() {
		c.sendEvent(Event{Type: EventPlaylistEmpty, Track: id, Name: name})
	}
	return nil
}

// Start resumes the sink if it holds audio, otherwise decodes the current
// track from the beginning and plays it.
func (c *Controller) Start() error {
	cur, ok := c.playlist.Current()
	if !ok {
		return ErrNoCurrentTrack
	}

	if !c.sink.IsEmpty() {
		if c.sink.IsPaused() {
			c.sink.Play()
			c.sendEvent(Event{Type: EventStateChanged, Track: cur.ID(), Name: cur.DisplayName(), PlaybackID: c.playbackID})
		}
		return nil
	}

	stream, err := c.prepare(cur)
	if err != nil {
		return err
	}
	c.enqueue(cur, stream, EventTrackStarted)
	return nil
}

// Pause pauses the sink if it is playing.
func (c *Controller) Pause() error {
	cur, ok := c.playlist.Current()
	if !ok {
		return ErrNoCurrentTrack
	}

	if c.sink.IsEmpty() || c.sink.IsPaused() {
		return nil
	}

	c.sink.Pause()
	c.sendEvent(Event{Type: EventStateChanged, Track: cur.ID(), Name: cur.DisplayName(), PlaybackID: c.playbackID})
	return nil
}

// Loop enables replay of the current track when it finishes.
func (c *Controller) Loop() {
	c.setLoop(true)
}

// StopLoop restores auto-advance when the current track finishes.
func (c *Controller) StopLoop() {
	c.setLoop(false)
}

func (c *Controller) setLoop(enabled bool) {
	if c.loop == enabled {
		return
	}
	c.loop = enabled
	zlog.Debug().Msgf("playback: loop=%v", enabled)
	c.sendEvent(Event{Type: EventStateChanged})
}

// Looping returns the loop flag.
func (c *Controller) Looping() bool {
	return c.loop
}

// StartOver restarts the current track from its first byte.
func (c *Controller) StartOver() error {
	cur, ok := c.playlist.Current()
	if !ok {
		return ErrNoCurrentTrack
	}

	stream, err := c.prepare(cur)
	if err != nil {
		return err
	}

	c.sink.Stop()
	c.enqueue(cur, stream, EventTrackStarted)
	return nil
}

// Skip makes the track referenced by ref current and plays it from the start.
func (c *Controller) Skip(ref string) error {
	target, ok := c.playlist.Lookup(ref)
	if !ok {
		return errors.Mark(errors.Newf("%q is not in the playlist", ref), ErrNotFound)
	}

	stream, err := c.prepare(target)
	if err != nil {
		return err
	}

	c.sink.Stop()
	if prev, ok := c.playlist.Current(); ok {
		c.sendEvent(Event{Type: EventTrackSkipped, Track: prev.ID(), Name: prev.DisplayName(), PlaybackID: c.playbackID})
	}
	c.playlist.SetCurrent(target.ID())
	c.enqueue(target, stream, EventTrackStarted)
	return nil
}

// Poll detects natural completion of the stream last enqueued. With loop
// disabled it advances to the next track (wrapping); with loop enabled it
// replays the current track. It is meant to run once per command cycle.
func (c *Controller) Poll() error {
	cur, ok := c.playlist.Current()
	if !ok || !c.active || c.playlist.IsEmpty() || !c.sink.IsEmpty() {
		return nil
	}

	zlog.Debug().Msgf("playback: track finished: track=%s playback_id=%s", cur.DisplayName(), c.playbackID)
	c.sendEvent(Event{Type: EventTrackEnded, Track: cur.ID(), Name: cur.DisplayName(), PlaybackID: c.playbackID})

	if c.loop {
		stream, err := c.prepare(cur)
		if err != nil {
			c.active = false
			return errors.Wrapf(err, "failed to replay %s", cur.DisplayName())
		}
		c.enqueue(cur, stream, EventTrackLooped)
		return nil
	}

	next := c.playlist.NextAfter(cur.ID())
	stream, err := c.prepare(next)
	if err != nil {
		c.active = false
		return errors.Wrapf(err, "failed to advance to %s", next.DisplayName())
	}
	c.playlist.SetCurrent(next.ID())
	c.enqueue(next, stream, EventTrackStarted)
	return nil
}

// Current returns the current track.
func (c *Controller) Current() (*track.Track, bool) {
	return c.playlist.Current()
}

// Tracks returns the playlist in order.
func (c *Controller) Tracks() []*track.Track {
	return c.playlist.Tracks()
}

// State derives the playback state from the current track and the sink.
func (c *Controller) State() State {
	if _, ok := c.playlist.Current(); !ok {
		return StateIdle
	}
	if c.sink.IsEmpty() {
		return StateLoadedStopped
	}
	if c.sink.IsPaused() {
		return StatePaused
	}
	return StatePlaying
}

// Snapshot returns the observable controller state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:  c.State(),
		Loop:   c.loop,
		Tracks: c.playlist.IDs(),
	}
	if cur, ok := c.playlist.Current(); ok {
		s.Current = cur.ID()
	}
	return s
}

// Close stops the sink, closes every track and the event channel.
func (c *Controller) Close() {
	c.cancel()
	c.sink.Stop()
	c.active = false
	c.playlist.Close()
	close(c.eventCh)
}

// prepare decodes a fresh, rewound duplicate of t. Nothing is changed on
// failure.
func (c *Controller) prepare(t *track.Track) (*Stream, error) {
	dup, err := t.Duplicate()
	if err != nil {
		return nil, err
	}
	if err := dup.Rewind(); err != nil {
		_ = dup.Close()
		return nil, err
	}

	stream, err := c.decoder.Decode(dup.Handle())
	if err != nil {
		_ = dup.Close()
		return nil, errors.Wrapf(err, "failed to decode %s", t.DisplayName())
	}
	return stream, nil
}

// enqueue hands stream to the sink and starts playback.
// The sink must be empty or stopped.
func (c *Controller) enqueue(t *track.Track, stream *Stream, eventType EventType) {
	c.sink.Append(stream)
	c.sink.Play()
	c.active = true
	c.playbackID = uuid.NewString()

	zlog.Debug().Msgf("playback: enqueued track=%s playback_id=%s", t.DisplayName(), c.playbackID)
	c.sendEvent(Event{Type: eventType, Track: t.ID(), Name: t.DisplayName(), PlaybackID: c.playbackID})
}

// sendEvent sends an event without blocking. State and loop are filled in
// from the controller.
func (c *Controller) sendEvent(e Event) {
	e.State = c.State()
	e.Loop = c.loop
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop event
	}
}

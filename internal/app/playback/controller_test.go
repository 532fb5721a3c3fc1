package playback

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/19deck/internal/app/filter"
	"github.com/osa030/19deck/internal/domain/track"
)

// fakeSink records calls and holds at most one stream.
type fakeSink struct {
	stream  *Stream
	paused  bool
	appends int
	stops   int
}

func (s *fakeSink) Append(stream *Stream) {
	if s.stream != nil {
		_ = s.stream.Close()
	}
	s.stream = stream
	s.appends++
}

func (s *fakeSink) Play()  { s.paused = false }
func (s *fakeSink) Pause() { s.paused = true }

func (s *fakeSink) Stop() {
	if s.stream != nil {
		_ = s.stream.Close()
	}
	s.stream = nil
	s.paused = false
	s.stops++
}

func (s *fakeSink) IsEmpty() bool  { return s.stream == nil }
func (s *fakeSink) IsPaused() bool { return s.paused }

// finish simulates the stream running out naturally.
func (s *fakeSink) finish() {
	_ = s.stream.Close()
	s.stream = nil
}

// fakeDecoder records the read offset of every handle it is given.
type fakeDecoder struct {
	offsets []int64
	fail    error
}

func (d *fakeDecoder) Decode(r io.ReadSeekCloser) (*Stream, error) {
	if d.fail != nil {
		return nil, d.fail
	}
	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	d.offsets = append(d.offsets, pos)
	return &Stream{Closer: r}, nil
}

func (d *fakeDecoder) calls() int {
	return len(d.offsets)
}

type fixture struct {
	ctrl    *Controller
	sink    *fakeSink
	decoder *fakeDecoder
	dir     string
}

func newFixture(t *testing.T, chain *filter.Chain) *fixture {
	t.Helper()
	f := &fixture{
		sink:    &fakeSink{},
		decoder: &fakeDecoder{},
		dir:     t.TempDir(),
	}
	f.ctrl = NewController(Config{EventBuffer: 64}, f.sink, f.decoder, chain)
	t.Cleanup(f.ctrl.Close)
	return f
}

// file creates an audio file in the fixture directory and returns its path.
func (f *fixture) file(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte("encoded:"+name), 0o644))
	return path
}

// load creates and loads each named file.
func (f *fixture) load(t *testing.T, names ...string) []track.ID {
	t.Helper()
	ids := make([]track.ID, len(names))
	for i, name := range names {
		trk, added, err := f.ctrl.Load(context.Background(), f.file(t, name))
		require.NoError(t, err)
		require.True(t, added)
		ids[i] = trk.ID()
	}
	return ids
}

func (f *fixture) currentID(t *testing.T) track.ID {
	t.Helper()
	cur, ok := f.ctrl.Current()
	require.True(t, ok)
	return cur.ID()
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for {
		select {
		case e := <-ch:
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestController_FirstLoad(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, StateIdle, f.ctrl.State())

	ids := f.load(t, "a.mp3")

	assert.Equal(t, ids[0], f.currentID(t))
	assert.Len(t, f.ctrl.Tracks(), 1)
	assert.Equal(t, StateLoadedStopped, f.ctrl.State())
	assert.Equal(t, 0, f.decoder.calls(), "loading does not decode")
}

func TestController_LoadDuplicate(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3")

	trk, added, err := f.ctrl.Load(context.Background(), filepath.Join(f.dir, "b.mp3"))
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, ids[1], trk.ID())
	assert.Len(t, f.ctrl.Tracks(), 2)
	assert.Equal(t, ids[0], f.currentID(t))
}

func TestController_LoadFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	f.load(t, "a.mp3")
	before := f.ctrl.Snapshot()

	_, _, err := f.ctrl.Load(context.Background(), filepath.Join(f.dir, "missing.mp3"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrResourceUnreadable))
	assert.Contains(t, err.Error(), "missing.mp3")
	assert.Equal(t, before, f.ctrl.Snapshot())
}

func TestController_LoadRejectedByFilter(t *testing.T) {
	chain, err := filter.BuildChain(map[string]map[string]any{
		"extension_filter": {"extensions": []string{".mp3"}},
	}, filter.Deps{})
	require.NoError(t, err)
	f := newFixture(t, chain)

	_, _, err = f.ctrl.Load(context.Background(), f.file(t, "notes.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, filter.ErrRejected))
	assert.Equal(t, StateIdle, f.ctrl.State())
	assert.Empty(t, f.ctrl.Tracks())
}

func TestController_NoCurrentTrack(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Controller) error
	}{
		{name: "start", call: (*Controller).Start},
		{name: "startover", call: (*Controller).StartOver},
		{name: "pause", call: (*Controller).Pause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			before := f.ctrl.Snapshot()

			err := tt.call(f.ctrl)
			assert.True(t, errors.Is(err, ErrNoCurrentTrack))
			assert.Equal(t, before, f.ctrl.Snapshot())
			assert.Equal(t, 0, f.decoder.calls())
			assert.Equal(t, 0, f.sink.appends)
		})
	}
}

func TestController_StartPauseResume(t *testing.T) {
	f := newFixture(t, nil)
	f.load(t, "a.mp3")

	require.NoError(t, f.ctrl.Start())
	assert.Equal(t, StatePlaying, f.ctrl.State())
	assert.Equal(t, 1, f.decoder.calls())
	assert.Equal(t, []int64{0}, f.decoder.offsets)

	// Starting while playing does not enqueue again.
	require.NoError(t, f.ctrl.Start())
	assert.Equal(t, 1, f.sink.appends)

	require.NoError(t, f.ctrl.Pause())
	assert.Equal(t, StatePaused, f.ctrl.State())

	require.NoError(t, f.ctrl.Pause())
	assert.Equal(t, StatePaused, f.ctrl.State())

	require.NoError(t, f.ctrl.Start())
	assert.Equal(t, StatePlaying, f.ctrl.State())
	assert.Equal(t, 1, f.decoder.calls(), "resume does not decode")
}

func TestController_PollWithoutPlaybackDoesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3")

	require.NoError(t, f.ctrl.Poll())
	assert.Equal(t, ids[0], f.currentID(t))
	assert.Equal(t, 0, f.decoder.calls())
}

func TestController_PollWhilePlayingDoesNothing(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3")
	require.NoError(t, f.ctrl.Start())
	require.NoError(t, f.ctrl.Pause())

	require.NoError(t, f.ctrl.Poll())
	assert.Equal(t, ids[0], f.currentID(t))
	assert.Equal(t, 1, f.decoder.calls())
}

func TestController_AutoAdvance(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3", "c.mp3")

	require.NoError(t, f.ctrl.Skip("b.mp3"))
	require.Equal(t, ids[1], f.currentID(t))
	callsBefore := f.decoder.calls()

	f.sink.finish()
	require.NoError(t, f.ctrl.Poll())

	assert.Equal(t, ids[2], f.currentID(t))
	assert.Equal(t, callsBefore+1, f.decoder.calls(), "exactly one decode per advance")
	assert.Equal(t, StatePlaying, f.ctrl.State())

	// A second poll while the new track plays is a no-op.
	require.NoError(t, f.ctrl.Poll())
	assert.Equal(t, ids[2], f.currentID(t))
	assert.Equal(t, callsBefore+1, f.decoder.calls())
}

func TestController_AutoAdvanceWraps(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3", "c.mp3")

	require.NoError(t, f.ctrl.Skip("c.mp3"))
	f.sink.finish()
	require.NoError(t, f.ctrl.Poll())

	assert.Equal(t, ids[0], f.currentID(t))
}

func TestController_LoopReplaysCurrent(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3")

	f.ctrl.Loop()
	assert.True(t, f.ctrl.Looping())
	require.NoError(t, f.ctrl.Start())
	drain(f.ctrl.Events())

	f.sink.finish()
	require.NoError(t, f.ctrl.Poll())

	assert.Equal(t, ids[0], f.currentID(t), "loop suppresses advance")
	assert.Equal(t, []int64{0, 0}, f.decoder.offsets)
	assert.Equal(t, StatePlaying, f.ctrl.State())

	types := make([]EventType, 0)
	for _, e := range drain(f.ctrl.Events()) {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{EventTrackEnded, EventTrackLooped}, types)

	f.ctrl.StopLoop()
	f.sink.finish()
	require.NoError(t, f.ctrl.Poll())
	assert.Equal(t, ids[1], f.currentID(t))
}

func TestController_StartOverTwice(t *testing.T) {
	f := newFixture(t, nil)
	f.load(t, "a.mp3")

	require.NoError(t, f.ctrl.StartOver())
	require.NoError(t, f.ctrl.StartOver())

	assert.Equal(t, []int64{0, 0}, f.decoder.offsets)
	assert.Equal(t, 2, f.sink.appends)
	assert.Equal(t, 2, f.sink.stops)
	assert.Equal(t, StatePlaying, f.ctrl.State())
}

func TestController_StartOverResumesPaused(t *testing.T) {
	f := newFixture(t, nil)
	f.load(t, "a.mp3")
	require.NoError(t, f.ctrl.Start())
	require.NoError(t, f.ctrl.Pause())

	require.NoError(t, f.ctrl.StartOver())
	assert.Equal(t, StatePlaying, f.ctrl.State())
}

func TestController_Skip(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3", "c.mp3")
	require.NoError(t, f.ctrl.Start())
	drain(f.ctrl.Events())

	require.NoError(t, f.ctrl.Skip(ids[2].String()))
	assert.Equal(t, ids[2], f.currentID(t))
	assert.Equal(t, StatePlaying, f.ctrl.State())
	assert.Equal(t, 2, f.sink.appends)

	events := drain(f.ctrl.Events())
	require.Len(t, events, 2)
	assert.Equal(t, EventTrackSkipped, events[0].Type)
	assert.Equal(t, ids[0], events[0].Track)
	assert.Equal(t, EventTrackStarted, events[1].Type)
	assert.Equal(t, "c.mp3", events[1].Name)
	assert.NotEmpty(t, events[1].PlaybackID)
	assert.NotEqual(t, events[0].PlaybackID, events[1].PlaybackID)
}

func TestController_SkipUnknown(t *testing.T) {
	f := newFixture(t, nil)
	f.load(t, "a.mp3")
	before := f.ctrl.Snapshot()

	err := f.ctrl.Skip("zzz.mp3")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, before, f.ctrl.Snapshot())
}

func TestController_SkipToUnreadableTrack(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3")
	require.NoError(t, f.ctrl.Start())
	before := f.ctrl.Snapshot()

	require.NoError(t, os.Remove(ids[1].String()))

	err := f.ctrl.Skip("b.mp3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrHandleUnavailable))
	assert.Equal(t, before, f.ctrl.Snapshot(), "no fallback, no state change")
	assert.Equal(t, 0, f.sink.stops)
}

func TestController_UnsupportedFormat(t *testing.T) {
	f := newFixture(t, nil)
	f.load(t, "a.mp3")
	f.decoder.fail = errors.Mark(errors.New("unknown content"), ErrUnsupportedFormat)
	before := f.ctrl.Snapshot()

	err := f.ctrl.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	assert.Contains(t, err.Error(), "a.mp3")
	assert.Equal(t, before, f.ctrl.Snapshot())
}

func TestController_AdvanceFailureStopsRetrying(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3")
	require.NoError(t, f.ctrl.Start())
	require.NoError(t, os.Remove(ids[1].String()))

	f.sink.finish()
	err := f.ctrl.Poll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, track.ErrHandleUnavailable))
	assert.Equal(t, ids[0], f.currentID(t))

	assert.NoError(t, f.ctrl.Poll(), "the failed advance is not retried")
	assert.Equal(t, StateLoadedStopped, f.ctrl.State())
}

func TestController_RemoveCurrentWhilePlaying(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3", "c.mp3")
	require.NoError(t, f.ctrl.Skip("b.mp3"))
	stops := f.sink.stops

	require.NoError(t, f.ctrl.Remove("b.mp3"))

	assert.Equal(t, stops+1, f.sink.stops, "remove stops the sink once")
	assert.Equal(t, ids[2], f.currentID(t))
	assert.Equal(t, StateLoadedStopped, f.ctrl.State())
	assert.Equal(t, []track.ID{ids[0], ids[2]}, f.ctrl.Snapshot().Tracks)

	// The stop was not a natural completion.
	require.NoError(t, f.ctrl.Poll())
	assert.Equal(t, ids[2], f.currentID(t))
}

func TestController_RemoveOther(t *testing.T) {
	f := newFixture(t, nil)
	ids := f.load(t, "a.mp3", "b.mp3")
	require.NoError(t, f.ctrl.Start())

	require.NoError(t, f.ctrl.Remove(ids[1].String()))
	assert.Equal(t, ids[0], f.currentID(t))
	assert.Equal(t, StatePlaying, f.ctrl.State())
	assert.Equal(t, 0, f.sink.stops)
}

func TestController_RemoveLastTrack(t *testing.T) {
	f := newFixture(t, nil)
	f.load(t, "a.mp3")
	require.NoError(t, f.ctrl.Start())
	drain(f.ctrl.Events())

	require.NoError(t, f.ctrl.Remove("a.mp3"))
	assert.Equal(t, StateIdle, f.ctrl.State())

	events := drain(f.ctrl.Events())
	require.NotEmpty(t, events)
	assert.Equal(t, EventPlaylistEmpty, events[len(events)-1].Type)

	err := f.ctrl.Remove("a.mp3")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestController_Close(t *testing.T) {
	sink := &fakeSink{}
	ctrl := NewController(Config{}, sink, &fakeDecoder{}, nil)

	ctrl.Close()

	_, ok := <-ctrl.Events()
	assert.False(t, ok)
	assert.Equal(t, 1, sink.stops)
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateLoadedStopped, "stopped"},
		{StatePlaying, "playing"},
		{StatePaused, "paused"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

// Package playlist provides the Playlist domain entity.
package playlist

import (
	"fmt"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/track"
)

// Playlist is an ordered, duplicate-free collection of tracks.
// The current track is held by identity, so removals never shift it.
type Playlist struct {
	order   []track.ID                // Insertion order
	tracks  map[track.ID]*track.Track // Members by identity
	current track.ID                  // Empty when unset
}

// New creates an empty playlist.
func New() *Playlist {
	return &Playlist{
		order:  make([]track.ID, 0),
		tracks: make(map[track.ID]*track.Track),
	}
}

// Insert appends t unless a track with the same identity is already present.
// The first track inserted into an empty playlist becomes current.
func (p *Playlist) Insert(t *track.Track) bool {
	if p.Contains(t.ID()) {
		return false
	}

	wasEmpty := len(p.order) == 0
	p.order = append(p.order, t.ID())
	p.tracks[t.ID()] = t
	if wasEmpty {
		p.current = t.ID()
	}
	return true
}

// Contains reports whether a track with the given identity is a member.
func (p *Playlist) Contains(id track.ID) bool {
	_, ok := p.tracks[id]
	return ok
}

// Find returns the member with the given identity.
func (p *Playlist) Find(id track.ID) (*track.Track, bool) {
	t, ok := p.tracks[id]
	return t, ok
}

// FindByName returns the first member, in playlist order, whose display name
// matches name.
func (p *Playlist) FindByName(name string) (*track.Track, bool) {
	for _, id := range p.order {
		if t := p.tracks[id]; t.DisplayName() == name {
			return t, true
		}
	}
	return nil, false
}

// Lookup resolves ref as an identity first and as a display name second.
func (p *Playlist) Lookup(ref string) (*track.Track, bool) {
	if t, ok := p.Find(track.ID(ref)); ok {
		return t, true
	}
	return p.FindByName(ref)
}

// Remove removes the member with the given identity and closes it.
// If it was current, the following track becomes current (wrapping to the
// first), or current is unset when the playlist becomes empty.
func (p *Playlist) Remove(id track.ID) bool {
	idx := p.indexOf(id)
	if idx < 0 {
		return false
	}

	removed := p.tracks[id]
	p.order = append(p.order[:idx], p.order[idx+1:]...)
	delete(p.tracks, id)

	if p.current == id {
		switch {
		case len(p.order) == 0:
			p.current = ""
		case idx < len(p.order):
			p.current = p.order[idx]
		default:
			p.current = p.order[0]
		}
	}

	closeTrack(removed)
	return true
}

// NextAfter returns the track following id, wrapping to the first track.
// Panics if id is not a member.
func (p *Playlist) NextAfter(id track.ID) *track.Track {
	idx := p.indexOf(id)
	if idx < 0 {
		panic(fmt.Sprintf("playlist: %s is not a member", id))
	}
	return p.tracks[p.order[(idx+1)%len(p.order)]]
}

// Current returns the current track, if set.
func (p *Playlist) Current() (*track.Track, bool) {
	if p.current == "" {
		return nil, false
	}
	return p.Find(p.current)
}

// SetCurrent makes the member with the given identity current.
// Returns false and leaves current unchanged if id is not a member.
func (p *Playlist) SetCurrent(id track.ID) bool {
	if !p.Contains(id) {
		return false
	}
	p.current = id
	return true
}

// Tracks returns the members in playlist order.
func (p *Playlist) Tracks() []*track.Track {
	result := make([]*track.Track, len(p.order))
	for i, id := range p.order {
		result[i] = p.tracks[id]
	}
	return result
}

// IDs returns the member identities in playlist order.
func (p *Playlist) IDs() []track.ID {
	result := make([]track.ID, len(p.order))
	copy(result, p.order)
	return result
}

// Len returns the number of members.
func (p *Playlist) Len() int {
	return len(p.order)
}

// IsEmpty returns true if the playlist has no members.
func (p *Playlist) IsEmpty() bool {
	return len(p.order) == 0
}

// Close closes every member and empties the playlist.
func (p *Playlist) Close() {
	for _, id := range p.order {
		closeTrack(p.tracks[id])
	}
	p.order = p.order[:0]
	p.tracks = make(map[track.ID]*track.Track)
	p.current = ""
}

func closeTrack(t *track.Track) {
	if err := t.Close(); err != nil {
		zlog.Warn().Err(err).Msgf("playlist: failed to close %s", t.DisplayName())
	}
}

func (p *Playlist) indexOf(id track.ID) int {
	for i, candidate := range p.order {
		if candidate == id {
			return i
		}
	}
	return -1
}

package playback

import "github.com/osa030/19deck/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted  EventType = iota // A track was enqueued and playback began
	EventTrackEnded                     // The sink ran dry after a track we enqueued
	EventTrackSkipped                   // The current track was replaced on request
	EventTrackLooped                    // The current track was replayed by loop mode
	EventStateChanged                   // Pause/resume or loop flag change
	EventPlaylistEmpty                  // The last track was removed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackSkipped:
		return "track_skipped"
	case EventTrackLooped:
		return "track_looped"
	case EventStateChanged:
		return "state_changed"
	case EventPlaylistEmpty:
		return "playlist_empty"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type       EventType
	Track      track.ID // Track concerned (empty for some events)
	Name       string   // Display name of Track
	PlaybackID string   // ID of the enqueue that produced the event, if any
	State      State    // State after the event
	Loop       bool     // Loop flag after the event
}

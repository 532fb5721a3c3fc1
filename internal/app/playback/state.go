// Package playback provides the playback state machine driving a single sink
// from a playlist.
package playback

// State represents the playback state.
type State int

const (
	StateIdle          State = iota // No current track
	StateLoadedStopped              // Current track set, sink empty
	StatePlaying                    // Sink has audio and is not paused
	StatePaused                     // Sink has audio and is paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoadedStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

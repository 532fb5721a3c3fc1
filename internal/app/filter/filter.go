// Package filter provides the admission chain run on tracks before they join
// the playlist.
package filter

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19deck/internal/domain/track"
)

// ErrRejected marks errors produced by a filter rejection.
var ErrRejected = errors.New("track rejected")

// Playlist is the read-only view of the playlist filters may inspect.
type Playlist interface {
	Len() int
	Contains(id track.ID) bool
}

// Result represents the result of a filter check.
type Result struct {
	Accepted bool
	Code     string // e.g., "size_limit_exceeded", "extension_not_allowed"
}

// Accept returns an accepted result.
func Accept() Result {
	return Result{Accepted: true}
}

// Reject returns a rejected result with the given code.
func Reject(code string) Result {
	return Result{Accepted: false, Code: code}
}

// Err converts a rejection into an error marked ErrRejected.
// Returns nil for accepted results.
func (r Result) Err(name string) error {
	if r.Accepted {
		return nil
	}
	return errors.Mark(errors.Newf("%s rejected: %s", name, r.Code), ErrRejected)
}

// Filter is the interface for load filters.
type Filter interface {
	// Name returns the filter name (used in config).
	Name() string
	// Description returns a human-readable description.
	Description() string
	// ReturnCodes returns the codes this filter can return.
	ReturnCodes() []string
	// ValidateConfig validates and applies the filter configuration.
	ValidateConfig(settings map[string]any) error
	// Check performs the filter check.
	Check(ctx context.Context, t *track.Track, p Playlist) Result
}

// registry holds registered filter factories.
var registry = make(map[string]func() Filter)

// Register registers a filter factory.
func Register(name string, factory func() Filter) {
	registry[name] = factory
}

// GetRegistered returns all registered filter factories.
func GetRegistered() map[string]func() Filter {
	return registry
}

package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/19deck/internal/domain/track"
)

// CapacityConfig represents the configuration for CapacityFilter.
type CapacityConfig struct {
	MaxTracks int `yaml:"max_tracks" mapstructure:"max_tracks"`
}

// CapacityFilter rejects new tracks once the playlist is full.
type CapacityFilter struct {
	maxTracks int
}

func (f *CapacityFilter) Name() string {
	return "capacity_filter"
}

func (f *CapacityFilter) Description() string {
	return "Rejects new tracks once the playlist holds max_tracks (0 means no limit)"
}

func (f *CapacityFilter) ReturnCodes() []string {
	return []string{"playlist_full"}
}

func (f *CapacityFilter) ValidateConfig(settings map[string]any) error {
	var config CapacityConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if config.MaxTracks < 0 {
		return errors.New("max_tracks must be non-negative")
	}
	f.maxTracks = config.MaxTracks
	return nil
}

func (f *CapacityFilter) Check(ctx context.Context, t *track.Track, p Playlist) Result {
	if f.maxTracks == 0 || p.Contains(t.ID()) {
		return Accept()
	}
	if p.Len() >= f.maxTracks {
		return Reject("playlist_full")
	}
	return Accept()
}

func init() {
	Register("capacity_filter", func() Filter {
		return &CapacityFilter{}
	})
}

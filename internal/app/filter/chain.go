package filter

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Deps are the collaborators some filters are created with.
type Deps struct {
	Durations DurationReader
}

// BuildChain creates a chain from the enabled filters and their settings,
// keyed by filter name. Filters are added in name order.
func BuildChain(enabled map[string]map[string]any, deps Deps) (*Chain, error) {
	names := make([]string, 0, len(enabled))
	for name := range enabled {
		names = append(names, name)
	}
	sort.Strings(names)

	chain := NewChain()
	for _, name := range names {
		factory, ok := registry[name]
		if !ok {
			return nil, errors.Newf("unknown filter: %s", name)
		}

		f := factory()
		if d, ok := f.(interface{ SetDurationReader(DurationReader) }); ok {
			if deps.Durations == nil {
				return nil, errors.Newf("filter %s needs a duration reader", name)
			}
			d.SetDurationReader(deps.Durations)
		}
		if err := f.ValidateConfig(enabled[name]); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
		zlog.Debug().Msgf("filter: enabled %s", name)
	}
	return chain, nil
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, t *track.Track, p Playlist) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, t, p)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: %s rejected %s: %s", f.Name(), t.DisplayName(), result.Code)
			return result
		}
	}
	return Accept()
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}

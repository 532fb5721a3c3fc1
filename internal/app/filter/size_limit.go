package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/domain/track"
)

// SizeLimitConfig represents the configuration for SizeLimitFilter.
type SizeLimitConfig struct {
	MaxMB float64 `yaml:"max_mb" mapstructure:"max_mb" validate:"gte=0"`
}

// SizeLimitFilter rejects files larger than the configured size.
type SizeLimitFilter struct {
	config *SizeLimitConfig
}

// NewSizeLimitFilter creates a new size limit filter.
func NewSizeLimitFilter() *SizeLimitFilter {
	return &SizeLimitFilter{}
}

func (f *SizeLimitFilter) Name() string {
	return "size_limit_filter"
}

func (f *SizeLimitFilter) Description() string {
	return "Rejects files larger than max_mb (0 means no limit)"
}

func (f *SizeLimitFilter) ReturnCodes() []string {
	return []string{"size_limit_exceeded"}
}

func (f *SizeLimitFilter) ValidateConfig(settings map[string]any) error {
	var config SizeLimitConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &config,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.config = &config
	zlog.Info().Msgf("size limit filter config: %+v", config)
	return nil
}

func (f *SizeLimitFilter) Check(ctx context.Context, t *track.Track, p Playlist) Result {
	if f.config == nil || f.config.MaxMB == 0 {
		return Accept()
	}

	size, err := t.Size()
	if err != nil {
		// The track opened a moment ago; let decoding report the problem.
		return Accept()
	}

	limit := int64(f.config.MaxMB * 1024 * 1024)
	if size > limit {
		zlog.Debug().Msgf("filter: %s is %s, limit %s", t.DisplayName(), humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit)))
		return Reject("size_limit_exceeded")
	}
	return Accept()
}

func init() {
	Register("size_limit_filter", func() Filter {
		return NewSizeLimitFilter()
	})
}

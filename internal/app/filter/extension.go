package filter

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/19deck/internal/domain/track"
)

// ExtensionConfig represents the configuration for ExtensionFilter.
type ExtensionConfig struct {
	Extensions []string `yaml:"extensions" mapstructure:"extensions" default:"[\".mp3\",\".wav\",\".flac\",\".ogg\"]" validate:"min=1,dive,startswith=."`
}

// ExtensionFilter only admits files whose extension is allow-listed.
type ExtensionFilter struct {
	allowed map[string]struct{}
}

func (f *ExtensionFilter) Name() string {
	return "extension_filter"
}

func (f *ExtensionFilter) Description() string {
	return "Admits only files with an allow-listed extension (case-insensitive)"
}

func (f *ExtensionFilter) ReturnCodes() []string {
	return []string{"extension_not_allowed"}
}

func (f *ExtensionFilter) ValidateConfig(settings map[string]any) error {
	var config ExtensionConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.allowed = make(map[string]struct{}, len(config.Extensions))
	for _, ext := range config.Extensions {
		f.allowed[strings.ToLower(ext)] = struct{}{}
	}
	return nil
}

func (f *ExtensionFilter) Check(ctx context.Context, t *track.Track, p Playlist) Result {
	if len(f.allowed) == 0 {
		return Accept()
	}

	ext := strings.ToLower(filepath.Ext(t.DisplayName()))
	if _, ok := f.allowed[ext]; !ok {
		return Reject("extension_not_allowed")
	}
	return Accept()
}

func init() {
	Register("extension_filter", func() Filter {
		return &ExtensionFilter{}
	})
}

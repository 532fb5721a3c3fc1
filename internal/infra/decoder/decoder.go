// Package decoder turns encoded audio files into beep streams resampled to the
// output rate. The format is picked by sniffing the content, not the file name.
package decoder

import (
	"io"
	"os"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gopxl/beep/v2"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/playback"
)

// Config holds decoder configuration.
type Config struct {
	SampleRate      int                       // Output sample rate streams are resampled to
	ResampleQuality int                       // beep.Resample quality (1-64)
	Disabled        []string                  // Format names that must not be used
	Settings        map[string]map[string]any // Per-format settings by format name
}

// formatSettings are the settings every format accepts.
type formatSettings struct {
	ResampleQuality int `mapstructure:"resample_quality" validate:"omitempty,min=1,max=64"`
}

// Decoder implements playback.Decoder over the registered formats.
type Decoder struct {
	formats []Format
	target  beep.SampleRate
	quality map[string]int
}

// New creates a decoder using every registered format not disabled in cfg.
func New(cfg Config) (*Decoder, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d", cfg.SampleRate)
	}
	if cfg.ResampleQuality < 1 || cfg.ResampleQuality > 64 {
		return nil, errors.Newf("resample quality must be between 1 and 64, got %d", cfg.ResampleQuality)
	}

	disabled := make(map[string]struct{}, len(cfg.Disabled))
	for _, name := range cfg.Disabled {
		if _, ok := registry[name]; !ok {
			return nil, errors.Newf("unknown format: %s", name)
		}
		disabled[name] = struct{}{}
	}

	names := make([]string, 0, len(registry))
	for name := range registry {
		if _, off := disabled[name]; !off {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	formats := make([]Format, len(names))
	quality := make(map[string]int, len(names))
	for i, name := range names {
		formats[i] = registry[name]
		settings, err := decodeSettings(cfg.Settings[name])
		if err != nil {
			return nil, errors.Wrapf(err, "format %s", name)
		}
		quality[name] = cfg.ResampleQuality
		if settings.ResampleQuality != 0 {
			quality[name] = settings.ResampleQuality
		}
	}
	zlog.Debug().Msgf("decoder: formats=%v sample_rate=%d", names, cfg.SampleRate)

	return &Decoder{
		formats: formats,
		target:  beep.SampleRate(cfg.SampleRate),
		quality: quality,
	}, nil
}

func decodeSettings(raw map[string]any) (formatSettings, error) {
	var settings formatSettings
	if raw == nil {
		return settings, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &settings,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return settings, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return settings, errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(&settings); err != nil {
		return settings, errors.Wrap(err, "invalid settings")
	}
	return settings, nil
}

// Decode sniffs r, decodes it with the matching format and resamples it to
// the configured rate. On success the returned stream owns r.
func (d *Decoder) Decode(r io.ReadSeekCloser) (*playback.Stream, error) {
	f, s, format, err := d.open(r)
	if err != nil {
		return nil, err
	}

	var streamer beep.Streamer = s
	if format.SampleRate != d.target {
		zlog.Debug().Msgf("decoder: resampling %s from %d to %d", f.Name(), format.SampleRate, d.target)
		streamer = beep.Resample(d.quality[f.Name()], format.SampleRate, d.target, s)
		format.SampleRate = d.target
	}

	return &playback.Stream{
		Streamer: streamer,
		Format:   format,
		Closer:   closers{s, r},
	}, nil
}

// Duration decodes the header of r and returns the playing time at the
// source rate. r is always closed.
func (d *Decoder) Duration(r io.ReadSeekCloser) (time.Duration, error) {
	_, s, format, err := d.open(r)
	if err != nil {
		_ = r.Close()
		return 0, err
	}
	defer closers{s, r}.Close()

	if s.Len() <= 0 {
		return 0, errors.Mark(errors.New("stream length unknown"), playback.ErrUnsupportedFormat)
	}
	return format.SampleRate.D(s.Len()), nil
}

// open sniffs r and decodes it with the matching enabled format.
func (d *Decoder) open(r io.ReadSeekCloser) (Format, beep.StreamSeekCloser, beep.Format, error) {
	mime, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, nil, beep.Format{}, errors.Wrap(err, "failed to sniff content")
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, beep.Format{}, errors.Wrap(err, "failed to rewind after sniffing")
	}

	f := d.match(mime)
	if f == nil {
		return nil, nil, beep.Format{}, errors.Mark(errors.Newf("no decoder for %s", mime.String()), playback.ErrUnsupportedFormat)
	}

	s, format, err := f.Decode(r)
	if err != nil {
		return nil, nil, beep.Format{}, errors.Mark(errors.Wrapf(err, "%s decoder failed", f.Name()), playback.ErrUnsupportedFormat)
	}
	return f, s, format, nil
}

// Formats returns the enabled formats in name order.
func (d *Decoder) Formats() []Format {
	result := make([]Format, len(d.formats))
	copy(result, d.formats)
	return result
}

func (d *Decoder) match(mime *mimetype.MIME) Format {
	for _, f := range d.formats {
		for _, mt := range f.MIMETypes() {
			if mime.Is(mt) {
				return f
			}
		}
	}
	return nil
}

// closers closes each element in order. Closing a file the decoder already
// closed is not an error.
type closers []io.Closer

func (c closers) Close() error {
	var first error
	for _, cl := range c {
		if err := cl.Close(); err != nil && first == nil && !errors.Is(err, os.ErrClosed) {
			first = err
		}
	}
	return first
}

var _ playback.Decoder = (*Decoder)(nil)

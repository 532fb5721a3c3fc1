package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/domain/track"
)

// Controller is the playback surface the dispatcher drives.
type Controller interface {
	Load(ctx context.Context, path string) (*track.Track, bool, error)
	Remove(ref string) error
	Start() error
	Pause() error
	Loop()
	StopLoop()
	Looping() bool
	StartOver() error
	Skip(ref string) error
	Poll() error
	Current() (*track.Track, bool)
	Tracks() []*track.Track
	State() playback.State
	Events() <-chan playback.Event
}

// Config holds dispatcher configuration.
type Config struct {
	Prompt     string // Printed before each command
	PathPrompt string // Printed before the path of a load
	Quiet      bool   // Suppress the startup usage and event notices
}

// Dispatcher reads commands line by line and applies them to a Controller.
type Dispatcher struct {
	ctrl    Controller
	scanner *bufio.Scanner
	out     io.Writer
	styles  styles
	config  Config
}

// NewDispatcher creates a dispatcher reading from in and writing to out.
func NewDispatcher(config Config, ctrl Controller, in io.Reader, out io.Writer) *Dispatcher {
	return &Dispatcher{
		ctrl:    ctrl,
		scanner: bufio.NewScanner(in),
		out:     out,
		styles:  newStyles(out),
		config:  config,
	}
}

// Run runs the command loop until the input ends or ctx is cancelled.
// Command failures are printed and the loop continues; only a read error is
// returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.config.Quiet {
		fmt.Fprint(d.out, Usage)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, ok := d.readLine(d.config.Prompt)
		if !ok {
			return d.scanner.Err()
		}

		// Completion is observed once per command, before it is applied.
		if err := d.ctrl.Poll(); err != nil {
			d.printError(err)
		}
		d.printEvents()

		if strings.TrimSpace(line) == "" {
			continue
		}

		req, err := ParseCommand(line)
		if err != nil {
			d.printError(err)
			if errors.Is(err, ErrUnknownCommand) {
				d.println(d.styles.muted, "Type help for a list of commands")
			}
			continue
		}

		zlog.Debug().Msgf("console: command=%s arg=%q", req.Command, req.Arg)
		if err := d.Execute(ctx, req); err != nil {
			d.printError(err)
		}
		d.printEvents()
	}
}

// Execute applies one parsed command.
func (d *Dispatcher) Execute(ctx context.Context, req Request) error {
	switch req.Command {
	case CommandHelp:
		fmt.Fprint(d.out, Usage)
	case CommandPlaylist:
		d.printPlaylist()
	case CommandLoad:
		return d.load(ctx)
	case CommandRemove:
		if err := d.ctrl.Remove(req.Arg); err != nil {
			return err
		}
		d.println(d.styles.muted, "Removed %s", req.Arg)
	case CommandPause:
		if err := d.ctrl.Pause(); err != nil {
			return err
		}
		if d.ctrl.State() == playback.StatePaused {
			d.println(d.styles.paused, "Paused")
		}
	case CommandStart:
		return d.ctrl.Start()
	case CommandCurrent:
		d.printCurrent()
	case CommandLoop:
		d.ctrl.Loop()
		d.println(d.styles.muted, "Loop on")
	case CommandStopLoop:
		d.ctrl.StopLoop()
		d.println(d.styles.muted, "Loop off")
	case CommandStartOver:
		return d.ctrl.StartOver()
	case CommandSkip:
		return d.ctrl.Skip(req.Arg)
	default:
		return errors.Mark(errors.Newf("unhandled command %d", req.Command), ErrUnknownCommand)
	}
	return nil
}

func (d *Dispatcher) load(ctx context.Context) error {
	path, ok := d.readLine(d.config.PathPrompt)
	if !ok {
		return errors.Mark(errors.New("load needs a path"), ErrMissingArgument)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.Mark(errors.New("load needs a path"), ErrMissingArgument)
	}

	t, added, err := d.ctrl.Load(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", path)
	}
	if !added {
		d.println(d.styles.muted, "%s is already in the playlist", t.DisplayName())
		return nil
	}
	d.println(d.styles.muted, "Loaded %s", t.DisplayName())
	return nil
}

func (d *Dispatcher) printPlaylist() {
	const rule = "-----------------------------------"

	fmt.Fprintln(d.out, rule)
	cur, hasCurrent := d.ctrl.Current()
	for _, t := range d.ctrl.Tracks() {
		size := "?"
		if n, err := t.Size(); err == nil {
			size = humanize.IBytes(uint64(n))
		}
		if hasCurrent && t.Equal(cur) {
			d.println(d.styles.current, "* %s (%s)", t.DisplayName(), size)
			continue
		}
		fmt.Fprintf(d.out, "  %s (%s)\n", t.DisplayName(), size)
	}
	fmt.Fprintln(d.out, rule)
}

func (d *Dispatcher) printCurrent() {
	cur, ok := d.ctrl.Current()
	if !ok {
		d.println(d.styles.muted, "No track loaded")
		return
	}

	state := d.ctrl.State()
	style := d.styles.muted
	switch state {
	case playback.StatePlaying:
		style = d.styles.playing
	case playback.StatePaused:
		style = d.styles.paused
	}

	line := fmt.Sprintf("Current: %s [%s]", cur.DisplayName(), state)
	if d.ctrl.Looping() {
		line += " (loop)"
	}
	d.println(style, "%s", line)
}

// printEvents prints the notices queued by the controller since the last call.
func (d *Dispatcher) printEvents() {
	for {
		select {
		case e, ok := <-d.ctrl.Events():
			if !ok {
				return
			}
			d.printEvent(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) printEvent(e playback.Event) {
	zlog.Debug().Msgf("console: event=%s track=%s playback_id=%s", e.Type, e.Name, e.PlaybackID)
	if d.config.Quiet {
		return
	}

	switch e.Type {
	case playback.EventTrackStarted:
		d.println(d.styles.playing, "Now playing: %s", e.Name)
	case playback.EventTrackLooped:
		d.println(d.styles.playing, "Looping: %s", e.Name)
	case playback.EventPlaylistEmpty:
		d.println(d.styles.muted, "Playlist is empty")
	}
}

func (d *Dispatcher) readLine(prompt string) (string, bool) {
	fmt.Fprint(d.out, prompt)
	if !d.scanner.Scan() {
		return "", false
	}
	return d.scanner.Text(), true
}

func (d *Dispatcher) println(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(d.out, style.Render(fmt.Sprintf(format, args...)))
}

func (d *Dispatcher) printError(err error) {
	zlog.Debug().Msgf("console: %+v", err)
	d.println(d.styles.err, "Error: %v", err)
}

// Package console provides the line-oriented command interface.
package console

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")
)

// Command identifies a console command.
type Command int

const (
	CommandHelp Command = iota
	CommandPlaylist
	CommandLoad
	CommandRemove
	CommandPause
	CommandStart
	CommandCurrent
	CommandLoop
	CommandStopLoop
	CommandStartOver
	CommandSkip
)

var commandNames = map[string]Command{
	"help":      CommandHelp,
	"playlist":  CommandPlaylist,
	"load":      CommandLoad,
	"remove":    CommandRemove,
	"pause":     CommandPause,
	"start":     CommandStart,
	"current":   CommandCurrent,
	"loop":      CommandLoop,
	"stoploop":  CommandStopLoop,
	"startover": CommandStartOver,
	"skip":      CommandSkip,
}

// String returns the keyword of the command.
func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return "unknown"
}

// takesName reports whether the command needs a track name argument.
func (c Command) takesName() bool {
	return c == CommandRemove || c == CommandSkip
}

// Request is a parsed command line.
type Request struct {
	Command Command
	Arg     string // Track name for remove and skip
}

// ParseCommand parses one input line. The keyword is case sensitive; the
// rest of the line after the first whitespace is the argument, so names may
// contain spaces.
func ParseCommand(line string) (Request, error) {
	line = strings.TrimSpace(line)
	keyword, rest := line, ""
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		keyword, rest = line[:i], strings.TrimSpace(line[i:])
	}

	cmd, ok := commandNames[keyword]
	if !ok {
		return Request{}, errors.Mark(errors.Newf("unknown command: %q", line), ErrUnknownCommand)
	}

	if cmd.takesName() && rest == "" {
		return Request{}, errors.Mark(errors.Newf("%s needs a track name", keyword), ErrMissingArgument)
	}
	if !cmd.takesName() {
		rest = ""
	}
	return Request{Command: cmd, Arg: rest}, nil
}

// Usage is printed by help and at startup.
const Usage = `Usage:
  help               print this usage
  playlist           print the playlist
  load               load an audio file (the path is read from the next line)
  remove <name>      remove a track by file name or path
  pause              pause the current track
  start              start or resume the current track
  current            show the current track
  loop               replay the current track when it ends
  stoploop           advance to the next track when the current one ends
  startover          restart the current track from the beginning
  skip <name>        play a track by file name or path
`

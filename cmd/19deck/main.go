// Package main provides the 19deck entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19deck/internal/api/console"
	"github.com/osa030/19deck/internal/app/filter"
	"github.com/osa030/19deck/internal/app/playback"
	"github.com/osa030/19deck/internal/infra/config"
	"github.com/osa030/19deck/internal/infra/decoder"
	"github.com/osa030/19deck/internal/infra/logger"
	"github.com/osa030/19deck/internal/infra/speaker"
)

var (
	app        = kingpin.New("19deck", "19deck interactive audio playlist player")
	configPath = app.Flag("config", "Path to config file (default: built-in defaults)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	// list commands
	listFormatsCmd = app.Command("list-formats", "List supported audio formats and exit")
	listFiltersCmd = app.Command("list-filters", "List available load filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Load config before the logger, which is configured from it
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if command == listFormatsCmd.FullCommand() {
		if err := printFormats(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to list formats: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Initialize logger
	loggerConfig := newLoggerConfig(cfg.Log, *verbose, *logfile)
	logCloser, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	if *configPath != "" {
		zlog.Info().Msgf("Loaded config from %s", *configPath)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		logCloser.Close()
		os.Exit(1)
	}
	logCloser.Close()
}

// newLoggerConfig builds the logger settings from the log config section.
// verbose and logfile are the command-line overrides.
func newLoggerConfig(lc config.LogConfig, verbose bool, logfile string) logger.Config {
	cfg := logger.Config{
		Output:     "stderr",
		Level:      lc.Level,
		File:       lc.File,
		MaxSizeMB:  lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
	}
	if verbose {
		cfg.Level = "debug"
	}
	if logfile != "" {
		cfg.File = logfile
	}
	if cfg.File != "" {
		cfg.Output = "file"
	}
	return cfg
}

// run executes the main player logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}

	chain, err := filter.BuildChain(cfg.EnabledFilters(), filter.Deps{Durations: dec})
	if err != nil {
		return errors.Wrap(err, "invalid filter config")
	}

	sink, err := speaker.New(speaker.Config{
		SampleRate: cfg.Playback.SampleRate,
		Buffer:     cfg.Buffer(),
	})
	if err != nil {
		return err
	}
	defer sink.Close()

	ctrl := playback.NewController(playback.Config{
		Loop:        cfg.Playback.Loop,
		EventBuffer: cfg.Playback.EventBuffer,
	}, sink, dec, chain)

	dispatcher := console.NewDispatcher(console.Config{
		Prompt:     cfg.Console.Prompt,
		PathPrompt: cfg.Console.PathPrompt,
		Quiet:      cfg.Console.Quiet,
	}, ctrl, os.Stdin, os.Stdout)

	executeHooks(cfg.Hooks.OnStarted, "on_started")
	defer executeHooks(cfg.Hooks.OnStopped, "on_stopped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The console blocks on stdin, so it runs in its own goroutine and the
	// main goroutine waits for either end of input or a signal.
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- dispatcher.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		// The console goroutine may still be using the controller; only the
		// sink (which has its own lock) is stopped here.
		zlog.Info().Msg("Received shutdown signal...")
		cancel()
		sink.Stop()
		return nil
	case err := <-doneCh:
		ctrl.Close()
		if err != nil {
			return errors.Wrap(err, "console input failed")
		}
		zlog.Info().Msg("Input closed, stopping")
		return nil
	}
}

// newDecoder builds the decoder for the formats enabled in cfg.
func newDecoder(cfg *config.Config) (*decoder.Decoder, error) {
	dec, err := decoder.New(decoder.Config{
		SampleRate:      cfg.Playback.SampleRate,
		ResampleQuality: cfg.Playback.ResampleQuality,
		Disabled:        cfg.DisabledFormats(),
		Settings:        cfg.FormatSettings(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "invalid format config")
	}
	return dec, nil
}

// printFormats prints the audio formats enabled by cfg.
func printFormats(cfg *config.Config) error {
	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}

	fmt.Println("Supported Formats:")
	for _, f := range dec.Formats() {
		mimes := strings.Join(f.MIMETypes(), ", ")
		fmt.Printf("  %-10s - %s [mime: %s]\n", f.Name(), f.Description(), mimes)
	}
	return nil
}

// printFilters prints available filters.
func printFilters() {
	registered := filter.GetRegistered()
	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available Filters:")
	for _, name := range names {
		f := registered[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-20s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}

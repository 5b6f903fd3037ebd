package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mrz1836/docgen/internal/constants"
)

// Log file rotation settings.
const (
	logFileName   = "docgen.log"
	logMaxSizeMB  = 10
	logMaxBackups = 5
	logMaxAgeDays = 30
)

// zerologGlobalsOnce guards the process-wide zerolog settings.
var zerologGlobalsOnce sync.Once //nolint:gochecknoglobals // One-time configuration

// Options selects the level and destinations of a logger.
type Options struct {
	// Verbose lowers the level to debug.
	Verbose bool

	// Quiet raises the level to warn. Verbose wins if both are set.
	Quiet bool

	// Console receives human-facing output. Nil means stderr.
	Console io.Writer

	// Dir holds the rotated log file. Empty disables file logging.
	Dir string
}

// New builds the docgen logger. Console output is colorized on a terminal
// unless NO_COLOR is set, JSON otherwise. When a log directory is given,
// entries are also appended to a rotated docgen.log. Everything written is
// redacted. The returned closer releases the log file and is never nil.
//
// The global zerolog logger is set to the same logger so code using the
// zerolog/log package shares its configuration.
func New(opts Options) (zerolog.Logger, io.Closer) {
	zerologGlobalsOnce.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		zerolog.DurationFieldUnit = time.Millisecond
	})

	console := opts.Console
	if console == nil {
		console = consoleWriter(os.Stderr)
	}

	var closer io.Closer = nopCloser{}
	writer := io.Writer(NewRedactingWriter(console))
	if opts.Dir != "" {
		if file, err := openLogFile(opts.Dir); err == nil {
			closer = file
			writer = zerolog.MultiLevelWriter(writer, NewRedactingWriter(file))
		}
	}

	logger := zerolog.New(writer).
		Level(Level(opts.Verbose, opts.Quiet)).
		Hook(SecretHook{}).
		With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer
}

// Level maps the verbosity flags to a zerolog level.
func Level(verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// DefaultDir returns ~/.docgen/logs, or $DOCGEN_HOME/logs when set.
func DefaultDir() (string, error) {
	if home := os.Getenv("DOCGEN_HOME"); home != "" {
		return filepath.Join(home, constants.LogsDir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, constants.DocgenHome, constants.LogsDir), nil
}

func consoleWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}
	return f
}

func openLogFile(dir string) (io.WriteCloser, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

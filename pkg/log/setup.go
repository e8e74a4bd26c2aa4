package log

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures Setup.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// File is the log file path; empty disables file logging.
	File string
	// Console enables human readable output on ConsoleOut.
	Console bool
	// ConsoleOut defaults to os.Stderr.
	ConsoleOut io.Writer

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup installs a zerolog provider as the global provider. Records go to a
// rotating JSON log file and, when enabled, to the console. The returned
// closer releases the log file.
func Setup(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var (
		writers []io.Writer
		closer  io.Closer = nopCloser{}
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 32), // megabytes
			MaxBackups: orDefault(opts.MaxBackups, 8),
			MaxAge:     orDefault(opts.MaxAgeDays, 15), // days
		}
		writers = append(writers, lj)
		closer = lj
	}
	if opts.Console {
		out := opts.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	provider := NewZerologProvider(level, writers...)
	SetProvider(provider)
	InstallWarningSink(provider.GetLoggerWithName("warnings"))
	return closer, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

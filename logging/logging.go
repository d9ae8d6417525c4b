// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger construction
type Options struct {
	Verbose bool
	JSON    bool
	// Out defaults to stderr
	Out io.Writer
}

// New returns a logger writing to opts.Out. Each tee receives the same
// events rendered as plain console lines without color.
func New(opts Options, tees ...io.Writer) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var primary io.Writer = out
	if !opts.JSON {
		primary = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	writers := []io.Writer{primary}
	for _, t := range tees {
		writers = append(writers, PlainWriter(t))
	}

	var w io.Writer = primary
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// PlainWriter renders events as one uncolored line per Write on w.
func PlainWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.TimeOnly}
}

// Setup installs a logger built from opts as the global zerolog logger.
func Setup(opts Options) zerolog.Logger {
	logger := New(opts)
	log.Logger = logger
	return logger
}

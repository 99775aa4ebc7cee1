// Package logging builds the component loggers used by modelsync.
//
// Loggers are plain *log.Logger values with a component prefix such as
// "[sync] ". Output goes to stderr in verbose mode and to an optional
// size-rotated log file; with neither configured it is discarded.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where log output goes.
type Options struct {
	// Verbose copies log output to Stderr.
	Verbose bool
	// File, when set, receives log output with rotation.
	File       string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Sink is the shared destination of all component loggers.
type Sink struct {
	w    io.Writer
	file *lumberjack.Logger
}

// New creates a Sink for opts. Call Close when done to release the log file.
func New(opts Options) *Sink {
	var writers []io.Writer

	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	var file *lumberjack.Logger
	if opts.File != "" {
		file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
			Compress:   opts.Compress,
		}
		writers = append(writers, file)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	return &Sink{w: w, file: file}
}

// Logger returns a logger writing to the sink with the given prefix.
func (s *Sink) Logger(prefix string) *log.Logger {
	return log.New(s.w, prefix, log.LstdFlags)
}

// Close closes the log file, if any.
func (s *Sink) Close() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

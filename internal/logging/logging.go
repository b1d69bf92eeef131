// Package logging builds the process logger: a console writer that stays
// readable while the terminal is in raw mode, plus a rotating log file.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level string
	// Console receives human readable output. Defaults to stderr.
	Console io.Writer
	// File is the rotating log file. Empty selects the platform default; "-" disables it.
	File string
}

// New creates a new zerolog logger with console and file output.
// The returned closer releases the log file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: opts.Console, TimeFormat: time.RFC3339}}
	var closer io.Closer = nopCloser{}

	if opts.File != "-" {
		path := opts.File
		if path == "" {
			path = DefaultPath()
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		writers = append(writers, rotator)
		closer = rotator
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// DefaultPath returns platform-specific log file path
func DefaultPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "akasha", "akasha.log")
}

// RawWriter rewrites bare "\n" as "\r\n" while raw mode is on, so lines
// written during raw terminal input still start at column zero.
type RawWriter struct {
	mu  sync.Mutex
	w   io.Writer
	raw atomic.Bool
}

func NewRawWriter(w io.Writer) *RawWriter {
	return &RawWriter{w: w}
}

// SetRaw switches newline translation on or off.
func (r *RawWriter) SetRaw(on bool) { r.raw.Store(on) }

func (r *RawWriter) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.raw.Load() || bytes.IndexByte(p, '\n') < 0 {
		return r.w.Write(p)
	}

	out := make([]byte, 0, len(p)+8)
	for i, b := range p {
		if b == '\n' && (i == 0 || p[i-1] != '\r') {
			out = append(out, '\r')
		}
		out = append(out, b)
	}
	if _, err := r.w.Write(out); err != nil {
		return 0, err
	}
	return len(p), nil
}

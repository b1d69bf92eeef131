// Package codec persists chunk streams to segment files.
package codec

import (
	"fmt"
	"path/filepath"

	"github.com/petems/akasha/internal/audio"
)

// Kind selects the container and codec of a segment file.
type Kind string

const (
	WAV  Kind = "wav"
	Opus Kind = "opus"
)

// Sink writes one segment file. Close finalizes the file and must be called
// on every exit path, including errors, before the file is complete.
type Sink interface {
	Write(chunk audio.Chunk) error
	Close() error
	// Path is the file being written, extension included.
	Path() string
	// Frames is the number of frames accepted so far.
	Frames() int64
}

// Codec creates sinks of one kind.
type Codec interface {
	Kind() Kind
	Extension() string
	// SampleRate is the capture rate to request for this codec.
	SampleRate() int
	Create(path string, cfg audio.StreamConfig) (Sink, error)
}

type Options struct {
	Bitrate int
}

// New returns the codec for kind.
func New(kind Kind, opts Options) (Codec, error) {
	switch kind {
	case WAV:
		return wavCodec{}, nil
	case Opus:
		if opts.Bitrate <= 0 {
			opts.Bitrate = DefaultBitrate
		}
		return opusCodec{bitrate: opts.Bitrate}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", kind)
	}
}

// WithExtension appends ext to path unless path already has an extension.
func WithExtension(path, ext string) string {
	if filepath.Ext(path) != "" {
		return path
	}
	return path + "." + ext
}

func checkAligned(chunk audio.Chunk, channels int) error {
	if len(chunk)%channels != 0 {
		return fmt.Errorf("%w: chunk of %d samples is not a whole number of %d-channel frames",
			audio.ErrUnsupportedConfig, len(chunk), channels)
	}
	return nil
}

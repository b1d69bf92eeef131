package audio

import (
	"context"
	"fmt"
	"time"
)

// Chunk is one device callback's worth of interleaved float32 samples.
// Chunks are never mutated once produced.
type Chunk []float32

// Frames returns the number of interleaved frames in c for the given channel count.
func (c Chunk) Frames(channels int) int {
	if channels <= 0 {
		return 0
	}
	return len(c) / channels
}

// StreamConfig is fixed for the lifetime of one segment. Samples are always float32.
type StreamConfig struct {
	SampleRate int
	Channels   int
}

// Validate reports whether the configuration can be used for capture and encoding.
func (c StreamConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedConfig, c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrUnsupportedConfig, c.Channels)
	}
	return nil
}

// Duration returns the wall-clock length of a chunk captured with this configuration.
func (c StreamConfig) Duration(chunk Chunk) time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	frames := chunk.Frames(c.Channels)
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

func (c StreamConfig) String() string {
	return fmt.Sprintf("%dHz/%dch/f32", c.SampleRate, c.Channels)
}

// Stream yields chunks one at a time in capture order.
// Next returns ErrCancelled once ctx is done and io.EOF when the stream is exhausted.
type Stream interface {
	Next(ctx context.Context) (Chunk, error)
	Close() error
}

// Capture defines the interface for audio capture
type Capture interface {
	// Negotiate picks the stream configuration to open deviceID with, preferring sampleRate.
	Negotiate(deviceID string, sampleRate int) (StreamConfig, error)
	// Open starts capturing from deviceID. The returned stream must be closed to release the device.
	Open(cfg StreamConfig, deviceID string) (Stream, error)
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID                string
	Name              string
	Default           bool
	MaxInputChannels  int
	DefaultSampleRate float64
}

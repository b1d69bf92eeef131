// Package audiotest provides synthetic audio streams for tests.
package audiotest

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/petems/akasha/internal/audio"
)

// Stream replays a fixed list of chunks. OnNext, if set, runs before each chunk is returned.
type Stream struct {
	mu     sync.Mutex
	chunks []audio.Chunk
	pos    int
	closed bool

	OnNext func(i int, c audio.Chunk)
	// Err, if set, is returned once all chunks have been delivered instead of io.EOF.
	Err error
}

// NewStream returns a stream yielding chunks in order.
func NewStream(chunks ...audio.Chunk) *Stream {
	return &Stream{chunks: chunks}
}

func (s *Stream) Next(ctx context.Context) (audio.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrCancelled, err)
	}

	s.mu.Lock()
	if s.pos >= len(s.chunks) {
		s.mu.Unlock()
		if s.Err != nil {
			return nil, s.Err
		}
		return nil, io.EOF
	}
	i, c := s.pos, s.chunks[s.pos]
	s.pos++
	s.mu.Unlock()

	if s.OnNext != nil {
		s.OnNext(i, c)
	}
	return c, nil
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Delivered returns how many chunks have been handed out.
func (s *Stream) Delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Sine generates totalFrames frames of a sine wave at freq Hz, interleaved across
// cfg.Channels (channel c is phase-shifted so channels can be told apart), split
// into chunks of chunkFrames frames.
func Sine(cfg audio.StreamConfig, freq float64, totalFrames, chunkFrames int) []audio.Chunk {
	var chunks []audio.Chunk
	for start := 0; start < totalFrames; start += chunkFrames {
		n := chunkFrames
		if start+n > totalFrames {
			n = totalFrames - start
		}
		chunk := make(audio.Chunk, 0, n*cfg.Channels)
		for f := start; f < start+n; f++ {
			t := float64(f) / float64(cfg.SampleRate)
			for c := 0; c < cfg.Channels; c++ {
				phase := float64(c) * math.Pi / 2
				chunk = append(chunk, float32(0.5*math.Sin(2*math.Pi*freq*t+phase)))
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Capture is a fake device. Each Open call asks OpenFunc for the stream to return.
type Capture struct {
	mu    sync.Mutex
	opens int

	// Config is returned by Negotiate. Its SampleRate is replaced by the preferred rate when zero.
	Config       audio.StreamConfig
	NegotiateErr error
	// OpenFunc receives the zero-based open count.
	OpenFunc func(n int, cfg audio.StreamConfig) (audio.Stream, error)
	Devices  []audio.AudioDevice
}

func (c *Capture) Negotiate(deviceID string, sampleRate int) (audio.StreamConfig, error) {
	if c.NegotiateErr != nil {
		return audio.StreamConfig{}, c.NegotiateErr
	}
	cfg := c.Config
	if cfg.SampleRate == 0 {
		cfg.SampleRate = sampleRate
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	return cfg, nil
}

func (c *Capture) Open(cfg audio.StreamConfig, deviceID string) (audio.Stream, error) {
	c.mu.Lock()
	n := c.opens
	c.opens++
	c.mu.Unlock()

	if c.OpenFunc == nil {
		return NewStream(), nil
	}
	return c.OpenFunc(n, cfg)
}

func (c *Capture) ListDevices() ([]audio.AudioDevice, error) {
	return c.Devices, nil
}

func (c *Capture) Close() error { return nil }

// Opens returns how many times Open has been called.
func (c *Capture) Opens() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

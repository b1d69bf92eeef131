package codec

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/petems/akasha/internal/audio"
)

// WAVE_FORMAT_IEEE_FLOAT
const wavFormatFloat = 3

type wavCodec struct{}

func (wavCodec) Kind() Kind        { return WAV }
func (wavCodec) Extension() string { return "wav" }
func (wavCodec) SampleRate() int   { return audio.DefaultSampleRate }

func (c wavCodec) Create(path string, cfg audio.StreamConfig) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	path = WithExtension(path, c.Extension())

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrIO, err)
	}
	out := newSeekBuffer(f)

	enc := wav.NewEncoder(out, cfg.SampleRate, 32, cfg.Channels, wavFormatFloat)
	// An empty buffer forces the header out, so a segment closed before its
	// first chunk is still a valid file.
	header := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: cfg.Channels, SampleRate: cfg.SampleRate},
		SourceBitDepth: 32,
	}
	if err := enc.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: writing wav header: %v", audio.ErrEncoderInit, err)
	}

	return &wavSink{path: path, cfg: cfg, f: f, out: out, enc: enc}, nil
}

type wavSink struct {
	path   string
	cfg    audio.StreamConfig
	f      *os.File
	out    *seekBuffer
	enc    *wav.Encoder
	frames int64

	closeOnce sync.Once
	closeErr  error
}

func (s *wavSink) Path() string  { return s.path }
func (s *wavSink) Frames() int64 { return s.frames }

// Write appends chunk and syncs the file, trading throughput for minimal loss on a crash.
func (s *wavSink) Write(chunk audio.Chunk) error {
	ch := s.cfg.Channels
	if err := checkAligned(chunk, ch); err != nil {
		return err
	}
	for i := 0; i < len(chunk); i += ch {
		if err := s.enc.WriteFrame(chunk[i : i+ch]); err != nil {
			return fmt.Errorf("%w: writing %s: %v", audio.ErrIO, s.path, err)
		}
	}
	s.frames += int64(len(chunk) / ch)

	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("%w: flushing %s: %v", audio.ErrIO, s.path, err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %v", audio.ErrIO, s.path, err)
	}
	return nil
}

// Close rewrites the RIFF and data length fields and closes the file.
func (s *wavSink) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if err := s.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finalizing wav header: %w", err))
		}
		if err := s.out.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := s.f.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := s.f.Close(); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			s.closeErr = fmt.Errorf("%w: closing %s: %v", audio.ErrIO, s.path, errors.Join(errs...))
		}
	})
	return s.closeErr
}

// seekBuffer batches the encoder's small per-frame writes. Seeking flushes first.
type seekBuffer struct {
	*bufio.Writer
	f *os.File
}

func newSeekBuffer(f *os.File) *seekBuffer {
	return &seekBuffer{Writer: bufio.NewWriterSize(f, 64<<10), f: f}
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	if err := b.Flush(); err != nil {
		return 0, err
	}
	return b.f.Seek(offset, whence)
}

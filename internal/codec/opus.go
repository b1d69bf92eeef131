package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"gopkg.in/hraban/opus.v2"

	"github.com/petems/akasha/internal/audio"
)

const (
	// DefaultBitrate is the VBR target for compressed segments.
	DefaultBitrate = 128_000

	opusSampleRate = 48000
	// Ogg Opus granule positions always count 48 kHz samples.
	opusGranuleRate = 48000
	framesPerSecond = 50 // 20ms frames
	maxPacketSize   = 4000
	opusPayloadType = 111
)

var opusRates = map[int]bool{8000: true, 12000: true, 16000: true, 24000: true, 48000: true}

type opusCodec struct {
	bitrate int
}

func (opusCodec) Kind() Kind        { return Opus }
func (opusCodec) Extension() string { return "opus" }
func (opusCodec) SampleRate() int   { return opusSampleRate }

func (c opusCodec) Create(path string, cfg audio.StreamConfig) (Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !opusRates[cfg.SampleRate] {
		return nil, fmt.Errorf("%w: opus cannot encode %d Hz", audio.ErrUnsupportedConfig, cfg.SampleRate)
	}
	if cfg.Channels > 2 {
		return nil, fmt.Errorf("%w: opus sink supports at most 2 channels, got %d", audio.ErrUnsupportedConfig, cfg.Channels)
	}
	path = WithExtension(path, c.Extension())

	// libopus runs in VBR mode unless told otherwise; the bitrate is its target.
	enc, err := opus.NewEncoder(cfg.SampleRate, cfg.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrEncoderInit, err)
	}
	if err := enc.SetBitrate(c.bitrate); err != nil {
		return nil, fmt.Errorf("%w: setting bitrate %d: %v", audio.ErrEncoderInit, c.bitrate, err)
	}

	w, err := oggwriter.New(path, uint32(cfg.SampleRate), uint16(cfg.Channels))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrIO, err)
	}

	frameSize := cfg.SampleRate / framesPerSecond
	return &opusSink{
		path:      path,
		cfg:       cfg,
		enc:       enc,
		w:         w,
		frameSize: frameSize,
		step:      uint32(opusGranuleRate / framesPerSecond),
		pending:   make([][]float32, cfg.Channels),
		frame:     make([]float32, frameSize*cfg.Channels),
		packet:    make([]byte, maxPacketSize),
	}, nil
}

type opusSink struct {
	path string
	cfg  audio.StreamConfig
	enc  *opus.Encoder
	w    *oggwriter.OggWriter

	frameSize int
	step      uint32
	seq       uint16
	ts        uint32
	frames    int64

	pending [][]float32 // per-channel samples not yet encoded
	frame   []float32
	packet  []byte

	closeOnce sync.Once
	closeErr  error
}

func (s *opusSink) Path() string  { return s.path }
func (s *opusSink) Frames() int64 { return s.frames }

func (s *opusSink) Write(chunk audio.Chunk) error {
	if err := checkAligned(chunk, s.cfg.Channels); err != nil {
		return err
	}
	planes := Deinterleave(chunk, s.cfg.Channels)
	for c := range s.pending {
		s.pending[c] = append(s.pending[c], planes[c]...)
	}
	s.frames += int64(len(chunk) / s.cfg.Channels)

	for len(s.pending[0]) >= s.frameSize {
		if err := s.encodeFrame(); err != nil {
			return err
		}
	}
	return nil
}

func (s *opusSink) encodeFrame() error {
	window := make([][]float32, len(s.pending))
	for c, p := range s.pending {
		window[c] = p[:s.frameSize]
	}
	interleaveInto(s.frame, window, s.frameSize)
	for c, p := range s.pending {
		s.pending[c] = p[:copy(p, p[s.frameSize:])]
	}

	n, err := s.enc.EncodeFloat32(s.frame, s.packet)
	if err != nil {
		return fmt.Errorf("%w: encoding opus frame: %v", audio.ErrIO, err)
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    opusPayloadType,
			SequenceNumber: s.seq,
			Timestamp:      s.ts,
		},
		Payload: append([]byte(nil), s.packet[:n]...),
	}
	if err := s.w.WriteRTP(pkt); err != nil {
		return fmt.Errorf("%w: writing %s: %v", audio.ErrIO, s.path, err)
	}
	s.seq++
	s.ts += s.step
	return nil
}

// Close pads and encodes any buffered partial frame, then finalizes the Ogg stream.
func (s *opusSink) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if len(s.pending[0]) > 0 {
			for c, p := range s.pending {
				s.pending[c] = append(p, make([]float32, s.frameSize-len(p))...)
			}
			if err := s.encodeFrame(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: finalizing %s: %v", audio.ErrIO, s.path, err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/codec"
	"github.com/petems/akasha/internal/control"
	"github.com/petems/akasha/internal/meter"
)

// DefaultBackoff is the pause between a failed segment and the next attempt.
const DefaultBackoff = 30 * time.Second

// ErrPanic wraps a panic recovered from a segment attempt.
var ErrPanic = errors.New("segment attempt panicked")

type Config struct {
	Capture  audio.Capture
	Codecs   []codec.Codec
	Meter    *meter.Meter
	Control  *control.Channel
	DeviceID string
	Backoff  time.Duration
	Logger   zerolog.Logger
	Observer Observer
	// Now is the clock used to measure segment length. Defaults to time.Now.
	Now func() time.Time
	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to State)
}

type Controller struct {
	capture  audio.Capture
	codecs   map[codec.Kind]codec.Codec
	meter    *meter.Meter
	ctrl     *control.Channel
	device   string
	backoff  time.Duration
	log      zerolog.Logger
	observer Observer
	now      func() time.Time
	onChange func(from, to State)

	state atomic.Int32
}

func New(cfg Config) *Controller {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Control == nil {
		cfg.Control = control.New(false)
	}
	if cfg.Meter == nil {
		cfg.Meter = meter.New(cfg.Control, meter.Discard{}, meter.Options{Now: cfg.Now})
	}

	codecs := make(map[codec.Kind]codec.Codec, len(cfg.Codecs))
	for _, c := range cfg.Codecs {
		codecs[c.Kind()] = c
	}

	return &Controller{
		capture:  cfg.Capture,
		codecs:   codecs,
		meter:    cfg.Meter,
		ctrl:     cfg.Control,
		device:   cfg.DeviceID,
		backoff:  cfg.Backoff,
		log:      cfg.Logger.With().Str("component", "segment").Logger(),
		observer: cfg.Observer,
		now:      cfg.Now,
		onChange: cfg.OnTransition,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old == s {
		return
	}
	c.log.Debug().Stringer("from", old).Stringer("to", s).Msg("State change")
	if c.onChange != nil {
		c.onChange(old, s)
	}
}

// Run records segments from src until src is exhausted, quit is requested or
// ctx is done. Segment failures are logged and retried after the backoff; they
// never end the loop.
func (c *Controller) Run(ctx context.Context, src Source) error {
	replay := false
	if r, ok := src.(Replayable); ok {
		replay = r.Replayable()
	}

	var pending *Descriptor
	defer c.setState(Terminated)

	for {
		if c.stopping(ctx) {
			return nil
		}

		c.setState(AwaitingPath)
		var desc Descriptor
		if pending != nil {
			desc, pending = *pending, nil
		} else {
			var ok bool
			if desc, ok = src.Next(); !ok {
				c.log.Info().Msg("No more segment paths")
				return nil
			}
		}

		err := c.attempt(ctx, desc)
		if err == nil {
			continue
		}

		class := audio.Classify(err)
		if errors.Is(err, ErrPanic) {
			class = "panic"
		}
		c.observer.SegmentFailed(class)
		c.observer.BackoffStarted(c.backoff)
		c.setState(BackoffWait)
		c.log.Error().Err(err).
			Str("path", desc.Path).
			Str("class", class).
			Dur("retry_in", c.backoff).
			Msg("Recording segment failed")

		if c.ctrl.Quit.Sleep(ctx, c.backoff) {
			return nil
		}
		if replay {
			pending = &desc
		}
	}
}

func (c *Controller) stopping(ctx context.Context) bool {
	return c.ctrl.Quit.Requested() || ctx.Err() != nil
}

// attempt records one segment. A nil result means the file was finalized,
// either because the duration elapsed, the stream ended or quit was requested.
func (c *Controller) attempt(ctx context.Context, desc Descriptor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	cd, ok := c.codecs[desc.Codec]
	if !ok {
		return fmt.Errorf("%w: no codec registered for %q", audio.ErrUnsupportedConfig, desc.Codec)
	}

	c.setState(Capturing)
	cfg, err := c.capture.Negotiate(c.device, cd.SampleRate())
	if err != nil {
		return err
	}
	stream, err := c.capture.Open(cfg, c.device)
	if err != nil {
		return err
	}
	sink, err := cd.Create(desc.Path, cfg)
	if err != nil {
		stream.Close()
		return err
	}

	log := c.log.With().Str("path", sink.Path()).Str("codec", string(cd.Kind())).Logger()
	log.Info().Stringer("config", cfg).Dur("duration", desc.Duration).Msg("Begin recording segment")
	c.observer.SegmentStarted(string(cd.Kind()))
	c.ctrl.Current.Set(sink.Path())

	start := c.now()
	defer func() {
		c.setState(Finalizing)
		c.ctrl.Current.Set("")
		if cerr := stream.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to release capture device")
		}
		if cerr := sink.Close(); cerr != nil {
			err = errors.Join(err, cerr)
			return
		}
		elapsed := c.now().Sub(start)
		c.observer.SegmentFinalized(string(cd.Kind()), sink.Frames(), elapsed)
		log.Info().Int64("frames", sink.Frames()).Dur("elapsed", elapsed).Msg("Segment finalized")
	}()

	segCtx, cancel := c.ctrl.Quit.Context(ctx)
	defer cancel()

	return c.pump(segCtx, c.meter.Tap(stream), sink, cfg, start, desc.Duration)
}

// pump moves chunks from the tapped stream into the sink until the segment is complete.
func (c *Controller) pump(ctx context.Context, src audio.Stream, sink codec.Sink, cfg audio.StreamConfig, start time.Time, limit time.Duration) error {
	for {
		chunk, err := src.Next(ctx)
		switch {
		case errors.Is(err, audio.ErrCancelled), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		if err := sink.Write(chunk); err != nil {
			return err
		}
		c.observer.FramesWritten(chunk.Frames(cfg.Channels))

		if c.now().Sub(start) >= limit || c.stopping(ctx) {
			return nil
		}
	}
}

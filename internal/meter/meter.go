package meter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/control"
)

// DisabledMessage is printed once when the display bound elapses.
const DisabledMessage = "Display of microphone stream is disabled."

// Renderer draws the indicator line.
type Renderer interface {
	Render(bar, label string)
	Message(msg string)
}

// LevelObserver is told about every level the meter computes.
type LevelObserver interface {
	Level(db float64)
}

type Options struct {
	// Every renders every Nth chunk of a segment; 0 renders all of them.
	Every int
	// DisplayFor turns the display off once, this long after Start. Zero disables the timer.
	DisplayFor time.Duration
	Start      time.Time
	Now        func() time.Time
	Observer   LevelObserver
}

// Meter is created once per session and tapped into each segment's stream.
type Meter struct {
	ch         *control.Channel
	r          Renderer
	every      uint64
	displayFor time.Duration
	start      time.Time
	now        func() time.Time
	observer   LevelObserver
	expired    atomic.Bool
}

func New(ch *control.Channel, r Renderer, opts Options) *Meter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Start.IsZero() {
		opts.Start = opts.Now()
	}
	every := uint64(0)
	if opts.Every > 0 {
		every = uint64(opts.Every)
	}
	return &Meter{
		ch:         ch,
		r:          r,
		every:      every,
		displayFor: opts.DisplayFor,
		start:      opts.Start,
		now:        opts.Now,
		observer:   opts.Observer,
	}
}

// Tap returns a stream yielding exactly the chunks of src, in order, metering them on the way.
func (m *Meter) Tap(src audio.Stream) audio.Stream {
	return &tap{m: m, src: src}
}

func (m *Meter) observe(index uint64, chunk audio.Chunk) {
	if m.displayFor > 0 && !m.expired.Load() && m.now().Sub(m.start) >= m.displayFor {
		if m.expired.CompareAndSwap(false, true) && m.ch.Display.Disable() {
			m.r.Message(DisabledMessage)
		}
	}

	if m.every != 0 && index%m.every != 0 {
		return
	}
	display := m.ch.Display.Get()
	if !display && m.observer == nil {
		return
	}

	db := Level(chunk)
	if m.observer != nil {
		m.observer.Level(float64(db))
	}
	if !display {
		return
	}

	label := db.String()
	m.r.Render(SoundBar(Ratio(db), m.ch.Width.Get()-len(label)-1), label)
}

type tap struct {
	m     *Meter
	src   audio.Stream
	index uint64
}

func (t *tap) Next(ctx context.Context) (audio.Chunk, error) {
	chunk, err := t.src.Next(ctx)
	if err != nil {
		return nil, err
	}
	t.m.observe(t.index, chunk)
	t.index++
	return chunk, nil
}

func (t *tap) Close() error {
	return t.src.Close()
}

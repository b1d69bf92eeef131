package meter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/audio/audiotest"
	"github.com/petems/akasha/internal/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRenderer struct {
	mu       sync.Mutex
	bars     []string
	labels   []string
	messages []string
}

func (r *recordingRenderer) Render(bar, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bars = append(r.bars, bar)
	r.labels = append(r.labels, label)
}

func (r *recordingRenderer) Message(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

type levels struct{ n int }

func (l *levels) Level(float64) { l.n++ }

func drain(t *testing.T, s audio.Stream) []audio.Chunk {
	t.Helper()
	var out []audio.Chunk
	for {
		c, err := s.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, c)
	}
}

func TestTapIsTransparent(t *testing.T) {
	cfg := audio.StreamConfig{SampleRate: 8000, Channels: 2}
	chunks := audiotest.Sine(cfg, 440, 4000, 333)

	for _, display := range []bool{false, true} {
		ch := control.New(display)
		r := &recordingRenderer{}
		m := New(ch, r, Options{})

		got := drain(t, m.Tap(audiotest.NewStream(chunks...)))
		require.Equal(t, len(chunks), len(got), "display=%v", display)
		for i := range chunks {
			assert.Equal(t, chunks[i], got[i], "display=%v chunk=%d", display, i)
			assert.Same(t, &chunks[i][0], &got[i][0], "chunks are forwarded, not copied")
		}
		if display {
			assert.Len(t, r.bars, len(chunks))
		} else {
			assert.Empty(t, r.bars)
		}
	}
}

func TestTapStride(t *testing.T) {
	ch := control.New(true)
	r := &recordingRenderer{}
	m := New(ch, r, Options{Every: 3})

	chunks := make([]audio.Chunk, 10)
	for i := range chunks {
		chunks[i] = constant(64, 0.5)
	}
	drain(t, m.Tap(audiotest.NewStream(chunks...)))
	assert.Len(t, r.bars, 4, "chunks 0, 3, 6 and 9 are rendered")
}

func TestTapBarFitsTerminalWidth(t *testing.T) {
	ch := control.New(true)
	ch.Width.Set(60)
	r := &recordingRenderer{}
	m := New(ch, r, Options{})

	drain(t, m.Tap(audiotest.NewStream(constant(256, 0.1))))
	require.Len(t, r.bars, 1)
	assert.Equal(t, 60, len(r.bars[0])+1+len(r.labels[0]))
	assert.True(t, strings.HasPrefix(r.labels[0], "dB: "))
}

func TestDisplayAutoDisablesOnce(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	ch := control.New(true)
	r := &recordingRenderer{}
	obs := &levels{}
	m := New(ch, r, Options{DisplayFor: time.Second, Start: start, Now: func() time.Time { return now }, Observer: obs})

	stream := audiotest.NewStream(constant(64, 0.5), constant(64, 0.5), constant(64, 0.5), constant(64, 0.5))
	stream.OnNext = func(i int, _ audio.Chunk) {
		now = start.Add(time.Duration(i) * 600 * time.Millisecond)
		if i == 3 {
			ch.Display.Set(true) // re-enabled by the user
		}
	}
	drain(t, m.Tap(stream))

	assert.Equal(t, []string{DisabledMessage}, r.messages)
	assert.Len(t, r.bars, 3, "chunks 0 and 1 before the bound, chunk 3 after the user re-enabled")
	assert.True(t, ch.Display.Get(), "the timer never fires twice")
	assert.Equal(t, 4, obs.n, "levels are observed even while the display is off")
}

func TestTapPropagatesErrorsAndClose(t *testing.T) {
	ch := control.New(true)
	src := audiotest.NewStream(constant(64, 0.1))
	src.Err = audio.ErrDeviceUnavailable
	s := New(ch, Discard{}, Options{}).Tap(src)

	_, err := s.Next(context.Background())
	require.NoError(t, err)
	_, err = s.Next(context.Background())
	assert.ErrorIs(t, err, audio.ErrDeviceUnavailable)

	require.NoError(t, s.Close())
	assert.True(t, src.Closed())
}

func TestTerminalRenderer(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.Render("[**  ]", "dB: -10.00")
	term.Message("two\nlines")

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "two\r\nlines\r\n"))
	first := out[:strings.Index(out, "\r\n")]
	assert.Contains(t, first, "[**  ]")
	assert.Contains(t, first, "dB: -10.00")
}

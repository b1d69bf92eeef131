// Package control holds the state shared between the recording pipeline and
// the interactive input loop.
//
// Every field is synchronized on its own and has exactly one writer role.
// A logical update is always a single atomic operation (Store, Swap or
// CompareAndSwap); never read a field and then write it back through a second,
// separate access.
package control

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWidth is used until the terminal reports its size.
const DefaultWidth = 80

// Channel is passed to every component that reads or writes shared state.
type Channel struct {
	Quit    *Quit
	Display *Flag
	Width   *Width
	Current *Path
}

// New returns a channel with quit unset, display set to display and the default width.
func New(display bool) *Channel {
	ch := &Channel{
		Quit:    NewQuit(),
		Display: &Flag{},
		Width:   &Width{},
		Current: &Path{},
	}
	ch.Display.Set(display)
	ch.Width.Set(DefaultWidth)
	return ch
}

// Quit is a set-once cancellation token. Once requested it never resets.
type Quit struct {
	once sync.Once
	done chan struct{}
}

func NewQuit() *Quit {
	return &Quit{done: make(chan struct{})}
}

// Request marks quit as requested. Further calls are no-ops.
func (q *Quit) Request() {
	q.once.Do(func() { close(q.done) })
}

// Requested is the non-blocking poll.
func (q *Quit) Requested() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Done is closed once quit has been requested.
func (q *Quit) Done() <-chan struct{} {
	return q.done
}

// Wait blocks until quit is requested or ctx is done.
func (q *Quit) Wait(ctx context.Context) error {
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sleep waits for d and reports true if it was cut short by a quit request or by ctx.
func (q *Quit) Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-q.done:
		return true
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

// Context derives a context from parent that is cancelled when quit is requested.
func (q *Quit) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-q.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Flag is a boolean cell.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Get() bool  { return f.v.Load() }
func (f *Flag) Set(v bool) { f.v.Store(v) }

// Toggle flips the flag in one step and returns the new value.
func (f *Flag) Toggle() bool {
	for {
		old := f.v.Load()
		if f.v.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Disable clears the flag and reports whether it was set before.
func (f *Flag) Disable() bool {
	return f.v.Swap(false)
}

// Width is the terminal width in columns.
type Width struct {
	v atomic.Uint32
}

func (w *Width) Get() int { return int(w.v.Load()) }

func (w *Width) Set(cols int) {
	if cols <= 0 {
		return
	}
	w.v.Store(uint32(cols))
}

// Path holds the output file currently being written, empty between segments.
type Path struct {
	v atomic.Pointer[string]
}

func (p *Path) Get() string {
	if s := p.v.Load(); s != nil {
		return *s
	}
	return ""
}

func (p *Path) Set(path string) {
	p.v.Store(&path)
}

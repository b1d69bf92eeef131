package hotkey

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

type Options struct {
	// OnRaw is told when raw mode is entered or left, so console writers can
	// switch their line endings.
	OnRaw  func(raw bool)
	Logger zerolog.Logger
}

type terminalManager struct {
	in   io.Reader
	fd   int
	tty  bool
	opts Options
	log  zerolog.Logger

	mu        sync.Mutex
	state     *term.State
	callbacks map[byte]func()
	stop      chan struct{}
	closeOnce sync.Once
}

// New puts in into raw mode and dispatches key presses to registered callbacks.
// When in is not a terminal, keys are still read but the terminal mode is left alone.
func New(in *os.File, opts Options) (Manager, error) {
	m := newManager(in, opts)
	m.fd = int(in.Fd())
	m.tty = term.IsTerminal(m.fd)
	if m.tty {
		if err := m.enterRaw(); err != nil {
			return nil, err
		}
	}
	go m.readLoop()
	return m, nil
}

func newManager(in io.Reader, opts Options) *terminalManager {
	return &terminalManager{
		in:        in,
		opts:      opts,
		log:       opts.Logger.With().Str("component", "hotkey").Logger(),
		callbacks: make(map[byte]func()),
		stop:      make(chan struct{}),
	}
}

func (m *terminalManager) Register(accel string, callback func()) error {
	key, err := ParseKey(accel)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[key] = callback
	return nil
}

func (m *terminalManager) Unregister(accel string) error {
	key, err := ParseKey(accel)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.callbacks, key)
	return nil
}

func (m *terminalManager) readLoop() {
	buf := make([]byte, 64)
	for {
		n, err := m.in.Read(buf)
		for _, b := range buf[:n] {
			m.dispatch(b)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !m.closed() {
				m.log.Warn().Err(err).Msg("Stopped reading keys")
			}
			return
		}
		if m.closed() {
			return
		}
	}
}

func (m *terminalManager) dispatch(key byte) {
	m.mu.Lock()
	cb := m.callbacks[key]
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (m *terminalManager) closed() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

func (m *terminalManager) enterRaw() error {
	state, err := term.MakeRaw(m.fd)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
	if m.opts.OnRaw != nil {
		m.opts.OnRaw(true)
	}
	return nil
}

func (m *terminalManager) restore() error {
	m.mu.Lock()
	state := m.state
	m.state = nil
	m.mu.Unlock()
	if state == nil {
		return nil
	}
	if m.opts.OnRaw != nil {
		m.opts.OnRaw(false)
	}
	return term.Restore(m.fd, state)
}

func (m *terminalManager) Suspend() error {
	if !m.tty {
		return nil
	}
	if err := m.restore(); err != nil {
		return err
	}
	if err := suspendProcess(); err != nil {
		return err
	}
	return m.enterRaw()
}

// Close restores the terminal. The read loop exits on the next key or EOF.
func (m *terminalManager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.stop)
		err = m.restore()
	})
	return err
}

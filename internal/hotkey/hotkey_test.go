package hotkey

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		accel string
		want  byte
	}{
		{"q", 'q'},
		{"Q", 'Q'},
		{"space", ' '},
		{"Esc", 0x1b},
		{"ctrl+c", 0x03},
		{"Ctrl+D", 0x04},
		{"ctrl+z", 0x1a},
		{"ctrl+a", 0x01},
	}
	for _, tt := range tests {
		t.Run(tt.accel, func(t *testing.T) {
			got, err := ParseKey(tt.accel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "alt+x", "ctrl+1", "F1"} {
		_, err := ParseKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadLoopDispatches(t *testing.T) {
	r, w := io.Pipe()
	m := newManager(r, Options{Logger: zerolog.Nop()})

	var mu sync.Mutex
	var got []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, name)
		}
	}
	require.NoError(t, m.Register("space", record("toggle")))
	require.NoError(t, m.Register("q", record("quit")))
	require.NoError(t, m.Register("x", record("never")))
	require.NoError(t, m.Unregister("x"))

	done := make(chan struct{})
	go func() {
		m.readLoop()
		close(done)
	}()

	_, err := io.Copy(w, strings.NewReader(" zxq"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit on EOF")
	}
	assert.Equal(t, []string{"toggle", "quit"}, got)
}

func TestCloseWithoutTerminal(t *testing.T) {
	m := newManager(strings.NewReader(""), Options{})
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.NoError(t, m.Suspend())
}

package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuitIsMonotonic(t *testing.T) {
	q := NewQuit()
	assert.False(t, q.Requested())

	q.Request()
	q.Request()
	assert.True(t, q.Requested())

	select {
	case <-q.Done():
	default:
		t.Fatal("Done should be closed after Request")
	}
}

func TestQuitSleepInterrupted(t *testing.T) {
	q := NewQuit()
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Request()
	}()

	start := time.Now()
	assert.True(t, q.Sleep(context.Background(), 30*time.Second))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestQuitSleepElapses(t *testing.T) {
	q := NewQuit()
	assert.False(t, q.Sleep(context.Background(), 5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, q.Sleep(ctx, time.Minute))
}

func TestQuitWaitAndContext(t *testing.T) {
	q := NewQuit()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)

	derived, stop := q.Context(context.Background())
	defer stop()
	q.Request()

	require.NoError(t, q.Wait(context.Background()))
	select {
	case <-derived.Done():
	case <-time.After(time.Second):
		t.Fatal("derived context was not cancelled by quit")
	}
}

func TestFlagToggleConcurrent(t *testing.T) {
	var f Flag
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Toggle()
		}()
	}
	wg.Wait()
	assert.False(t, f.Get(), "an even number of toggles should restore the initial value")

	f.Set(true)
	assert.True(t, f.Disable())
	assert.False(t, f.Disable())
}

func TestChannelDefaults(t *testing.T) {
	ch := New(true)
	assert.True(t, ch.Display.Get())
	assert.Equal(t, DefaultWidth, ch.Width.Get())
	assert.Equal(t, "", ch.Current.Get())

	ch.Width.Set(0)
	assert.Equal(t, DefaultWidth, ch.Width.Get())
	ch.Width.Set(132)
	assert.Equal(t, 132, ch.Width.Get())

	ch.Current.Set("/tmp/a.wav")
	assert.Equal(t, "/tmp/a.wav", ch.Current.Get())
}

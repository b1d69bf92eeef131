package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/meter"
	"github.com/petems/akasha/internal/segment"
)

var (
	_ audio.Observer      = (*Metrics)(nil)
	_ meter.LevelObserver = (*Metrics)(nil)
	_ segment.Observer    = (*Metrics)(nil)
)

// value returns the sample of the named family whose labels match, or fails.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestObserverEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ChunkCaptured()
	m.ChunkCaptured()
	m.ChunkDropped()
	m.Level(-12.5)
	m.SegmentStarted("wav")
	m.FramesWritten(441)
	m.FramesWritten(441)
	m.SegmentFinalized("wav", 882, 20*time.Millisecond)
	m.SegmentFailed("device")
	m.BackoffStarted(30 * time.Second)

	assert.Equal(t, 2.0, value(t, reg, "akasha_chunks_captured_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "akasha_chunks_dropped_total", nil))
	assert.Equal(t, -12.5, value(t, reg, "akasha_level_db", nil))
	assert.Equal(t, 882.0, value(t, reg, "akasha_frames_written_total", nil))
	assert.Equal(t, 1.0, value(t, reg, "akasha_segments_started_total", map[string]string{"codec": "wav"}))
	assert.Equal(t, 1.0, value(t, reg, "akasha_segments_finalized_total", map[string]string{"codec": "wav"}))
	assert.Equal(t, 1.0, value(t, reg, "akasha_segment_duration_seconds", nil))
	assert.Equal(t, 1.0, value(t, reg, "akasha_segment_failures_total", map[string]string{"class": "device"}))
	assert.Equal(t, 1.0, value(t, reg, "akasha_backoffs_total", nil))
}

func TestServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ChunkCaptured()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, reg, zerolog.Nop()) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, string(body), "akasha_chunks_captured_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

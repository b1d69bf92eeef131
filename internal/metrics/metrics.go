// Package metrics exposes recorder counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics contains all Prometheus metrics for the recorder.
// It satisfies audio.Observer, meter.LevelObserver and segment.Observer.
type Metrics struct {
	// Capture metrics
	ChunksCaptured prometheus.Counter
	ChunksDropped  prometheus.Counter
	LastLevel      prometheus.Gauge

	// Segment metrics
	Frames            prometheus.Counter
	SegmentsStarted   *prometheus.CounterVec
	SegmentsFinalized *prometheus.CounterVec
	SegmentDuration   prometheus.Histogram
	SegmentFailures   *prometheus.CounterVec
	Backoffs          prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "akasha_chunks_captured_total",
			Help: "Total number of chunks delivered by the capture device",
		}),
		ChunksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "akasha_chunks_dropped_total",
			Help: "Total number of chunks discarded because the hand-off queue was full",
		}),
		LastLevel: f.NewGauge(prometheus.GaugeOpts{
			Name: "akasha_level_db",
			Help: "Most recent metered input level in dB",
		}),

		Frames: f.NewCounter(prometheus.CounterOpts{
			Name: "akasha_frames_written_total",
			Help: "Total number of frames handed to codec sinks",
		}),
		SegmentsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "akasha_segments_started_total",
			Help: "Total number of segment files opened",
		}, []string{"codec"}),
		SegmentsFinalized: f.NewCounterVec(prometheus.CounterOpts{
			Name: "akasha_segments_finalized_total",
			Help: "Total number of segment files finalized",
		}, []string{"codec"}),
		SegmentDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "akasha_segment_duration_seconds",
			Help:    "Wall-clock length of finalized segments",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		}),
		SegmentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "akasha_segment_failures_total",
			Help: "Total number of failed segment attempts by error class",
		}, []string{"class"}),
		Backoffs: f.NewCounter(prometheus.CounterOpts{
			Name: "akasha_backoffs_total",
			Help: "Total number of backoff waits entered",
		}),
	}
}

func (m *Metrics) ChunkCaptured() { m.ChunksCaptured.Inc() }
func (m *Metrics) ChunkDropped()  { m.ChunksDropped.Inc() }

func (m *Metrics) Level(db float64) { m.LastLevel.Set(db) }

func (m *Metrics) SegmentStarted(kind string) {
	m.SegmentsStarted.WithLabelValues(kind).Inc()
}

func (m *Metrics) SegmentFinalized(kind string, _ int64, elapsed time.Duration) {
	m.SegmentsFinalized.WithLabelValues(kind).Inc()
	m.SegmentDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) SegmentFailed(class string) {
	m.SegmentFailures.WithLabelValues(class).Inc()
}

func (m *Metrics) BackoffStarted(time.Duration) { m.Backoffs.Inc() }

func (m *Metrics) FramesWritten(n int) { m.Frames.Add(float64(n)) }

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/petems/akasha/internal/app"
	"github.com/petems/akasha/internal/config"
	"github.com/petems/akasha/internal/hotkey"
	"github.com/petems/akasha/internal/inject"
	"github.com/petems/akasha/internal/logging"
	"github.com/petems/akasha/internal/meter"
	"github.com/petems/akasha/internal/metrics"
	"github.com/petems/akasha/internal/permissions"
)

type recordFlags struct {
	format          string
	dir             string
	prefix          string
	timeFormat      string
	duration        time.Duration
	display         bool
	displayDuration time.Duration
	displayEvery    int
	interactive     bool
	device          string
	maxSegments     int
	backoff         time.Duration
	bitrate         int
	logLevel        string
	logFile         string
	metricsAddr     string
}

func NewRecordCmd(deps *Dependencies, configPath *string) *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record segments until quit (the default command)",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = func(c *cobra.Command, args []string) error {
		cfg, err := loadConfig(*configPath, c, &f)
		if err != nil {
			return err
		}
		return runRecord(c.Context(), deps, cfg, f.logFile)
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.format, "format", "f", "", "output format: wav or opus")
	fs.StringVarP(&f.dir, "dir", "o", "", "output directory")
	fs.StringVar(&f.prefix, "prefix", "", "file name prefix")
	fs.StringVar(&f.timeFormat, "time-format", "", "Go time layout used in file names")
	fs.DurationVarP(&f.duration, "duration", "t", 0, "segment length (1s to 1h)")
	fs.BoolVar(&f.display, "display", true, "show the level meter")
	fs.DurationVar(&f.displayDuration, "display-duration", 0, "turn the meter off after this long")
	fs.IntVar(&f.displayEvery, "display-every", 0, "draw the meter on every Nth chunk")
	fs.BoolVar(&f.interactive, "interactive", true, "read single key presses from the terminal")
	fs.StringVarP(&f.device, "device", "d", "", "input device id or name")
	fs.IntVarP(&f.maxSegments, "max-segments", "n", 0, "stop after this many segments (0 = unlimited)")
	fs.DurationVar(&f.backoff, "backoff", 0, "pause before retrying a failed segment")
	fs.IntVar(&f.bitrate, "bitrate", 0, "opus target bitrate in bits per second")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&f.logFile, "log-file", "", `log file path ("-" disables file logging)`)
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

// loadConfig layers defaults, the config file, AKASHA_* variables and explicitly set flags.
func loadConfig(path string, cmd *cobra.Command, f *recordFlags) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.Format = f.format
	}
	if changed("dir") {
		cfg.Dir = f.dir
	}
	if changed("prefix") {
		cfg.Prefix = f.prefix
	}
	if changed("time-format") {
		cfg.TimeFormat = f.timeFormat
	}
	if changed("duration") {
		cfg.SegmentDuration = f.duration
	}
	if changed("display") {
		cfg.Display = f.display
	}
	if changed("display-duration") {
		cfg.DisplayDuration = f.displayDuration
	}
	if changed("display-every") {
		cfg.DisplayEvery = f.displayEvery
	}
	if changed("interactive") {
		cfg.Interactive = f.interactive
	}
	if changed("device") {
		cfg.Audio.DeviceID = f.device
	}
	if changed("max-segments") {
		cfg.MaxSegments = f.maxSegments
	}
	if changed("backoff") {
		cfg.Backoff = f.backoff
	}
	if changed("bitrate") {
		cfg.Codec.Bitrate = f.bitrate
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runRecord(ctx context.Context, deps *Dependencies, cfg *config.Config, logFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	console := logging.NewRawWriter(deps.Stderr)
	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, Console: console, File: logFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	// macOS requires explicit microphone approval before capture works
	if err := permissions.EnsurePermissions(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	capture, err := deps.NewCapture(cfg.Audio, m)
	if err != nil {
		return fmt.Errorf("initializing audio: %w", err)
	}
	defer capture.Close()

	var keys hotkey.Manager
	if cfg.Interactive && term.IsTerminal(int(deps.Stdin.Fd())) {
		keys, err = hotkey.New(deps.Stdin, hotkey.Options{OnRaw: console.SetRaw, Logger: log})
		if err != nil {
			return fmt.Errorf("initializing terminal keys: %w", err)
		}
		defer keys.Close()
	}

	application, err := app.New(app.Config{
		Audio:    capture,
		Injector: inject.New(),
		Hotkeys:  keys,
		Renderer: meter.NewTerminal(deps.Stdout),
		Metrics:  m,
		Config:   cfg,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	if out, ok := deps.Stdout.(*os.File); ok && term.IsTerminal(int(out.Fd())) {
		hotkey.WatchResize(ctx, int(out.Fd()), application.Control().Width.Set)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)
	go application.WatchSignals(ctx, sigs)

	if cfg.MetricsAddr != "" {
		go serveMetrics(ctx, cfg.MetricsAddr, reg, log)
	}

	return application.Run(ctx)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log zerolog.Logger) {
	if err := metrics.Serve(ctx, addr, reg, log); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}

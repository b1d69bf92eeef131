// Package app wires capture, metering, encoding and the interactive controls
// into one recording session.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/codec"
	"github.com/petems/akasha/internal/config"
	"github.com/petems/akasha/internal/control"
	"github.com/petems/akasha/internal/hotkey"
	"github.com/petems/akasha/internal/inject"
	"github.com/petems/akasha/internal/meter"
	"github.com/petems/akasha/internal/metrics"
	"github.com/petems/akasha/internal/paths"
	"github.com/petems/akasha/internal/segment"
)

// Key bindings, in the accelerator syntax understood by hotkey.ParseKey.
var (
	ToggleKeys  = []string{"space", "d"}
	QuitKeys    = []string{"q", "esc", "ctrl+c", "ctrl+d"}
	SuspendKeys = []string{"ctrl+z"}
	CopyKeys    = []string{"y"}
)

type Config struct {
	Audio    audio.Capture
	Injector inject.Injector  // Optional - can be nil
	Hotkeys  hotkey.Manager   // Optional - nil when not interactive
	Renderer meter.Renderer   // Optional - defaults to meter.Discard
	Metrics  *metrics.Metrics // Optional - can be nil
	Control  *control.Channel // Optional - created from Config.Display when nil
	Source   segment.Source   // Optional - defaults to a paths.Generator over Config
	Config   *config.Config
	Logger   zerolog.Logger
	Now      func() time.Time
}

type App struct {
	audio  audio.Capture
	inj    inject.Injector
	keys   hotkey.Manager
	cfg    *config.Config
	log    zerolog.Logger
	ch     *control.Channel
	source segment.Source
	runID  string

	ctrl *segment.Controller

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func New(cfg Config) (*App, error) {
	if cfg.Config == nil {
		return nil, errors.New("app: config is required")
	}
	if cfg.Audio == nil {
		return nil, errors.New("app: audio capture is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Renderer == nil {
		cfg.Renderer = meter.Discard{}
	}
	if cfg.Control == nil {
		cfg.Control = control.New(cfg.Config.Display)
	}

	kind := codec.Kind(cfg.Config.Format)
	c, err := codec.New(kind, codec.Options{Bitrate: cfg.Config.Codec.Bitrate})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrUnsupportedConfig, err)
	}

	if cfg.Source == nil {
		cfg.Source = &paths.Generator{
			Dir:        cfg.Config.Dir,
			Prefix:     cfg.Config.Prefix,
			TimeFormat: cfg.Config.TimeFormat,
			Duration:   cfg.Config.SegmentDuration,
			Codec:      kind,
			Ext:        c.Extension(),
			Max:        cfg.Config.MaxSegments,
			Now:        cfg.Now,
		}
	}

	runID := uuid.NewString()
	log := cfg.Logger.With().Str("run", runID).Logger()

	// Typed-nil metrics must not reach the observer interfaces.
	var levels meter.LevelObserver
	var segments segment.Observer
	if cfg.Metrics != nil {
		levels = cfg.Metrics
		segments = cfg.Metrics
	}

	m := meter.New(cfg.Control, cfg.Renderer, meter.Options{
		Every:      cfg.Config.DisplayEvery,
		DisplayFor: cfg.Config.DisplayDuration,
		Now:        cfg.Now,
		Observer:   levels,
	})

	a := &App{
		audio:  cfg.Audio,
		inj:    cfg.Injector,
		keys:   cfg.Hotkeys,
		cfg:    cfg.Config,
		log:    log,
		ch:     cfg.Control,
		source: cfg.Source,
		runID:  runID,
		done:   make(chan struct{}),
	}
	a.ctrl = segment.New(segment.Config{
		Capture:  cfg.Audio,
		Codecs:   []codec.Codec{c},
		Meter:    m,
		Control:  cfg.Control,
		DeviceID: cfg.Config.Audio.DeviceID,
		Backoff:  cfg.Config.Backoff,
		Logger:   log,
		Observer: segments,
		Now:      cfg.Now,
	})

	if a.keys != nil {
		if err := a.registerKeys(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) registerKeys() error {
	bind := func(keys []string, fn func()) error {
		for _, k := range keys {
			if err := a.keys.Register(k, fn); err != nil {
				return fmt.Errorf("registering key %q: %w", k, err)
			}
		}
		return nil
	}
	if err := bind(ToggleKeys, a.ToggleDisplay); err != nil {
		return err
	}
	if err := bind(QuitKeys, a.Quit); err != nil {
		return err
	}
	if err := bind(SuspendKeys, a.Suspend); err != nil {
		return err
	}
	return bind(CopyKeys, a.CopyPath)
}

// Run records until the path source is exhausted, quit is requested or ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("app is already running")
	}
	a.running = true
	a.mu.Unlock()
	defer close(a.done)

	a.log.Info().
		Str("format", a.cfg.Format).
		Str("dir", a.cfg.Dir).
		Dur("segment", a.cfg.SegmentDuration).
		Msg("Recording started")

	err := a.ctrl.Run(ctx, a.source)

	a.log.Info().Msg("Recording stopped")
	return err
}

// Shutdown requests quit and waits for the open segment to be finalized.
func (a *App) Shutdown(ctx context.Context) error {
	a.Quit()

	a.mu.Lock()
	running := a.running
	a.mu.Unlock()
	if !running {
		return nil
	}

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Key actions

func (a *App) ToggleDisplay() {
	on := a.ch.Display.Toggle()
	a.log.Debug().Bool("display", on).Msg("Display toggled")
}

func (a *App) Quit() {
	if !a.ch.Quit.Requested() {
		a.log.Info().Msg("Quit requested")
	}
	a.ch.Quit.Request()
}

func (a *App) Suspend() {
	if a.keys == nil {
		return
	}
	if err := a.keys.Suspend(); err != nil {
		a.log.Error().Err(err).Msg("Suspend failed")
	}
}

func (a *App) CopyPath() {
	if a.inj == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	path := a.ch.Current.Get()
	if err := a.inj.Copy(ctx, path); err != nil {
		a.log.Warn().Err(err).Msg("Copy path failed")
		return
	}
	a.log.Info().Str("path", path).Msg("Copied path")
}

// HandleSignal applies a process signal to the session.
func (a *App) HandleSignal(sig os.Signal) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		a.Quit()
	case syscall.SIGHUP:
		if a.ch.Display.Disable() {
			a.log.Info().Msg("Display turned off")
		}
	}
}

// WatchSignals applies signals from sigs until ctx is done.
func (a *App) WatchSignals(ctx context.Context, sigs <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			a.HandleSignal(sig)
		}
	}
}

func (a *App) Control() *control.Channel { return a.ch }

func (a *App) RunID() string { return a.runID }

func (a *App) State() segment.State { return a.ctrl.State() }

func (a *App) ListDevices() ([]audio.AudioDevice, error) {
	return a.audio.ListDevices()
}

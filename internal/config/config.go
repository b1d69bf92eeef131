package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	MinSegmentDuration = time.Second
	MaxSegmentDuration = time.Hour

	FormatWAV  = "wav"
	FormatOpus = "opus"
)

type Config struct {
	Format          string
	Dir             string
	Prefix          string
	TimeFormat      string        // Go reference-time layout for the basename timestamp
	SegmentDuration time.Duration // clamped to [1s, 1h]
	DisplayDuration time.Duration // 0 leaves the indicator on; otherwise clamped like SegmentDuration
	Display         bool
	DisplayEvery    int // render every Nth chunk, 0 renders all
	Interactive     bool
	MaxSegments     int // 0 records until quit
	Backoff         time.Duration
	LogLevel        string
	MetricsAddr     string
	Audio           AudioConfig
	Codec           CodecConfig
}

type AudioConfig struct {
	DeviceID        string
	QueueDepth      int
	StallTimeout    time.Duration
	FramesPerBuffer int
}

type CodecConfig struct {
	Bitrate int // bits per second, compressed codecs only
}

// fileConfig mirrors Config for the on-disk formats. Zero values leave defaults alone.
type fileConfig struct {
	Format          string `json:"format" toml:"format" yaml:"format"`
	Dir             string `json:"dir" toml:"dir" yaml:"dir"`
	Prefix          string `json:"prefix" toml:"prefix" yaml:"prefix"`
	TimeFormat      string `json:"time_format" toml:"time_format" yaml:"time_format"`
	SegmentDuration string `json:"segment_duration" toml:"segment_duration" yaml:"segment_duration"`
	DisplayDuration string `json:"display_duration" toml:"display_duration" yaml:"display_duration"`
	Display         *bool  `json:"display" toml:"display" yaml:"display"`
	DisplayEvery    int    `json:"display_every" toml:"display_every" yaml:"display_every"`
	Interactive     *bool  `json:"interactive" toml:"interactive" yaml:"interactive"`
	MaxSegments     int    `json:"max_segments" toml:"max_segments" yaml:"max_segments"`
	Backoff         string `json:"backoff" toml:"backoff" yaml:"backoff"`
	LogLevel        string `json:"log_level" toml:"log_level" yaml:"log_level"`
	MetricsAddr     string `json:"metrics_addr" toml:"metrics_addr" yaml:"metrics_addr"`
	Device          string `json:"device" toml:"device" yaml:"device"`
	QueueDepth      int    `json:"queue_depth" toml:"queue_depth" yaml:"queue_depth"`
	StallTimeout    string `json:"stall_timeout" toml:"stall_timeout" yaml:"stall_timeout"`
	FramesPerBuffer int    `json:"frames_per_buffer" toml:"frames_per_buffer" yaml:"frames_per_buffer"`
	Bitrate         int    `json:"bitrate" toml:"bitrate" yaml:"bitrate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:          FormatWAV,
		Dir:             defaultRecordingsDir(),
		Prefix:          "akasha",
		TimeFormat:      "2006-01-02__15_04_05__Mon_Jan__-0700",
		SegmentDuration: 60 * time.Second,
		Display:         false,
		DisplayEvery:    0,
		Interactive:     true,
		Backoff:         30 * time.Second,
		LogLevel:        "info",
		Audio: AudioConfig{
			DeviceID:        "",
			QueueDepth:      64,
			StallTimeout:    5 * time.Second,
			FramesPerBuffer: 1024,
		},
		Codec: CodecConfig{
			Bitrate: 128_000,
		},
	}
}

// Load reads the config from path, or from the default location when path is
// empty, then applies AKASHA_* environment overrides. A missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = configPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(path, data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case explicit || !os.IsNotExist(err):
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	var fc fileConfig
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".json":
		err = json.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return c.apply(fc)
}

func (c *Config) apply(fc fileConfig) error {
	setString(&c.Format, fc.Format)
	setString(&c.Dir, expandTilde(fc.Dir))
	setString(&c.Prefix, fc.Prefix)
	setString(&c.TimeFormat, fc.TimeFormat)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.MetricsAddr, fc.MetricsAddr)
	setString(&c.Audio.DeviceID, fc.Device)
	setInt(&c.DisplayEvery, fc.DisplayEvery)
	setInt(&c.MaxSegments, fc.MaxSegments)
	setInt(&c.Audio.QueueDepth, fc.QueueDepth)
	setInt(&c.Audio.FramesPerBuffer, fc.FramesPerBuffer)
	setInt(&c.Codec.Bitrate, fc.Bitrate)
	if fc.Display != nil {
		c.Display = *fc.Display
	}
	if fc.Interactive != nil {
		c.Interactive = *fc.Interactive
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"segment_duration", fc.SegmentDuration, &c.SegmentDuration},
		{"display_duration", fc.DisplayDuration, &c.DisplayDuration},
		{"backoff", fc.Backoff, &c.Backoff},
		{"stall_timeout", fc.StallTimeout, &c.Audio.StallTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Format, os.Getenv("AKASHA_FORMAT"))
	setString(&cfg.Dir, expandTilde(os.Getenv("AKASHA_DIR")))
	setString(&cfg.Audio.DeviceID, os.Getenv("AKASHA_DEVICE"))
	setString(&cfg.LogLevel, os.Getenv("AKASHA_LOG_LEVEL"))
	setString(&cfg.MetricsAddr, os.Getenv("AKASHA_METRICS_ADDR"))
}

// Validate normalizes the config in place: durations are clamped into range,
// anything that cannot be clamped is rejected.
func (c *Config) Validate() error {
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	if c.Format == "ogg" {
		c.Format = FormatOpus
	}
	if c.Format != FormatWAV && c.Format != FormatOpus {
		return fmt.Errorf("unknown format %q (want %s or %s)", c.Format, FormatWAV, FormatOpus)
	}
	if c.Dir == "" {
		return fmt.Errorf("output directory must be set")
	}
	if c.TimeFormat == "" {
		return fmt.Errorf("time format must be set")
	}

	c.SegmentDuration = clamp(c.SegmentDuration)
	if c.DisplayDuration != 0 {
		c.DisplayDuration = clamp(c.DisplayDuration)
	}

	if c.DisplayEvery < 0 {
		return fmt.Errorf("display stride must not be negative, got %d", c.DisplayEvery)
	}
	if c.MaxSegments < 0 {
		return fmt.Errorf("max segments must not be negative, got %d", c.MaxSegments)
	}
	if c.Backoff <= 0 {
		return fmt.Errorf("backoff must be positive, got %s", c.Backoff)
	}
	if c.Audio.QueueDepth <= 0 {
		return fmt.Errorf("queue depth must be positive, got %d", c.Audio.QueueDepth)
	}
	if c.Audio.StallTimeout < 0 {
		return fmt.Errorf("stall timeout must not be negative, got %s", c.Audio.StallTimeout)
	}
	if c.Codec.Bitrate <= 0 {
		return fmt.Errorf("bitrate must be positive, got %d", c.Codec.Bitrate)
	}
	return nil
}

func clamp(d time.Duration) time.Duration {
	if d < MinSegmentDuration {
		return MinSegmentDuration
	}
	if d > MaxSegmentDuration {
		return MaxSegmentDuration
	}
	return d
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "akasha", "config.toml")
}

func defaultRecordingsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "recordings")
	}
	return filepath.Join(".", "recordings")
}

package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiatePrefersRequestedRate(t *testing.T) {
	caps := deviceCaps{Name: "mic", MaxInputChannels: 1, DefaultSampleRate: 48000}
	cfg, err := negotiate(caps, 44100, func(StreamConfig) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, StreamConfig{SampleRate: 44100, Channels: 1}, cfg)
}

func TestNegotiateFallsBackToDeviceDefault(t *testing.T) {
	caps := deviceCaps{Name: "usb", MaxInputChannels: 8, DefaultSampleRate: 96000}
	cfg, err := negotiate(caps, 44100, func(c StreamConfig) bool { return c.SampleRate == 96000 })
	require.NoError(t, err)
	assert.Equal(t, StreamConfig{SampleRate: 96000, Channels: 2}, cfg)
}

func TestNegotiateFailures(t *testing.T) {
	_, err := negotiate(deviceCaps{Name: "out-only"}, 44100, func(StreamConfig) bool { return true })
	assert.ErrorIs(t, err, ErrUnsupportedConfig)

	caps := deviceCaps{Name: "mic", MaxInputChannels: 1, DefaultSampleRate: 44100}
	_, err = negotiate(caps, 44100, func(StreamConfig) bool { return false })
	assert.ErrorIs(t, err, ErrUnsupportedConfig)
}

func TestStreamConfig(t *testing.T) {
	cfg := StreamConfig{SampleRate: 44100, Channels: 2}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Millisecond, cfg.Duration(make(Chunk, 882)))
	assert.Equal(t, "44100Hz/2ch/f32", cfg.String())

	assert.ErrorIs(t, StreamConfig{SampleRate: 0, Channels: 1}.Validate(), ErrUnsupportedConfig)
	assert.ErrorIs(t, StreamConfig{SampleRate: 8000}.Validate(), ErrUnsupportedConfig)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "none", Classify(nil))
	assert.Equal(t, "device", Classify(ErrDeviceUnavailable))
	assert.Equal(t, "config", Classify(ErrUnsupportedConfig))
	assert.Equal(t, "encoder", Classify(ErrEncoderInit))
	assert.Equal(t, "io", Classify(ErrIO))
	assert.Equal(t, "unknown", Classify(assert.AnError))
}

package audio

import "fmt"

// DefaultSampleRate is requested when the codec has no preference.
const DefaultSampleRate = 44100

// maxChannels caps the channel count requested from multi-channel interfaces.
const maxChannels = 2

type deviceCaps struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
}

// negotiate chooses a stream config for a device: the preferred rate if the
// device accepts it, otherwise the device's own default rate.
func negotiate(caps deviceCaps, preferred int, supported func(StreamConfig) bool) (StreamConfig, error) {
	if caps.MaxInputChannels <= 0 {
		return StreamConfig{}, fmt.Errorf("%w: %q has no input channels", ErrUnsupportedConfig, caps.Name)
	}
	channels := caps.MaxInputChannels
	if channels > maxChannels {
		channels = maxChannels
	}
	if preferred <= 0 {
		preferred = DefaultSampleRate
	}

	want := StreamConfig{SampleRate: preferred, Channels: channels}
	if supported(want) {
		return want, nil
	}

	fallback := StreamConfig{SampleRate: int(caps.DefaultSampleRate), Channels: channels}
	if fallback.SampleRate > 0 && fallback != want && supported(fallback) {
		return fallback, nil
	}

	return StreamConfig{}, fmt.Errorf("%w: %q supports neither %d Hz nor its default %.0f Hz",
		ErrUnsupportedConfig, caps.Name, preferred, caps.DefaultSampleRate)
}

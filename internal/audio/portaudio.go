package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/akasha/internal/config"
)

type portAudioCapture struct {
	cfg      config.AudioConfig
	observer Observer
}

// New creates a new PortAudio-based audio capture
func New(cfg config.AudioConfig, observer Observer) (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioCapture{cfg: cfg, observer: observer}, nil
}

func (p *portAudioCapture) findDevice(deviceID string) (*portaudio.DeviceInfo, error) {
	if deviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: no default input device: %v", ErrDeviceUnavailable, err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to enumerate devices: %v", ErrDeviceUnavailable, err)
	}
	for _, d := range devices {
		if d.Name == deviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: device not found: %s", ErrDeviceUnavailable, deviceID)
}

func (p *portAudioCapture) params(device *portaudio.DeviceInfo, cfg StreamConfig) portaudio.StreamParameters {
	return portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: cfg.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(cfg.SampleRate),
		FramesPerBuffer: p.cfg.FramesPerBuffer,
	}
}

func (p *portAudioCapture) Negotiate(deviceID string, sampleRate int) (StreamConfig, error) {
	device, err := p.findDevice(deviceID)
	if err != nil {
		return StreamConfig{}, err
	}

	caps := deviceCaps{
		Name:              device.Name,
		MaxInputChannels:  device.MaxInputChannels,
		DefaultSampleRate: device.DefaultSampleRate,
	}
	return negotiate(caps, sampleRate, func(cfg StreamConfig) bool {
		buf := make([]float32, cfg.Channels)
		return portaudio.IsFormatSupported(p.params(device, cfg), buf) == nil
	})
}

func (p *portAudioCapture) Open(cfg StreamConfig, deviceID string) (Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	device, err := p.findDevice(deviceID)
	if err != nil {
		return nil, err
	}

	queue := NewQueue(p.cfg.QueueDepth, p.observer)

	// Runs on the PortAudio real-time thread: copy, hand off, never block.
	callback := func(in []float32) {
		defer func() { _ = recover() }()
		chunk := make(Chunk, len(in))
		copy(chunk, in)
		queue.Push(chunk)
	}

	stream, err := portaudio.OpenStream(p.params(device, cfg), callback)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open audio stream on %q at %s: %v",
			ErrUnsupportedConfig, device.Name, cfg, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: failed to start audio stream: %v", ErrDeviceUnavailable, err)
	}

	return &portAudioStream{
		stream: stream,
		queue:  queue,
		stall:  p.cfg.StallTimeout,
	}, nil
}

func (p *portAudioCapture) ListDevices() ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:                d.Name,
				Name:              d.Name,
				Default:           d == defaultDevice,
				MaxInputChannels:  d.MaxInputChannels,
				DefaultSampleRate: d.DefaultSampleRate,
			})
		}
	}

	return result, nil
}

func (p *portAudioCapture) Close() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream *portaudio.Stream
	queue  *Queue
	stall  time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (s *portAudioStream) Next(ctx context.Context) (Chunk, error) {
	return s.queue.Pop(ctx, s.stall)
}

// Close stops the callback and releases the device. Safe to call more than once.
func (s *portAudioStream) Close() error {
	s.closeOnce.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.closeErr = fmt.Errorf("failed to stop audio stream: %w", err)
		}
		if err := s.stream.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("failed to close audio stream: %w", err)
		}
	})
	return s.closeErr
}

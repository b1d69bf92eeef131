package audio

import "errors"

// Failure classes shared by capture, encoding and the segment controller.
// Everything except ErrCancelled is recoverable through a backoff retry.
var (
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrUnsupportedConfig = errors.New("unsupported stream config")
	ErrEncoderInit       = errors.New("encoder init failed")
	ErrIO                = errors.New("io error")
	ErrCancelled         = errors.New("cancelled")
)

// Classify returns a short label for err, used in log fields and metric labels.
func Classify(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrDeviceUnavailable):
		return "device"
	case errors.Is(err, ErrUnsupportedConfig):
		return "config"
	case errors.Is(err, ErrEncoderInit):
		return "encoder"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "unknown"
	}
}

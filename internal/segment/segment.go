// Package segment drives the recording loop: one output file per descriptor,
// capture → meter → codec for each, with a cancellable backoff after failures.
package segment

import (
	"fmt"
	"time"

	"github.com/petems/akasha/internal/codec"
)

// Descriptor describes one segment file to record.
type Descriptor struct {
	Path     string
	Duration time.Duration
	Codec    codec.Kind
}

// Source yields descriptors. ok is false once the source is exhausted.
type Source interface {
	Next() (d Descriptor, ok bool)
}

// Replayable is implemented by sources whose last descriptor may be retried
// after a failed attempt instead of drawing a new one.
type Replayable interface {
	Replayable() bool
}

// State of the controller.
type State int32

const (
	AwaitingPath State = iota
	Capturing
	Finalizing
	BackoffWait
	Terminated
)

func (s State) String() string {
	switch s {
	case AwaitingPath:
		return "awaiting-path"
	case Capturing:
		return "capturing"
	case Finalizing:
		return "finalizing"
	case BackoffWait:
		return "backoff"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Observer receives segment lifecycle events.
type Observer interface {
	SegmentStarted(kind string)
	SegmentFinalized(kind string, frames int64, elapsed time.Duration)
	SegmentFailed(class string)
	BackoffStarted(delay time.Duration)
	FramesWritten(n int)
}

type nopObserver struct{}

func (nopObserver) SegmentStarted(string)                         {}
func (nopObserver) SegmentFinalized(string, int64, time.Duration) {}
func (nopObserver) SegmentFailed(string)                          {}
func (nopObserver) BackoffStarted(time.Duration)                  {}
func (nopObserver) FramesWritten(int)                             {}

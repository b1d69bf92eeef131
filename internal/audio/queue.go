package audio

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Observer receives capture-side events. It is called from the device
// callback, so implementations must not block.
type Observer interface {
	ChunkCaptured()
	ChunkDropped()
}

type nopObserver struct{}

func (nopObserver) ChunkCaptured() {}
func (nopObserver) ChunkDropped()  {}

// Queue is the bounded hand-off between the real-time device callback and
// the recording goroutine. Push never blocks: when the queue is full the
// oldest pending chunk is discarded to make room for the newest one.
type Queue struct {
	ch       chan Chunk
	observer Observer
	dropped  atomic.Uint64
}

// NewQueue creates a hand-off queue holding at most depth chunks.
func NewQueue(depth int, observer Observer) *Queue {
	if depth <= 0 {
		depth = 1
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Queue{
		ch:       make(chan Chunk, depth),
		observer: observer,
	}
}

// Push hands c to the consumer and reports whether an older chunk had to be dropped.
// Safe to call from a single producer concurrently with Pop.
func (q *Queue) Push(c Chunk) bool {
	q.observer.ChunkCaptured()
	select {
	case q.ch <- c:
		return false
	default:
	}

	// Full: evict the oldest pending chunk, then retry once.
	select {
	case <-q.ch:
	default:
	}
	q.dropped.Add(1)
	q.observer.ChunkDropped()

	select {
	case q.ch <- c:
	default:
		// Consumer drained and producer refilled between the two selects; drop newest.
		q.dropped.Add(1)
		q.observer.ChunkDropped()
	}
	return true
}

// Pop waits for the next chunk. It fails with ErrCancelled when ctx is done and
// with ErrDeviceUnavailable when nothing arrives within stall (zero disables the check).
func (q *Queue) Pop(ctx context.Context, stall time.Duration) (Chunk, error) {
	var timeout <-chan time.Time
	if stall > 0 {
		timer := time.NewTimer(stall)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case c := <-q.ch:
		return c, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-timeout:
		return nil, fmt.Errorf("%w: no audio received for %s", ErrDeviceUnavailable, stall)
	}
}

// Len returns the number of chunks waiting to be consumed.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns the number of chunks discarded because the consumer fell behind.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Package paths produces the segment descriptors consumed by the recording loop.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petems/akasha/internal/codec"
	"github.com/petems/akasha/internal/segment"
)

// Generator yields dir/prefix__<timestamp> once per segment.
type Generator struct {
	Dir        string
	Prefix     string
	TimeFormat string
	Duration   time.Duration
	Codec      codec.Kind
	// Ext is used to detect collisions with files already on disk.
	Ext string
	// Max stops the generator after that many descriptors. Zero means unlimited.
	Max int
	Now func() time.Time

	mu     sync.Mutex
	issued int
}

// Next returns the descriptor for the next segment.
func (g *Generator) Next() (segment.Descriptor, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.Max > 0 && g.issued >= g.Max {
		return segment.Descriptor{}, false
	}
	g.issued++

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	base := filepath.Join(g.Dir, g.Prefix+"__"+now().Format(g.TimeFormat))
	return segment.Descriptor{
		Path:     g.unique(base),
		Duration: g.Duration,
		Codec:    g.Codec,
	}, true
}

// Issued returns how many descriptors have been handed out.
func (g *Generator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.issued
}

// Replayable is false: a retry after failure takes a fresh timestamp.
func (g *Generator) Replayable() bool { return false }

// unique appends _2, _3, ... while base already exists on disk.
func (g *Generator) unique(base string) string {
	if g.Ext == "" || !exists(codec.WithExtension(base, g.Ext)) {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !exists(codec.WithExtension(candidate, g.Ext)) {
			return candidate
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// List replays a fixed sequence of descriptors. A failed descriptor is retried.
type List struct {
	mu    sync.Mutex
	descs []segment.Descriptor
}

func NewList(descs ...segment.Descriptor) *List {
	return &List{descs: append([]segment.Descriptor(nil), descs...)}
}

func (l *List) Next() (segment.Descriptor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.descs) == 0 {
		return segment.Descriptor{}, false
	}
	d := l.descs[0]
	l.descs = l.descs[1:]
	return d, true
}

func (l *List) Replayable() bool { return true }

// Package meter computes the loudness of captured chunks and renders it as a
// one-line terminal indicator.
package meter

import (
	"fmt"
	"math"
	"strings"

	"github.com/petems/akasha/internal/audio"
)

const blockSize = 8

// Db is a loudness level in decibels relative to full scale.
type Db float64

func (d Db) String() string {
	return fmt.Sprintf("dB: %06.2f", float64(d))
}

// Energy returns the mean squared sample value of chunk, computed in two
// strided passes: per-block means over blocks of 8 samples, then the mean of
// those means taken in groups of 8. Trailing partial blocks and groups are
// ignored, so chunks shorter than 64 samples have zero energy.
func Energy(chunk audio.Chunk) float64 {
	blocks := len(chunk) / blockSize
	groups := blocks / blockSize
	if groups == 0 {
		return 0
	}

	var total float64
	for g := 0; g < groups; g++ {
		var group float64
		for b := 0; b < blockSize; b++ {
			off := (g*blockSize + b) * blockSize
			var sq float64
			for _, s := range chunk[off : off+blockSize] {
				sq += float64(s) * float64(s)
			}
			group += sq / blockSize
		}
		total += group / blockSize
	}
	return total / float64(groups)
}

// Level returns 20·log10(RMS) of chunk. Silence yields negative infinity.
func Level(chunk audio.Chunk) Db {
	return Db(20 * math.Log10(math.Sqrt(Energy(chunk))))
}

// Ratio converts a level into a power ratio 10^(dB/10) clamped to [0, 1].
func Ratio(db Db) float64 {
	if math.IsNaN(float64(db)) {
		return 0
	}
	return clamp01(math.Pow(10, float64(db)/10))
}

// SoundBar renders ratio as a bracketed bar width columns wide. The fill is
// floor((1000·ratio·inner) mod inner) stars, so the bar wraps around rather
// than saturating as the ratio grows.
func SoundBar(ratio float64, width int) string {
	inner := width - 2
	if inner <= 0 {
		return "[]"
	}
	ratio = clamp01(ratio)

	stars := int(math.Mod(1000*ratio*float64(inner), float64(inner)))
	if stars < 0 {
		stars = 0
	}
	if stars > inner {
		stars = inner
	}

	var b strings.Builder
	b.Grow(width)
	b.WriteByte('[')
	b.WriteString(strings.Repeat("*", stars))
	b.WriteString(strings.Repeat(" ", inner-stars))
	b.WriteByte(']')
	return b.String()
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

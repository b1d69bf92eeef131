package codec

import (
	"testing"

	"github.com/petems/akasha/internal/audio"
	"github.com/petems/akasha/internal/audio/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeinterleaveStereo(t *testing.T) {
	planes := Deinterleave([]float32{0, 1, 2, 3, 4, 5}, 2)
	require.Len(t, planes, 2)
	assert.Equal(t, []float32{0, 2, 4}, planes[0])
	assert.Equal(t, []float32{1, 3, 5}, planes[1])
}

func TestDeinterleaveMono(t *testing.T) {
	input := []float32{0.1, 0.2, 0.3}
	planes := Deinterleave(input, 1)
	require.Len(t, planes, 1)
	assert.Equal(t, input, planes[0])
	assert.NotSame(t, &input[0], &planes[0][0], "mono planes are copied")
}

func TestDeinterleaveDropsPartialFrame(t *testing.T) {
	planes := Deinterleave([]float32{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, []float32{1, 3}, planes[0])
	assert.Equal(t, []float32{2, 4}, planes[1])
	assert.Nil(t, Deinterleave([]float32{1}, 0))
}

func TestDeinterleaveRoundTripSine(t *testing.T) {
	cfg := audio.StreamConfig{SampleRate: 44100, Channels: 2}
	for _, chunk := range audiotest.Sine(cfg, 440, 2*44100, 1024) {
		planes := Deinterleave(chunk, cfg.Channels)
		require.Len(t, planes, 2)
		assert.Equal(t, len(planes[0]), len(planes[1]))
		assert.Equal(t, []float32(chunk), Interleave(planes))
	}
}

func TestInterleaveTruncatesToShortest(t *testing.T) {
	assert.Equal(t, []float32{1, 10, 2, 20}, Interleave([][]float32{{1, 2, 3}, {10, 20}}))
	assert.Nil(t, Interleave(nil))
}

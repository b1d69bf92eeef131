package codec

// Deinterleave splits interleaved samples into one buffer per channel: the
// sample at flat index i belongs to channel i mod channels. A trailing partial
// frame is dropped.
func Deinterleave(samples []float32, channels int) [][]float32 {
	if channels <= 0 {
		return nil
	}
	frames := len(samples) / channels
	planes := make([][]float32, channels)
	for c := range planes {
		planes[c] = make([]float32, frames)
	}
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			planes[c][f] = samples[f*channels+c]
		}
	}
	return planes
}

// Interleave is the inverse of Deinterleave. Planes are truncated to the shortest one.
func Interleave(planes [][]float32) []float32 {
	if len(planes) == 0 {
		return nil
	}
	frames := len(planes[0])
	for _, p := range planes[1:] {
		if len(p) < frames {
			frames = len(p)
		}
	}
	out := make([]float32, frames*len(planes))
	interleaveInto(out, planes, frames)
	return out
}

func interleaveInto(dst []float32, planes [][]float32, frames int) {
	channels := len(planes)
	for f := 0; f < frames; f++ {
		for c, p := range planes {
			dst[f*channels+c] = p[f]
		}
	}
}

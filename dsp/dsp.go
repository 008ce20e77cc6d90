package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

// Buffer holds planar PCM audio: one slice per channel, all of equal length.
// Samples are nominally in [-1, 1]; nothing here clamps them.
type Buffer [][]float64

// NewBuffer allocates a silent buffer.
func NewBuffer(channels, frames int) Buffer {
	b := make(Buffer, channels)
	for c := range b {
		b[c] = make([]float64, frames)
	}
	return b
}

// Channels returns the channel count.
func (b Buffer) Channels() int {
	return len(b)
}

// Frames returns the number of frames (samples per channel).
func (b Buffer) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Clone returns a deep copy.
func (b Buffer) Clone() Buffer {
	out := make(Buffer, len(b))
	for c := range b {
		out[c] = append([]float64(nil), b[c]...)
	}
	return out
}

// Resize returns a copy truncated to frames, or zero-padded at the tail up to frames.
func Resize(b Buffer, frames int) Buffer {
	out := NewBuffer(b.Channels(), frames)
	for c := range b {
		copy(out[c], b[c])
	}
	return out
}

// Tile repeats b end-to-end until it covers frames, then truncates to exactly frames.
// An empty source yields silence.
func Tile(b Buffer, frames int) Buffer {
	out := NewBuffer(b.Channels(), frames)
	n := b.Frames()
	if n == 0 {
		return out
	}
	for c := range b {
		for pos := 0; pos < frames; pos += n {
			copy(out[c][pos:], b[c])
		}
	}
	return out
}

// Repeat concatenates times copies of b.
func Repeat(b Buffer, times int) Buffer {
	if times < 0 {
		times = 0
	}
	return Tile(b, b.Frames()*times)
}

// Stereo upmixes a mono buffer by duplicating its channel. A buffer that already
// has two channels is copied unchanged; extra channels are dropped.
func Stereo(b Buffer) Buffer {
	out := NewBuffer(2, b.Frames())
	switch b.Channels() {
	case 0:
	case 1:
		copy(out[0], b[0])
		copy(out[1], b[0])
	default:
		copy(out[0], b[0])
		copy(out[1], b[1])
	}
	return out
}

// AddInto sums src into dst sample-wise over the overlapping region.
// No normalization is applied so the sum may exceed full scale.
func AddInto(dst, src Buffer) {
	for c := 0; c < len(dst) && c < len(src); c++ {
		n := len(dst[c])
		if len(src[c]) < n {
			n = len(src[c])
		}
		d, s := dst[c][:n], src[c][:n]
		for i := range d {
			d[i] += s[i]
		}
	}
}

// RMS is the root-mean-square over every sample of every channel.
func RMS(b Buffer) float64 {
	var sum float64
	var count int
	for _, ch := range b {
		for _, v := range ch {
			sum += v * v
		}
		count += len(ch)
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// Peak returns the largest absolute sample value.
func Peak(b Buffer) float64 {
	var peak float64
	for _, ch := range b {
		for _, v := range ch {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// DBToGain converts a level change in decibels to a linear amplitude factor.
func DBToGain(db float64) float64 {
	return math.Pow(10.0, db/20.0)
}

// Scale returns a copy of b multiplied by gain.
func Scale(b Buffer, gain float64) Buffer {
	out := make(Buffer, len(b))
	for c, ch := range b {
		o := make([]float64, len(ch))
		for i, v := range ch {
			o[i] = dspcore.FlushDenormals(v * gain)
		}
		out[c] = o
	}
	return out
}

// FadeOut returns a copy of b with a linear ramp from 1 to 0 over the final
// fadeFrames frames, identical on every channel. The last faded frame is exactly 0.
// fadeFrames is clamped to the buffer length.
func FadeOut(b Buffer, fadeFrames int) Buffer {
	out := b.Clone()
	n := out.Frames()
	if fadeFrames <= 0 || n == 0 {
		return out
	}
	if fadeFrames > n {
		fadeFrames = n
	}
	start := n - fadeFrames
	for i := 0; i < fadeFrames; i++ {
		g := 0.0
		if fadeFrames > 1 {
			g = 1.0 - float64(i)/float64(fadeFrames-1)
		}
		for c := range out {
			out[c][start+i] = dspcore.FlushDenormals(out[c][start+i] * g)
		}
	}
	return out
}

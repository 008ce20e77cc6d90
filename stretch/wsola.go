// Package stretch implements pitch-preserving time-stretching.
package stretch

import (
	"fmt"
	"math"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-loop/dsp"
)

const (
	DefaultWindowMs    = 40.0
	DefaultToleranceMs = 10.0
	minWindow          = 64
)

// WSOLA stretches audio with waveform-similarity overlap-add: fixed synthesis hops
// of half a Hann window, analysis frames placed at hop*factor and nudged within
// ±Tolerance to the offset best correlated with the natural continuation of the
// previous frame. Offsets are chosen on the channel average and applied to every
// channel so stereo images stay intact.
type WSOLA struct {
	WindowMs    float64
	ToleranceMs float64
}

// New returns a WSOLA stretcher with the default window and tolerance.
func New() *WSOLA {
	return &WSOLA{WindowMs: DefaultWindowMs, ToleranceMs: DefaultToleranceMs}
}

// Stretch returns b played factor times faster: the output has
// round(frames/factor) frames at the same sample rate and pitch.
func (w *WSOLA) Stretch(b dsp.Buffer, sampleRate int, factor float64) (dsp.Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if !(factor > 0) || math.IsInf(factor, 0) {
		return nil, fmt.Errorf("invalid stretch factor %g", factor)
	}
	if factor == 1 || b.Frames() == 0 {
		return b.Clone(), nil
	}

	win := w.windowFrames(sampleRate)
	hop := win / 2
	tol := int(math.Round(w.toleranceMs() / 1000.0 * float64(sampleRate)))
	frames := b.Frames()
	outFrames := int(math.Round(float64(frames) / factor))

	window := hann(win)
	guide := mixdown32(b)
	out := dsp.NewBuffer(b.Channels(), outFrames)
	norm := make([]float64, outFrames)

	prev := 0
	for k := 0; k*hop < outFrames; k++ {
		outPos := k * hop
		pos := int(math.Round(float64(outPos) * factor))
		if k > 0 && tol > 0 {
			delta, err := bestOffset(guide, prev+hop, pos, tol, win)
			if err != nil {
				return nil, err
			}
			pos += delta
		}
		for i := 0; i < win && outPos+i < outFrames; i++ {
			src := pos + i
			norm[outPos+i] += window[i]
			if src < 0 || src >= frames {
				continue
			}
			for c := range out {
				out[c][outPos+i] += b[c][src] * window[i]
			}
		}
		prev = pos
	}

	for i, n := range norm {
		if n < 1e-9 {
			continue
		}
		for c := range out {
			out[c][i] /= n
		}
	}
	return out, nil
}

func (w *WSOLA) windowFrames(sampleRate int) int {
	ms := w.WindowMs
	if ms <= 0 {
		ms = DefaultWindowMs
	}
	n := int(ms / 1000.0 * float64(sampleRate))
	if n < minWindow {
		n = minWindow
	}
	return n &^ 1
}

func (w *WSOLA) toleranceMs() float64 {
	if w.ToleranceMs < 0 {
		return 0
	}
	return w.ToleranceMs
}

// bestOffset returns the delta in [-tol, tol] maximizing the correlation between
// guide[templateStart:+win] and guide[nominal+delta:+win]. Out-of-range samples read
// as silence and nominal+delta never goes negative.
func bestOffset(guide []float32, templateStart, nominal, tol, win int) (int, error) {
	template := make([]float32, win)
	var energy float64
	for i := range template {
		template[win-1-i] = sampleAt(guide, templateStart+i)
		energy += float64(template[win-1-i]) * float64(template[win-1-i])
	}
	if energy == 0 {
		return 0, nil
	}

	lo := nominal - tol
	search := make([]float32, 2*tol+win)
	for i := range search {
		search[i] = sampleAt(guide, lo+i)
	}

	corr := make([]float32, len(search)+win-1)
	if err := algofft.ConvolveReal(corr, search, template); err != nil {
		return 0, err
	}

	best := 0
	bestScore := float32(math.Inf(-1))
	for d := 0; d <= 2*tol; d++ {
		if lo+d < 0 {
			continue
		}
		if s := corr[d+win-1]; s > bestScore {
			bestScore = s
			best = d
		}
	}
	return lo + best - nominal, nil
}

func sampleAt(x []float32, i int) float32 {
	if i < 0 || i >= len(x) {
		return 0
	}
	return x[i]
}

func mixdown32(b dsp.Buffer) []float32 {
	out := make([]float32, b.Frames())
	inv := 1.0 / float64(b.Channels())
	for i := range out {
		var sum float64
		for c := range b {
			sum += b[c][i]
		}
		out[i] = float32(sum * inv)
	}
	return out
}

// hann is the periodic Hann window; at half-window hops its copies sum to one.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

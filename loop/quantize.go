package loop

import (
	"math"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/pkg/errors"
)

// Grid is the frame geometry of a loop block at one tempo and sample rate.
type Grid struct {
	SamplesPerBeat    int
	SamplesPerMeasure int
	BlockLength       int
}

// NewGrid computes the block geometry: round(60/tempo*rate) frames per beat,
// beatsPerMeasure beats per measure, measuresPerBlock measures per block.
func NewGrid(tempo float64, sampleRate, beatsPerMeasure, measuresPerBlock int) (Grid, error) {
	if !(tempo > 0) || math.IsInf(tempo, 0) || sampleRate <= 0 || beatsPerMeasure <= 0 || measuresPerBlock <= 0 {
		return Grid{}, errors.Wrapf(ErrQuantization, "invalid grid: tempo=%g rate=%d beats=%d measures=%d",
			tempo, sampleRate, beatsPerMeasure, measuresPerBlock)
	}
	spb := int(math.Round(60.0 / tempo * float64(sampleRate)))
	if spb <= 0 {
		return Grid{}, errors.Wrapf(ErrQuantization, "tempo %g leaves no samples per beat at %d Hz", tempo, sampleRate)
	}
	spm := spb * beatsPerMeasure
	return Grid{
		SamplesPerBeat:    spb,
		SamplesPerMeasure: spm,
		BlockLength:       measuresPerBlock * spm,
	}, nil
}

// FitBlocks truncates b to the largest whole number of blocks it holds, or
// zero-pads it to exactly one block when it is shorter. An empty buffer stays empty.
func (g Grid) FitBlocks(b dsp.Buffer) dsp.Buffer {
	n := b.Frames()
	if n == 0 || g.BlockLength <= 0 {
		return dsp.Resize(b, 0)
	}
	if n >= g.BlockLength {
		return dsp.Resize(b, (n/g.BlockLength)*g.BlockLength)
	}
	return dsp.Resize(b, g.BlockLength)
}

// FadeFrames converts a fade duration to frames: round(ms/1000*rate).
func FadeFrames(fadeMs float64, sampleRate int) int {
	return int(math.Round(fadeMs / 1000.0 * float64(sampleRate)))
}

// Quantize snaps c to whole blocks at its own tempo and sample rate and fades the
// last fadeMs milliseconds to silence. The result is exactly one block when c is
// shorter than a block, otherwise a positive multiple of the block length.
func Quantize(c Clip, beatsPerMeasure, measuresPerBlock int, fadeMs float64) (Clip, error) {
	if c.Frames() == 0 {
		return c, errors.Wrapf(ErrQuantization, "clip %q has no frames", c.Name)
	}
	g, err := NewGrid(c.Tempo, c.SampleRate, beatsPerMeasure, measuresPerBlock)
	if err != nil {
		return c, err
	}
	b := g.FitBlocks(c.Audio)

	fade := FadeFrames(fadeMs, c.SampleRate)
	if fade > b.Frames() {
		return c, errors.Wrapf(ErrQuantization, "fade of %d frames exceeds %d quantized frames", fade, b.Frames())
	}
	return c.withAudio(dsp.FadeOut(b, fade)), nil
}

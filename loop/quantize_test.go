package loop

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridAt120BPM(t *testing.T) {
	g, err := NewGrid(120, 44100, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 22050, g.SamplesPerBeat)
	assert.Equal(t, 88200, g.SamplesPerMeasure)
	assert.Equal(t, 352800, g.BlockLength)
}

func TestNewGridRoundsSamplesPerBeat(t *testing.T) {
	// 60/93*44100 = 28451.6...
	g, err := NewGrid(93, 44100, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 28452, g.SamplesPerBeat)
	assert.Equal(t, 28452*16, g.BlockLength)
}

func TestNewGridRejectsDegenerateInput(t *testing.T) {
	for _, tempo := range []float64{0, -90, math.Inf(1), 1e12} {
		_, err := NewGrid(tempo, 44100, 4, 4)
		assert.ErrorIs(t, err, ErrQuantization, "tempo %g", tempo)
	}
}

func TestQuantizePadsShortClipToOneBlock(t *testing.T) {
	// 3 s mono at 120 BPM, 44.1 kHz.
	c := memClip("short", sineBuffer(1, 132300, 44100, 220), 44100, 120, Melodic)
	got, err := Quantize(c, 4, 4, 20)
	require.NoError(t, err)
	require.Equal(t, 352800, got.Frames())
	assert.Equal(t, 0.0, dsp.Peak(dsp.Buffer{got.Audio[0][132300:]}), "padding must be silence")
	assert.Equal(t, c.Audio[0][1000], got.Audio[0][1000])
	assert.Equal(t, 132300, c.Frames(), "input must not be modified")
}

func TestQuantizeKeepsWholeBlocks(t *testing.T) {
	const block = 352800
	for _, frames := range []int{block, block + 1, 2*block + 1000, 3*block - 1} {
		c := memClip("long", constBuffer(2, frames, 0.25), 44100, 120, Bass)
		got, err := Quantize(c, 4, 4, 20)
		require.NoError(t, err)
		assert.Equal(t, (frames/block)*block, got.Frames(), "input %d frames", frames)
		assert.Zero(t, got.Frames()%block)
	}
}

func TestQuantizeFadesTailOnEveryChannel(t *testing.T) {
	c := memClip("fade", constBuffer(2, 352800, 0.8), 44100, 120, Drums)
	got, err := Quantize(c, 4, 4, 20)
	require.NoError(t, err)

	last := got.Frames() - 1
	fade := FadeFrames(20, 44100)
	require.Equal(t, 882, fade)
	for ch := range got.Audio {
		assert.InDelta(t, 0.0, got.Audio[ch][last], 1e-12)
		assert.InDelta(t, 0.8, got.Audio[ch][last-fade+1], 1e-12, "fade starts at unity")
		assert.InDelta(t, 0.8, got.Audio[ch][last-fade], 1e-12, "audio before the fade is untouched")
		assert.InDelta(t, 0.4, got.Audio[ch][last-fade/2], 0.01)
	}
}

func TestQuantizeFadeLongerThanAudio(t *testing.T) {
	// A 20 ms fade needs 882 frames at 44.1 kHz. The tempo is so fast
	// that the whole block is shorter than the fade.
	c := memClip("tiny", constBuffer(1, 100, 0.5), 44100, 60000, Melodic)
	g, err := NewGrid(60000, 44100, 4, 4)
	require.NoError(t, err)
	require.Less(t, g.BlockLength, 882)

	_, err = Quantize(c, 4, 4, 20)
	assert.ErrorIs(t, err, ErrQuantization)
}

func TestQuantizeZeroLengthClip(t *testing.T) {
	c := memClip("empty", dsp.NewBuffer(1, 0), 44100, 120, Melodic)
	_, err := Quantize(c, 4, 4, 20)
	assert.ErrorIs(t, err, ErrQuantization)
}

func TestFitBlocksEmptyStaysEmpty(t *testing.T) {
	g, err := NewGrid(120, 44100, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, g.FitBlocks(dsp.NewBuffer(2, 0)).Frames())
}

func TestFadeFramesRounds(t *testing.T) {
	assert.Equal(t, 882, FadeFrames(20, 44100))
	assert.Equal(t, 960, FadeFrames(20, 48000))
	assert.Equal(t, 0, FadeFrames(0, 48000))
	assert.Equal(t, 1, FadeFrames(0.015, 44100))
}

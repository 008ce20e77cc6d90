package loop

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/cwbudde/algo-loop/internal/audioio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLengthTilesWithOwnPeriod(t *testing.T) {
	src := dsp.Buffer{{1, 2, 3, 4, 5}}
	got := FitLength(src, 12)
	require.Equal(t, 12, got.Frames())
	for i := 0; i < 12; i++ {
		assert.Equal(t, src[0][i%5], got[0][i], "frame %d", i)
	}
	assert.Equal(t, 3, FitLength(src, 3).Frames())
	assert.Equal(t, src, FitLength(src, 5))
}

func TestMixBuffersTargetsLongestClip(t *testing.T) {
	// Blocks of 352800 and 705600 frames.
	short := constBuffer(1, 352800, 0.1)
	short[0][0] = 0.3
	long := constBuffer(2, 705600, 0.2)

	got, err := MixBuffers([]dsp.Buffer{short, long})
	require.NoError(t, err)
	require.Equal(t, 2, got.Channels())
	require.Equal(t, 705600, got.Frames())

	for ch := 0; ch < 2; ch++ {
		assert.InDelta(t, 0.5, got[ch][0], 1e-12)
		assert.InDelta(t, 0.5, got[ch][352800], 1e-12, "short clip repeats at its own period")
		assert.InDelta(t, 0.3, got[ch][1], 1e-12)
		assert.InDelta(t, 0.3, got[ch][705599], 1e-12)
	}
}

func TestMixBuffersDoesNotNormalize(t *testing.T) {
	got, err := MixBuffers([]dsp.Buffer{constBuffer(2, 10, 0.9), constBuffer(2, 10, 0.9)})
	require.NoError(t, err)
	assert.InDelta(t, 1.8, got[0][5], 1e-12)
}

func TestMixBuffersErrors(t *testing.T) {
	_, err := MixBuffers(nil)
	assert.ErrorIs(t, err, ErrInput)

	_, err = MixBuffers([]dsp.Buffer{dsp.NewBuffer(3, 10)})
	assert.ErrorIs(t, err, ErrUnsupportedLayout)
}

func TestMixExportsTripledLoop(t *testing.T) {
	e := newTestEngine(t)
	clips := []Clip{
		memClip("drums", constBuffer(2, 1000, 0.1), 44100, 120, Drums),
		memClip("bass", constBuffer(1, 2000, 0.1), 44100, 120, Bass),
		memClip("keys", constBuffer(1, 500, 0.1), 44100, 120, Melodic),
	}
	clips[2].Key = "A#"

	res, err := e.Mix(context.Background(), clips, DefaultKeyClip)
	require.NoError(t, err)

	assert.Equal(t, 6000, res.Frames())
	assert.Equal(t, 44100, res.SampleRate)
	assert.Equal(t, Key("A#"), res.Key)
	assert.Equal(t, fixedLabel, res.Label)
	assert.Equal(t, filepath.Join(e.Params.OutputDir, "mixed_audio_20240102030405_A#_120.wav"), res.Path)

	b, rate, err := audioio.Read(res.Path)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	assert.Equal(t, 2, b.Channels())
	assert.Equal(t, 6000, b.Frames())
}

func TestMixKeyFallsBackToLastClip(t *testing.T) {
	e := newTestEngine(t)
	e.Params.Format = FormatFLAC
	clips := []Clip{
		memClip("a", constBuffer(1, 100, 0.1), 48000, 92.5, Drums),
		memClip("b", constBuffer(1, 100, 0.1), 48000, 92.5, Bass),
	}
	clips[1].Key = "D"

	res, err := e.Mix(context.Background(), clips, DefaultKeyClip)
	require.NoError(t, err)
	assert.Equal(t, Key("D"), res.Key)
	assert.Equal(t, "mixed_audio_20240102030405_D_92.5.flac", filepath.Base(res.Path))
	_, err = os.Stat(res.Path)
	assert.NoError(t, err)
}

func TestMixRejectsMismatchedRates(t *testing.T) {
	e := newTestEngine(t)
	clips := []Clip{
		memClip("a", constBuffer(1, 100, 0.1), 44100, 90, Drums),
		memClip("b", constBuffer(1, 100, 0.1), 48000, 90, Bass),
	}
	_, err := e.Mix(context.Background(), clips, 0)
	assert.ErrorIs(t, err, ErrInput)

	_, err = e.Mix(context.Background(), nil, 0)
	assert.ErrorIs(t, err, ErrInput)
}

func TestArchiveCopiesAndSkipsMissing(t *testing.T) {
	e := newTestEngine(t)
	src := t.TempDir()
	a := filepath.Join(src, "a.wav")
	require.NoError(t, os.WriteFile(a, []byte("riff"), 0o644))
	missing := filepath.Join(src, "gone.wav")

	dir, err := e.Archive([]string{a, missing}, fixedLabel)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.Params.OutputDir, fixedLabel), dir)

	data, err := os.ReadFile(filepath.Join(dir, "a.wav"))
	require.NoError(t, err)
	assert.Equal(t, "riff", string(data))
	_, err = os.Stat(filepath.Join(dir, "gone.wav"))
	assert.True(t, os.IsNotExist(err))
}

func TestArchiveCopyFailureIsIOError(t *testing.T) {
	e := newTestEngine(t)
	dirAsSource := t.TempDir()
	_, err := e.Archive([]string{dirAsSource}, fixedLabel)
	assert.ErrorIs(t, err, ErrIO)
}

func TestArchiveKeepsSameNamedSources(t *testing.T) {
	e := newTestEngine(t)
	a := filepath.Join(t.TempDir(), "loop.wav")
	b := filepath.Join(t.TempDir(), "loop.wav")
	require.NoError(t, os.WriteFile(a, []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("second"), 0o644))

	dir, err := e.Archive([]string{a, b}, fixedLabel)
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "loop.wav"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(first))
	second, err := os.ReadFile(filepath.Join(dir, "1_loop.wav"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(second))
}

func TestArchiveFailureRemovesDirectory(t *testing.T) {
	e := newTestEngine(t)
	good := filepath.Join(t.TempDir(), "good.wav")
	require.NoError(t, os.WriteFile(good, []byte("riff"), 0o644))

	_, err := e.Archive([]string{good, t.TempDir()}, fixedLabel)
	assert.ErrorIs(t, err, ErrIO)
	_, statErr := os.Stat(filepath.Join(e.Params.OutputDir, fixedLabel))
	assert.True(t, os.IsNotExist(statErr), "partial archive must be removed")
}

func TestMixFLACExportDecodes(t *testing.T) {
	e := newTestEngine(t)
	e.Params.Format = FormatFLAC
	g, err := NewGrid(120, 44100, 4, 4)
	require.NoError(t, err)
	clips := []Clip{
		memClip("drums", constBuffer(2, g.BlockLength, 0.1), 44100, 120, Drums),
		memClip("bass", constBuffer(1, g.BlockLength, 0.2), 44100, 120, Bass),
	}

	res, err := e.Mix(context.Background(), clips, DefaultKeyClip)
	require.NoError(t, err)
	assert.Equal(t, ".flac", filepath.Ext(res.Path))

	b, rate, err := audioio.Read(res.Path)
	require.NoError(t, err)
	assert.Equal(t, 44100, rate)
	require.Equal(t, 2, b.Channels())
	require.Equal(t, LoopRepeats*g.BlockLength, b.Frames())
	assert.InDelta(t, 0.3, b[0][0], 1e-3)
	assert.InDelta(t, 0.3, b[1][b.Frames()-1], 1e-3)
}

package loop

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cwbudde/algo-loop/analysis"
	"github.com/cwbudde/algo-loop/dsp"
	"github.com/cwbudde/algo-loop/internal/audioio"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FitLength reconciles b to exactly frames: shorter buffers are tiled (looped),
// longer ones truncated.
func FitLength(b dsp.Buffer, frames int) dsp.Buffer {
	switch n := b.Frames(); {
	case n == frames:
		return b.Clone()
	case n < frames:
		return dsp.Tile(b, frames)
	default:
		return dsp.Resize(b, frames)
	}
}

// MixBuffers sums bufs into one stereo block as long as the longest input.
// Mono inputs are duplicated to both channels. The sum is not normalized.
func MixBuffers(bufs []dsp.Buffer) (dsp.Buffer, error) {
	if len(bufs) == 0 {
		return nil, errors.Wrap(ErrInput, "nothing to mix")
	}
	target := 0
	for i, b := range bufs {
		if err := checkLayout(b); err != nil {
			return nil, errors.Wrapf(err, "buffer %d", i)
		}
		if b.Frames() > target {
			target = b.Frames()
		}
	}
	out := dsp.NewBuffer(2, target)
	for _, b := range bufs {
		dsp.AddInto(out, dsp.Stereo(FitLength(b, target)))
	}
	return out, nil
}

// Mix sums the processed clips, tiles the block LoopRepeats times and exports it
// to OutputDir as mixed_audio_{timestamp}_{key}_{tempo}. The key comes from the
// clip at keyClip (the last clip when the list is shorter). Clips must already
// share one sample rate. A failed export leaves no file behind.
func (e *Engine) Mix(ctx context.Context, clips []Clip, keyClip int) (*MixResult, error) {
	if len(clips) == 0 {
		return nil, errors.Wrap(ErrInput, "no clips to mix")
	}
	rate, tempo := clips[0].SampleRate, clips[0].Tempo
	bufs := make([]dsp.Buffer, len(clips))
	for i, c := range clips {
		if c.SampleRate != rate {
			return nil, errors.Wrapf(ErrInput, "clip %d (%s) is at %d Hz, want %d", i, c.Name, c.SampleRate, rate)
		}
		bufs[i] = c.Audio
	}

	block, err := MixBuffers(bufs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := dsp.Repeat(block, LoopRepeats)

	label := e.now().Format("20060102150405")
	key := referenceKey(clips, keyClip)
	path := filepath.Join(e.Params.OutputDir, exportName(label, key, tempo, e.Params.Format))
	if err := audioio.Write(path, out, rate); err != nil {
		os.Remove(path)
		return nil, ioError(err, "export %s", path)
	}

	lv := analysis.Measure(out)
	e.log().WithFields(logrus.Fields{
		"function":   "Engine.Mix",
		"path":       path,
		"clips":      len(clips),
		"frames":     out.Frames(),
		"block":      block.Frames(),
		"rms_dbfs":   lv.RMSDBFS,
		"peak_dbfs":  lv.PeakDBFS,
		"clipped":    lv.Clipped,
		"sampleRate": rate,
	}).Info("Exported mix")

	return &MixResult{
		Audio:      out,
		SampleRate: rate,
		Tempo:      tempo,
		Key:        key,
		Path:       path,
		Label:      label,
	}, nil
}

func referenceKey(clips []Clip, keyClip int) Key {
	i := keyClip
	if i < 0 || i >= len(clips) {
		i = len(clips) - 1
	}
	if clips[i].Key == "" {
		return KeyUndetermined
	}
	return clips[i].Key
}

func exportName(label string, key Key, tempo float64, format string) string {
	ext := FormatWAV
	if format == FormatFLAC {
		ext = FormatFLAC
	}
	return fmt.Sprintf("mixed_audio_%s_%s_%s.%s", label, key, strconv.FormatFloat(tempo, 'f', -1, 64), ext)
}

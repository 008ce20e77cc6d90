package loop

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// StretchFactor is the factor a clip at sourceTempo must be sped up by to play at
// targetTempo. Two zero tempos give 1; a zero source with a non-zero target is an
// ErrAlignment.
func StretchFactor(sourceTempo, targetTempo float64) (float64, error) {
	if sourceTempo == 0 && targetTempo == 0 {
		return 1.0, nil
	}
	if sourceTempo == 0 {
		return 0, errors.Wrapf(ErrAlignment, "source tempo is 0, target tempo is %g", targetTempo)
	}
	f := targetTempo / sourceTempo
	if !(f > 0) || math.IsInf(f, 0) {
		return 0, errors.Wrapf(ErrAlignment, "tempo %g -> %g", sourceTempo, targetTempo)
	}
	return f, nil
}

// Align time-stretches c to targetTempo, keeping pitch and sample rate. The
// stretched audio is written to the temp directory and appended to c.Artifacts.
// A factor of exactly 1 only relabels the tempo.
func (e *Engine) Align(ctx context.Context, c Clip, targetTempo float64) (Clip, error) {
	factor, err := StretchFactor(c.Tempo, targetTempo)
	if err != nil {
		return c, err
	}
	if factor == 1 {
		out := c.withAudio(c.Audio)
		out.Tempo = targetTempo
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return c, err
	}

	e.log().WithFields(logrus.Fields{
		"function": "Engine.Align",
		"clip":     c.Name,
		"tempo":    c.Tempo,
		"target":   targetTempo,
		"factor":   factor,
	}).Debug("Stretching clip")

	b, err := e.Stretcher.Stretch(c.Audio, c.SampleRate, factor)
	if err != nil {
		return c, errors.Wrapf(err, "stretch %s by %g", c.Name, factor)
	}

	path := e.tempPath(c, "stretched")
	if err := e.writeTemp(path, b, c.SampleRate); err != nil {
		return c, err
	}

	out := c.withAudio(b)
	out.Tempo = targetTempo
	out.Artifacts = append(out.Artifacts, path)
	return out, nil
}

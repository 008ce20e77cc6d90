package loop

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Reconcile returns c at targetRate. A clip already at the target rate is
// returned unchanged and produces no intermediate file. Otherwise the resampled
// audio is written to the temp directory and replaces the source in c.Artifacts.
func (e *Engine) Reconcile(ctx context.Context, c Clip, targetRate int) (Clip, error) {
	if targetRate <= 0 {
		return c, errors.Wrapf(ErrInput, "target sample rate must be > 0, got %d", targetRate)
	}
	if err := checkLayout(c.Audio); err != nil {
		return c, err
	}
	if c.SampleRate == targetRate {
		return c, nil
	}
	if err := ctx.Err(); err != nil {
		return c, err
	}

	e.log().WithFields(logrus.Fields{
		"function": "Engine.Reconcile",
		"clip":     c.Name,
		"from":     c.SampleRate,
		"to":       targetRate,
	}).Debug("Resampling clip")

	b, err := e.Resampler.Resample(c.Audio, c.SampleRate, targetRate)
	if err != nil {
		return c, ioError(err, "resample %s", c.Name)
	}
	if b.Channels() != c.Channels() {
		return c, errors.Wrapf(ErrUnsupportedLayout, "resampler returned %d channels for %d", b.Channels(), c.Channels())
	}

	path := e.tempPath(c, "resampled")
	if err := e.writeTemp(path, b, targetRate); err != nil {
		return c, err
	}

	out := c.withAudio(b)
	out.SampleRate = targetRate
	out.Artifacts = []string{path}
	return out, nil
}

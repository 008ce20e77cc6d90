package loop

import (
	"context"
	"os"
	"sync"

	"github.com/cwbudde/algo-loop/analysis"
	"github.com/cwbudde/algo-loop/dsp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Render runs a whole request: every clip is loaded, resampled to the target
// rate, stretched to the target tempo, quantized and gain staged on a bounded
// worker pool; the results are then mixed, exported and archived.
//
// The first clip failure cancels the remaining clip work and is returned as a
// *ClipError; nothing is exported or archived in that case. An archive failure
// removes the export as well. Intermediates already written to the temp
// directory are left for the caller to clean up.
func (e *Engine) Render(ctx context.Context, req MixRequest) (*MixResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	clips := make([]Clip, len(req.Clips))
	copy(clips, req.Clips)
	for i := range clips {
		clips[i].Slot = i
	}

	rate := req.SampleRate
	if rate == 0 {
		first, err := e.ensureLoaded(clips[0])
		if err != nil {
			return nil, &ClipError{Index: 0, Name: clips[0].Name, Stage: StageLoad, Err: err}
		}
		clips[0] = first
		rate = first.SampleRate
	}

	e.log().WithFields(logrus.Fields{
		"function":   "Engine.Render",
		"clips":      len(clips),
		"tempo":      req.Tempo,
		"sampleRate": rate,
	}).Info("Rendering loop")

	processed, err := e.processAll(ctx, req, clips, rate)
	if err != nil {
		return nil, err
	}

	res, err := e.Mix(ctx, processed, req.KeyClip)
	if err != nil {
		return nil, err
	}

	var sources []string
	for _, c := range processed {
		sources = append(sources, c.Artifacts...)
	}
	dir, err := e.Archive(sources, res.Label)
	if err != nil {
		os.Remove(res.Path)
		return nil, err
	}
	res.ArchiveDir = dir
	return res, nil
}

func (e *Engine) processAll(ctx context.Context, req MixRequest, clips []Clip, rate int) ([]Clip, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := e.Params.workers()
	if workers > len(clips) {
		workers = len(clips)
	}

	out := make([]Clip, len(clips))
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c, err := e.processClip(ctx, req, clips[i], rate)
				if err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
					continue
				}
				out[i] = c
			}
		}()
	}

feed:
	for i := range clips {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// processClip runs the per-clip stages. It shares nothing with other clips
// except the temp directory, where its file names are unique by slot.
func (e *Engine) processClip(ctx context.Context, req MixRequest, c Clip, rate int) (Clip, error) {
	fail := func(stage Stage, err error) (Clip, error) {
		e.log().WithFields(logrus.Fields{
			"function": "Engine.processClip",
			"clip":     c.Name,
			"slot":     c.Slot,
			"stage":    stage,
			"error":    err.Error(),
		}).Error("Clip pipeline failed")
		return c, &ClipError{Index: c.Slot, Name: c.Name, Stage: stage, Err: err}
	}

	steps := []struct {
		stage Stage
		run   func(Clip) (Clip, error)
	}{
		{StageLoad, e.ensureLoaded},
		{StageReconcile, func(c Clip) (Clip, error) { return e.Reconcile(ctx, c, rate) }},
		{StageAlign, func(c Clip) (Clip, error) { return e.Align(ctx, c, req.Tempo) }},
		{StageQuantize, func(c Clip) (Clip, error) {
			return Quantize(c, req.BeatsPerMeasure, req.MeasuresPerBlock, req.FadeMs)
		}},
		{StageGain, func(c Clip) (Clip, error) {
			out := ApplyGain(c, req.Gain)
			e.log().WithFields(logrus.Fields{
				"function": "Engine.processClip",
				"clip":     c.Name,
				"gain_db":  analysis.GainDB(dsp.RMS(c.Audio), dsp.RMS(out.Audio)),
			}).Debug("Staged clip gain")
			return out, nil
		}},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return fail(step.stage, err)
		}
		next, err := step.run(c)
		if err != nil {
			return fail(step.stage, err)
		}
		c = next
		e.notify(c, step.stage)
	}
	return c, nil
}

// ensureLoaded reads the clip's audio when it was built from a descriptor only.
func (e *Engine) ensureLoaded(c Clip) (Clip, error) {
	if c.Audio != nil {
		if err := checkLayout(c.Audio); err != nil {
			return c, err
		}
		if c.SampleRate <= 0 {
			return c, errors.Wrapf(ErrInput, "clip %q has no sample rate", c.Name)
		}
		if len(c.Artifacts) == 0 && c.Path != "" {
			c.Artifacts = []string{c.Path}
		}
		return c, nil
	}
	return c.load()
}

package loop

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/cwbudde/algo-loop/internal/audioio"
	"github.com/cwbudde/algo-loop/stretch"
	"github.com/sirupsen/logrus"
)

// Resampler changes a signal's sample rate, preserving channel count and range.
type Resampler interface {
	Resample(b dsp.Buffer, fromRate int, toRate int) (dsp.Buffer, error)
}

// Stretcher scales a signal's duration by 1/factor without changing pitch or rate.
type Stretcher interface {
	Stretch(b dsp.Buffer, sampleRate int, factor float64) (dsp.Buffer, error)
}

// Progress is reported after a clip completes a stage.
type Progress struct {
	Index int
	Name  string
	Stage Stage
}

// Observer receives progress events. It is called from worker goroutines and
// must be safe for concurrent use.
type Observer func(Progress)

// Engine runs mix requests. Its fields may be replaced before the first call.
type Engine struct {
	Resampler Resampler
	Stretcher Stretcher
	Params    *Params
	Log       logrus.FieldLogger
	Observer  Observer
	Now       func() time.Time
}

// NewEngine returns an engine using algo-dsp resampling and WSOLA stretching.
func NewEngine(p *Params) *Engine {
	if p == nil {
		p = NewDefaultParams()
	}
	return &Engine{
		Resampler: audioio.Resampler{},
		Stretcher: stretch.New(),
		Params:    p,
		Log:       logrus.StandardLogger(),
		Now:       time.Now,
	}
}

func (e *Engine) log() logrus.FieldLogger {
	if e.Log == nil {
		return logrus.StandardLogger()
	}
	return e.Log
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) notify(c Clip, stage Stage) {
	if e.Observer != nil {
		e.Observer(Progress{Index: c.Slot, Name: c.Name, Stage: stage})
	}
}

// tempPath derives a per-clip intermediate name; the slot prefix keeps clips
// with equal names from colliding.
func (e *Engine) tempPath(c Clip, suffix string) string {
	return filepath.Join(e.Params.TempDir, fmt.Sprintf("%02d_%s_%s.wav", c.Slot, safeName(c.Name), suffix))
}

func (e *Engine) writeTemp(path string, b dsp.Buffer, sampleRate int) error {
	if err := audioio.WriteWAV(path, b, sampleRate); err != nil {
		return ioError(err, "write %s", path)
	}
	return nil
}

func safeName(s string) string {
	if s == "" {
		return "clip"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.', r == '#':
			return r
		}
		return '_'
	}, s)
}

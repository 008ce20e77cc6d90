package loop

import (
	"io"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/cwbudde/algo-loop/internal/audioio"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

const fixedLabel = "20240102030405"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	p := NewDefaultParams()
	p.OutputDir = filepath.Join(dir, "output")
	p.TempDir = filepath.Join(dir, "temp")
	p.Workers = 2

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	e := NewEngine(p)
	e.Log = logger
	e.Now = func() time.Time { return fixedNow }
	return e
}

func sineBuffer(channels, frames, sampleRate int, hz float64) dsp.Buffer {
	b := dsp.NewBuffer(channels, frames)
	for c := range b {
		for i := range b[c] {
			b[c][i] = 0.5 * math.Sin(2*math.Pi*hz*float64(i)/float64(sampleRate))
		}
	}
	return b
}

func constBuffer(channels, frames int, v float64) dsp.Buffer {
	b := dsp.NewBuffer(channels, frames)
	for c := range b {
		for i := range b[c] {
			b[c][i] = v
		}
	}
	return b
}

func memClip(name string, b dsp.Buffer, rate int, tempo float64, inst Instrument) Clip {
	return Clip{
		Name:       name,
		Audio:      b,
		SampleRate: rate,
		Tempo:      tempo,
		Instrument: inst,
		Key:        KeyUndetermined,
	}
}

// writeClip stores b as a WAV under dir and returns a descriptor for it.
func writeClip(t *testing.T, dir, name string, b dsp.Buffer, rate int, tempo float64, inst Instrument, key Key) Descriptor {
	t.Helper()
	path := filepath.Join(dir, name+".wav")
	require.NoError(t, audioio.WriteWAV(path, b, rate))
	return Descriptor{
		Filename:     name,
		AbsolutePath: path,
		Tempo:        tempo,
		Instrument:   inst,
		Key:          key,
		Frames:       b.Frames(),
		SampleRate:   rate,
	}
}

// fakeResampler changes length by the rate ratio with nearest-neighbour picks.
type fakeResampler struct{ calls int }

func (f *fakeResampler) Resample(b dsp.Buffer, fromRate, toRate int) (dsp.Buffer, error) {
	f.calls++
	frames := int(math.Round(float64(b.Frames()) * float64(toRate) / float64(fromRate)))
	out := dsp.NewBuffer(b.Channels(), frames)
	for c := range out {
		for i := range out[c] {
			src := int(float64(i) * float64(fromRate) / float64(toRate))
			if src < b.Frames() {
				out[c][i] = b[c][src]
			}
		}
	}
	return out, nil
}

// fakeStretcher scales duration by 1/factor, repeating or dropping frames.
type fakeStretcher struct{ factors []float64 }

func (f *fakeStretcher) Stretch(b dsp.Buffer, sampleRate int, factor float64) (dsp.Buffer, error) {
	f.factors = append(f.factors, factor)
	frames := int(math.Round(float64(b.Frames()) / factor))
	out := dsp.NewBuffer(b.Channels(), frames)
	for c := range out {
		for i := range out[c] {
			src := int(float64(i) * factor)
			if src < b.Frames() {
				out[c][i] = b[c][src]
			}
		}
	}
	return out, nil
}

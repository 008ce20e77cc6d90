package loop

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/stretchr/testify/assert"
)

func TestApplyGainPercussionGetsBothAdjustments(t *testing.T) {
	// -8 dB then -10 dB.
	c := memClip("shaker", sineBuffer(2, 4410, 44100, 880), 44100, 90, Percussion)
	got := ApplyGain(c, DefaultGainPolicy())

	ratio := dsp.RMS(got.Audio) / dsp.RMS(c.Audio)
	want := math.Pow(10, -8.0/20.0) * math.Pow(10, -10.0/20.0)
	assert.InDelta(t, want, ratio, 1e-9)
}

func TestApplyGainBaselineAppliesToEveryClass(t *testing.T) {
	want := math.Pow(10, -8.0/20.0)
	for _, inst := range []Instrument{Drums, Bass, Melodic, FX, Vocals, Undetermined} {
		c := memClip(string(inst), sineBuffer(1, 2000, 44100, 440), 44100, 90, inst)
		got := ApplyGain(c, DefaultGainPolicy())
		ratio := dsp.RMS(got.Audio) / dsp.RMS(c.Audio)
		assert.InDelta(t, want, ratio, 1e-9, "instrument %s", inst)
	}
}

func TestApplyGainIgnoresKeyAndTempo(t *testing.T) {
	a := memClip("a", sineBuffer(1, 2000, 44100, 440), 44100, 90, Bass)
	b := a
	b.Key = "F#"
	b.Tempo = 140
	assert.Equal(t, ApplyGain(a, DefaultGainPolicy()).Audio, ApplyGain(b, DefaultGainPolicy()).Audio)
}

func TestApplyGainSilentInputUnchanged(t *testing.T) {
	c := memClip("silence", dsp.NewBuffer(2, 500), 44100, 90, Percussion)
	got := ApplyGain(c, DefaultGainPolicy())
	assert.Equal(t, c.Audio, got.Audio)
}

func TestApplyGainDoesNotAliasInput(t *testing.T) {
	c := memClip("x", sineBuffer(1, 100, 44100, 440), 44100, 90, Bass)
	got := ApplyGain(c, nil)
	got.Audio[0][10] = 42
	assert.NotEqual(t, 42.0, c.Audio[0][10])
}

func TestAdjustRMSMatchesDecibels(t *testing.T) {
	b := sineBuffer(2, 1000, 44100, 100)
	for _, db := range []float64{-20, -3, 0, 6} {
		got := AdjustRMS(b, db)
		assert.InDelta(t, math.Pow(10, db/20), dsp.RMS(got)/dsp.RMS(b), 1e-9, "db %g", db)
	}
}

func TestGainPolicyAdjustmentsInOrder(t *testing.T) {
	p := GainPolicy{{DB: -8}, {Instrument: Percussion, DB: -10}, {Instrument: Vocals, DB: 2}}
	assert.Equal(t, []float64{-8, -10}, p.Adjustments(Percussion))
	assert.Equal(t, []float64{-8, 2}, p.Adjustments(Vocals))
	assert.Equal(t, []float64{-8}, p.Adjustments(Drums))
}

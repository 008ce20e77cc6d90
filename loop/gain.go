package loop

import (
	"github.com/cwbudde/algo-loop/dsp"
)

// GainRule adjusts clip level by DB decibels of RMS. An empty Instrument
// matches every clip.
type GainRule struct {
	Instrument Instrument `json:"instrument,omitempty"`
	DB         float64    `json:"db"`
}

// Matches reports whether the rule applies to inst.
func (r GainRule) Matches(inst Instrument) bool {
	return r.Instrument == "" || r.Instrument == inst
}

// GainPolicy is an ordered list of rules. Every matching rule is applied in
// order, so adjustments compound.
type GainPolicy []GainRule

// DefaultGainPolicy attenuates every clip by 8 dB, whatever its class, and
// percussion by a further 10 dB.
//
// The −8 dB baseline is universal because the rule it descends from was
// meant to skip drums and percussion but its condition always held. Confirm
// with stakeholders before narrowing it.
func DefaultGainPolicy() GainPolicy {
	return GainPolicy{
		{DB: -8},
		{Instrument: Percussion, DB: -10},
	}
}

// Adjustments returns the dB steps applied to inst, in order.
func (p GainPolicy) Adjustments(inst Instrument) []float64 {
	var out []float64
	for _, r := range p {
		if r.Matches(inst) {
			out = append(out, r.DB)
		}
	}
	return out
}

// AdjustRMS scales b so its RMS moves by db decibels. Silent input is returned
// as an unscaled copy.
func AdjustRMS(b dsp.Buffer, db float64) dsp.Buffer {
	current := dsp.RMS(b)
	if current == 0 {
		return b.Clone()
	}
	desired := current * dsp.DBToGain(db)
	return dsp.Scale(b, desired/current)
}

// ApplyGain applies every matching rule of policy to c. Key and tempo never affect
// the result.
func ApplyGain(c Clip, policy GainPolicy) Clip {
	adj := policy.Adjustments(c.Instrument)
	if len(adj) == 0 {
		return c.withAudio(c.Audio.Clone())
	}
	b := c.Audio
	for _, db := range adj {
		b = AdjustRMS(b, db)
	}
	return c.withAudio(b)
}

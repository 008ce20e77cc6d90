package analysis

import (
	"math"

	"github.com/cwbudde/algo-loop/dsp"
)

// Levels summarizes the loudness of a buffer for reporting.
type Levels struct {
	Frames   int     `json:"frames"`
	RMS      float64 `json:"rms"`
	Peak     float64 `json:"peak"`
	RMSDBFS  float64 `json:"rms_dbfs"`
	PeakDBFS float64 `json:"peak_dbfs"`

	// Clipped counts samples whose magnitude exceeds full scale. Mixes are summed
	// without normalization, so a non-zero count is reported, never corrected.
	Clipped int `json:"clipped"`
}

// Measure computes Levels over every channel of b.
func Measure(b dsp.Buffer) Levels {
	lv := Levels{
		Frames: b.Frames(),
		RMS:    dsp.RMS(b),
		Peak:   dsp.Peak(b),
	}
	lv.RMSDBFS = linToDB(lv.RMS)
	lv.PeakDBFS = linToDB(lv.Peak)
	for _, ch := range b {
		for _, v := range ch {
			if math.Abs(v) > 1.0 {
				lv.Clipped++
			}
		}
	}
	return lv
}

// GainDB returns the level change from before to after in decibels.
func GainDB(before, after float64) float64 {
	return linToDB(after) - linToDB(before)
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

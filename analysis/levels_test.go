package analysis

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-loop/dsp"
)

func TestMeasureCountsClippedSamples(t *testing.T) {
	b := dsp.Buffer{{0.5, -1.5, 1.0}, {2.0, 0, -0.25}}
	lv := Measure(b)
	if lv.Clipped != 2 {
		t.Fatalf("clipped = %d, want 2", lv.Clipped)
	}
	if lv.Peak != 2.0 {
		t.Fatalf("peak = %f, want 2", lv.Peak)
	}
	if math.Abs(lv.PeakDBFS-20*math.Log10(2)) > 1e-9 {
		t.Fatalf("peak dBFS = %f", lv.PeakDBFS)
	}
	if lv.Frames != 3 {
		t.Fatalf("frames = %d, want 3", lv.Frames)
	}
}

func TestMeasureSilenceFloors(t *testing.T) {
	lv := Measure(dsp.NewBuffer(2, 16))
	if lv.RMSDBFS != -240 || lv.PeakDBFS != -240 {
		t.Fatalf("silence levels = %f / %f, want -240", lv.RMSDBFS, lv.PeakDBFS)
	}
}

func TestGainDB(t *testing.T) {
	got := GainDB(1.0, math.Pow(10, -8.0/20.0))
	if math.Abs(got-(-8)) > 1e-9 {
		t.Fatalf("GainDB = %f, want -8", got)
	}
}

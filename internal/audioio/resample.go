package audioio

import (
	"fmt"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/algo-loop/dsp"
)

// Resampler converts between sample rates with algo-dsp's polyphase resampler.
// The zero value is ready to use.
type Resampler struct{}

// Resample converts every channel of b from fromRate to toRate. Each channel
// gets its own resampler so filter state never leaks between channels.
func (Resampler) Resample(b dsp.Buffer, fromRate int, toRate int) (dsp.Buffer, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate {
		return b.Clone(), nil
	}
	out := make(dsp.Buffer, b.Channels())
	frames := -1
	for c := range b {
		r, err := dspresample.NewForRates(
			float64(fromRate),
			float64(toRate),
			dspresample.WithQuality(dspresample.QualityBest),
		)
		if err != nil {
			return nil, err
		}
		out[c] = r.Process(b[c])
		if frames < 0 || len(out[c]) < frames {
			frames = len(out[c])
		}
	}
	for c := range out {
		out[c] = out[c][:frames]
	}
	return out, nil
}

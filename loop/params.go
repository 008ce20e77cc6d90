package loop

import (
	"math"
	"runtime"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/pkg/errors"
)

const (
	DefaultTempo            = 90.0
	DefaultBeatsPerMeasure  = 4
	DefaultMeasuresPerBlock = 4
	DefaultFadeMs           = 20.0
	// DefaultKeyClip is the request position whose key labels the export.
	DefaultKeyClip = 2
	// LoopRepeats is how many times the mixed block is tiled in the export.
	LoopRepeats = 3

	FormatWAV  = "wav"
	FormatFLAC = "flac"
)

// Params holds request defaults and engine configuration.
type Params struct {
	Tempo            float64
	SampleRate       int // 0 = use the first clip's rate
	BeatsPerMeasure  int
	MeasuresPerBlock int
	FadeMs           float64
	Gain             GainPolicy
	KeyClip          int

	Format    string
	OutputDir string
	TempDir   string
	Workers   int // 0 = runtime.NumCPU()
}

// NewDefaultParams returns the stock settings: 90 BPM, 4/4, 4-measure blocks,
// 20 ms tail fade, −8 dB on every clip plus −10 dB on percussion.
func NewDefaultParams() *Params {
	return &Params{
		Tempo:            DefaultTempo,
		BeatsPerMeasure:  DefaultBeatsPerMeasure,
		MeasuresPerBlock: DefaultMeasuresPerBlock,
		FadeMs:           DefaultFadeMs,
		Gain:             DefaultGainPolicy(),
		KeyClip:          DefaultKeyClip,
		Format:           FormatWAV,
		OutputDir:        "output",
		TempDir:          "temp",
	}
}

// Request builds a MixRequest for clips from the request defaults in p.
func (p *Params) Request(clips []Clip) MixRequest {
	return MixRequest{
		Clips:            clips,
		Tempo:            p.Tempo,
		SampleRate:       p.SampleRate,
		BeatsPerMeasure:  p.BeatsPerMeasure,
		MeasuresPerBlock: p.MeasuresPerBlock,
		FadeMs:           p.FadeMs,
		Gain:             append(GainPolicy(nil), p.Gain...),
		KeyClip:          p.KeyClip,
	}
}

func (p *Params) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// MixRequest is an ordered, non-empty list of clips plus the grid and gain
// policy they are aligned to.
type MixRequest struct {
	Clips            []Clip
	Tempo            float64
	SampleRate       int
	BeatsPerMeasure  int
	MeasuresPerBlock int
	FadeMs           float64
	Gain             GainPolicy
	KeyClip          int
}

// Validate reports ErrInput for requests the pipeline cannot run.
func (r MixRequest) Validate() error {
	switch {
	case len(r.Clips) == 0:
		return errors.Wrap(ErrInput, "no clips")
	case !(r.Tempo > 0) || math.IsInf(r.Tempo, 0):
		return errors.Wrapf(ErrInput, "target tempo must be > 0, got %g", r.Tempo)
	case r.SampleRate < 0:
		return errors.Wrapf(ErrInput, "sample rate must be >= 0, got %d", r.SampleRate)
	case r.BeatsPerMeasure != DefaultBeatsPerMeasure:
		return errors.Wrapf(ErrInput, "only 4/4 is supported, got %d beats per measure", r.BeatsPerMeasure)
	case r.MeasuresPerBlock <= 0:
		return errors.Wrapf(ErrInput, "measures per block must be > 0, got %d", r.MeasuresPerBlock)
	case !(r.FadeMs >= 0):
		return errors.Wrapf(ErrInput, "fade must be >= 0 ms, got %g", r.FadeMs)
	case r.KeyClip < 0:
		return errors.Wrapf(ErrInput, "key clip index must be >= 0, got %d", r.KeyClip)
	}
	return nil
}

// MixResult is the exported loop.
type MixResult struct {
	Audio      dsp.Buffer
	SampleRate int
	Tempo      float64
	Key        Key
	Path       string
	ArchiveDir string
	// Label is the timestamp shared by the export name and the archive directory.
	Label string
}

// Frames returns the export's frame count.
func (r *MixResult) Frames() int {
	return r.Audio.Frames()
}

package loop

import (
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/cwbudde/algo-loop/internal/audioio"
	"github.com/pkg/errors"
)

// Instrument is the instrument class a clip was tagged with upstream.
type Instrument string

const (
	Drums        Instrument = "drums"
	Bass         Instrument = "bass"
	Percussion   Instrument = "percussion"
	Melodic      Instrument = "melodic"
	FX           Instrument = "fx"
	Vocals       Instrument = "vocals"
	Undetermined Instrument = "undetermined"
)

// Instruments lists every instrument class in catalog order.
var Instruments = []Instrument{Drums, Bass, Melodic, FX, Vocals, Percussion, Undetermined}

// ParseInstrument matches s case-insensitively; unknown names are Undetermined.
func ParseInstrument(s string) Instrument {
	v := Instrument(strings.ToLower(strings.TrimSpace(s)))
	for _, inst := range Instruments {
		if v == inst {
			return inst
		}
	}
	return Undetermined
}

// Key is a musical key (pitch class) or KeyUndetermined.
type Key string

const KeyUndetermined Key = "undetermined"

// Keys lists the twelve pitch classes.
var Keys = []Key{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// ParseKey accepts a pitch class such as "c#" or "F"; anything else is KeyUndetermined.
func ParseKey(s string) Key {
	v := strings.TrimSpace(s)
	if v == "" {
		return KeyUndetermined
	}
	v = strings.ToUpper(v[:1]) + v[1:]
	for _, k := range Keys {
		if Key(v) == k {
			return k
		}
	}
	return KeyUndetermined
}

// ScaleMode is the scale/mode a clip was tagged with.
type ScaleMode string

const ScaleUndetermined ScaleMode = "undetermined"

var ScaleModes = []ScaleMode{"Major", "Minor", "Ionian", "Dorian", "Phrygian", "Lydian", "Mixolydian", "Aeolian", "Locrian"}

// ParseScaleMode matches s case-insensitively; unknown names are ScaleUndetermined.
func ParseScaleMode(s string) ScaleMode {
	for _, m := range ScaleModes {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m
		}
	}
	return ScaleUndetermined
}

// Descriptor is a sample-library record describing one audio file on disk.
type Descriptor struct {
	Filename      string     `json:"filename"`
	FileType      string     `json:"file_type"`
	AbsolutePath  string     `json:"absolute_path"`
	DirectoryPath string     `json:"directory_path"`
	Key           Key        `json:"key"`
	ScaleMode     ScaleMode  `json:"scale_mode"`
	Tempo         float64    `json:"tempo"`
	Genre         string     `json:"genre,omitempty"`
	Instrument    Instrument `json:"instrument_type"`
	Frames        int        `json:"length_in_samples"`
	SampleRate    int        `json:"sample_rate"`
}

// Normalize replaces unknown enum values with their undetermined defaults and
// derives the file type and directory from the path when missing.
func (d Descriptor) Normalize() Descriptor {
	d.Key = ParseKey(string(d.Key))
	d.ScaleMode = ParseScaleMode(string(d.ScaleMode))
	d.Instrument = ParseInstrument(string(d.Instrument))
	if d.FileType == "" {
		d.FileType = strings.TrimPrefix(strings.ToLower(filepath.Ext(d.AbsolutePath)), ".")
	}
	if d.DirectoryPath == "" && d.AbsolutePath != "" {
		d.DirectoryPath = filepath.Dir(d.AbsolutePath)
	}
	if d.Filename == "" && d.AbsolutePath != "" {
		d.Filename = strings.TrimSuffix(filepath.Base(d.AbsolutePath), filepath.Ext(d.AbsolutePath))
	}
	return d
}

// Clip is one audio asset moving through the pipeline. Stages never modify a
// clip's Audio in place; they return a new Clip with a new buffer.
type Clip struct {
	Name       string
	Path       string
	Audio      dsp.Buffer
	SampleRate int
	Tempo      float64
	Instrument Instrument
	Key        Key

	// Slot is the clip's position in its request; temporary file names derive from it.
	Slot int
	// Artifacts are the files to archive for this clip: the source, or its
	// resampled intermediate, followed by the stretched intermediate.
	Artifacts []string
}

// ClipFromDescriptor builds a clip whose audio is read lazily by the pipeline.
func ClipFromDescriptor(d Descriptor) Clip {
	d = d.Normalize()
	return Clip{
		Name:       d.Filename,
		Path:       d.AbsolutePath,
		SampleRate: d.SampleRate,
		Tempo:      d.Tempo,
		Instrument: d.Instrument,
		Key:        d.Key,
	}
}

// LoadClip reads the descriptor's file. The file's own sample rate wins over the
// descriptor's.
func LoadClip(d Descriptor) (Clip, error) {
	c := ClipFromDescriptor(d)
	return c.load()
}

// Frames returns the clip's frame count.
func (c Clip) Frames() int {
	return c.Audio.Frames()
}

// Channels returns the clip's channel count.
func (c Clip) Channels() int {
	return c.Audio.Channels()
}

func (c Clip) load() (Clip, error) {
	if c.Path == "" {
		return c, errors.Wrapf(ErrInput, "clip %q has no audio and no path", c.Name)
	}
	b, rate, err := audioio.Read(c.Path)
	if err != nil {
		return c, ioError(err, "read %s", c.Path)
	}
	if err := checkLayout(b); err != nil {
		return c, errors.Wrap(err, c.Path)
	}
	c.Audio = b
	c.SampleRate = rate
	if c.Name == "" {
		c.Name = strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
	}
	c.Artifacts = []string{c.Path}
	return c, nil
}

// withAudio returns a copy of c carrying b; the artifact list is copied too.
func (c Clip) withAudio(b dsp.Buffer) Clip {
	c.Audio = b
	c.Artifacts = append([]string(nil), c.Artifacts...)
	return c
}

func checkLayout(b dsp.Buffer) error {
	switch b.Channels() {
	case 1, 2:
	default:
		return errors.Wrapf(ErrUnsupportedLayout, "%d channels", b.Channels())
	}
	for c := 1; c < len(b); c++ {
		if len(b[c]) != len(b[0]) {
			return errors.Wrapf(ErrUnsupportedLayout, "ragged channels: %d vs %d frames", len(b[c]), len(b[0]))
		}
	}
	return nil
}

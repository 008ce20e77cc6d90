package preset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-loop/loop"
	"gopkg.in/yaml.v3"
)

// File is the JSON/YAML schema for engine presets.
type File struct {
	Tempo            *float64   `json:"tempo" yaml:"tempo"`
	SampleRate       *int       `json:"sample_rate" yaml:"sample_rate"`
	BeatsPerMeasure  *int       `json:"beats_per_measure" yaml:"beats_per_measure"`
	MeasuresPerBlock *int       `json:"measures_per_block" yaml:"measures_per_block"`
	FadeMs           *float64   `json:"fade_ms" yaml:"fade_ms"`
	GainRules        []GainRule `json:"gain_rules" yaml:"gain_rules"`
	KeyClip          *int       `json:"key_clip" yaml:"key_clip"`
	Format           string     `json:"format" yaml:"format"`
	OutputDir        string     `json:"output_dir" yaml:"output_dir"`
	TempDir          string     `json:"temp_dir" yaml:"temp_dir"`
	Workers          *int       `json:"workers" yaml:"workers"`
}

// GainRule is one gain_rules entry. An empty instrument applies to every clip.
type GainRule struct {
	Instrument string   `json:"instrument" yaml:"instrument"`
	DB         *float64 `json:"db" yaml:"db"`
}

// Load reads a preset, choosing YAML for .yaml/.yml and JSON otherwise.
func Load(path string) (*loop.Params, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return LoadJSON(path)
	}
}

// LoadJSON loads a preset JSON file and applies it on top of default params.
func LoadJSON(path string) (*loop.Params, error) {
	return load(path, json.Unmarshal)
}

// LoadYAML loads a preset YAML file and applies it on top of default params.
func LoadYAML(path string) (*loop.Params, error) {
	return load(path, yaml.Unmarshal)
}

func load(path string, unmarshal func([]byte, any) error) (*loop.Params, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := unmarshal(b, &f); err != nil {
		return nil, err
	}

	p := loop.NewDefaultParams()
	if err := ApplyFile(p, &f); err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	if f.OutputDir != "" && !filepath.IsAbs(p.OutputDir) {
		p.OutputDir = filepath.Clean(filepath.Join(base, p.OutputDir))
	}
	if f.TempDir != "" && !filepath.IsAbs(p.TempDir) {
		p.TempDir = filepath.Clean(filepath.Join(base, p.TempDir))
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing params object.
// gain_rules, when present, replaces the whole policy.
func ApplyFile(dst *loop.Params, f *File) error {
	if dst == nil {
		return fmt.Errorf("nil destination params")
	}
	if f == nil {
		return nil
	}

	if f.Tempo != nil {
		if !(*f.Tempo > 0) || math.IsInf(*f.Tempo, 0) {
			return fmt.Errorf("tempo must be > 0")
		}
		dst.Tempo = *f.Tempo
	}
	if f.SampleRate != nil {
		if *f.SampleRate < 0 {
			return fmt.Errorf("sample_rate must be >= 0")
		}
		dst.SampleRate = *f.SampleRate
	}
	if f.BeatsPerMeasure != nil {
		if *f.BeatsPerMeasure != loop.DefaultBeatsPerMeasure {
			return fmt.Errorf("beats_per_measure must be %d", loop.DefaultBeatsPerMeasure)
		}
		dst.BeatsPerMeasure = *f.BeatsPerMeasure
	}
	if f.MeasuresPerBlock != nil {
		if *f.MeasuresPerBlock <= 0 {
			return fmt.Errorf("measures_per_block must be > 0")
		}
		dst.MeasuresPerBlock = *f.MeasuresPerBlock
	}
	if f.FadeMs != nil {
		if !(*f.FadeMs >= 0) {
			return fmt.Errorf("fade_ms must be >= 0")
		}
		dst.FadeMs = *f.FadeMs
	}
	if f.KeyClip != nil {
		if *f.KeyClip < 0 {
			return fmt.Errorf("key_clip must be >= 0")
		}
		dst.KeyClip = *f.KeyClip
	}
	if f.Format != "" {
		switch format := strings.ToLower(strings.TrimSpace(f.Format)); format {
		case loop.FormatWAV, loop.FormatFLAC:
			dst.Format = format
		default:
			return fmt.Errorf("format must be %q or %q, got %q", loop.FormatWAV, loop.FormatFLAC, f.Format)
		}
	}
	if f.OutputDir != "" {
		dst.OutputDir = strings.TrimSpace(f.OutputDir)
	}
	if f.TempDir != "" {
		dst.TempDir = strings.TrimSpace(f.TempDir)
	}
	if f.Workers != nil {
		if *f.Workers < 0 {
			return fmt.Errorf("workers must be >= 0")
		}
		dst.Workers = *f.Workers
	}

	if f.GainRules == nil {
		return nil
	}
	policy := make(loop.GainPolicy, 0, len(f.GainRules))
	for i, r := range f.GainRules {
		if r.DB == nil || math.IsNaN(*r.DB) || math.IsInf(*r.DB, 0) {
			return fmt.Errorf("gain_rules[%d].db must be a finite number", i)
		}
		rule := loop.GainRule{DB: *r.DB}
		if name := strings.TrimSpace(r.Instrument); name != "" {
			rule.Instrument = loop.ParseInstrument(name)
			if rule.Instrument == loop.Undetermined && !strings.EqualFold(name, string(loop.Undetermined)) {
				return fmt.Errorf("gain_rules[%d]: unknown instrument %q", i, r.Instrument)
			}
		}
		policy = append(policy, rule)
	}
	dst.Gain = policy
	return nil
}

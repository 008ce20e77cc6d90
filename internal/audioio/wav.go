package audioio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// BitDepth is the PCM bit depth used for every file this package writes.
const BitDepth = 16

// Read decodes a PCM file into a planar buffer, choosing the codec from the
// file extension (.wav or .flac).
func Read(path string) (dsp.Buffer, int, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return ReadWAV(path)
	case ".flac":
		return ReadFLAC(path)
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q: %s", ext, path)
	}
}

// Write encodes b as 16-bit PCM, choosing the codec from the file extension.
// Parent directories are created as needed.
func Write(path string, b dsp.Buffer, sampleRate int) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return WriteWAV(path, b, sampleRate)
	case ".flac":
		return WriteFLAC(path, b, sampleRate)
	default:
		return fmt.Errorf("unsupported audio format %q: %s", ext, path)
	}
}

// ReadWAV decodes every channel of a WAV file. The decoder already yields
// samples normalized to [-1, 1).
func ReadWAV(path string) (dsp.Buffer, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := dsp.NewBuffer(ch, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			out[c][i] = float64(buf.Data[i*ch+c])
		}
	}
	return out, buf.Format.SampleRate, nil
}

// WriteWAV encodes b as 16-bit PCM WAV with b.Channels() channels.
func WriteWAV(path string, b dsp.Buffer, sampleRate int) error {
	ch := b.Channels()
	if ch < 1 {
		return fmt.Errorf("cannot write %s: buffer has no channels", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, BitDepth, ch, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: ch,
		},
		Data:           interleave32(b),
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func interleave32(b dsp.Buffer) []float32 {
	ch := b.Channels()
	frames := b.Frames()
	data := make([]float32, frames*ch)
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			data[i*ch+c] = float32(b[c][i])
		}
	}
	return data
}

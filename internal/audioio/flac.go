package audioio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-loop/dsp"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const (
	// flacBlockSize is the nominal number of frames per encoded FLAC frame.
	flacBlockSize = 4000
	// flacMinBlockSize is the smallest frame the encoder accepts.
	flacMinBlockSize = 16
)

// flacBadBlockSizes are standard FLAC block sizes that mewkiz/flac v1.0.7
// encodes with a wrong header code. Frames of these sizes are never written.
var flacBadBlockSizes = map[int]bool{
	1024: true, 2048: true, 2304: true, 4096: true, 4608: true,
	8192: true, 16384: true, 32768: true,
}

// flacBlockSizes splits total frames into encoder frames of at most about
// flacBlockSize, none shorter than flacMinBlockSize and none of a bad size.
func flacBlockSizes(total int) ([]int, error) {
	if total < flacMinBlockSize {
		return nil, fmt.Errorf("flac export needs at least %d frames, got %d", flacMinBlockSize, total)
	}
	var sizes []int
	for rest := total; rest > 0; {
		n := flacBlockSize
		if rest < n {
			n = rest
		}
		sizes = append(sizes, n)
		rest -= n
	}
	last := len(sizes) - 1
	if last > 0 && sizes[last] < flacMinBlockSize {
		sizes[last-1] += sizes[last]
		sizes = sizes[:last]
		last--
	}
	if flacBadBlockSizes[sizes[last]] {
		if last > 0 {
			sizes[last-1]--
			sizes[last]++
		} else {
			a := sizes[0]/2 - 1
			sizes = []int{a, sizes[0] - a}
		}
	}
	return sizes, nil
}

// ReadFLAC decodes every channel of a FLAC stream, scaled to [-1, 1).
func ReadFLAC(path string) (dsp.Buffer, int, error) {
	stream, err := flac.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.NChannels < 1 {
		return nil, 0, fmt.Errorf("invalid flac stream: %s", path)
	}
	ch := int(info.NChannels)
	depth := int(info.BitsPerSample)
	out := make(dsp.Buffer, ch)
	if info.NSamples > 0 {
		for c := range out {
			out[c] = make([]float64, 0, info.NSamples)
		}
	}
	for {
		fr, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("decode %s: %w", path, err)
		}
		if len(fr.Subframes) != ch {
			return nil, 0, fmt.Errorf("flac frame has %d subframes, want %d: %s", len(fr.Subframes), ch, path)
		}
		for c, sub := range fr.Subframes {
			for _, s := range sub.Samples[:sub.NSamples] {
				out[c] = append(out[c], intToFloat(int(s), depth))
			}
		}
	}
	return out, int(info.SampleRate), nil
}

// WriteFLAC encodes b as 16-bit FLAC using verbatim (or constant) subframes.
func WriteFLAC(path string, b dsp.Buffer, sampleRate int) error {
	var channels frame.Channels
	switch b.Channels() {
	case 1:
		channels = frame.ChannelsMono
	case 2:
		channels = frame.ChannelsLR
	default:
		return fmt.Errorf("cannot write %s: flac export supports 1 or 2 channels, got %d", path, b.Channels())
	}
	sizes, err := flacBlockSizes(b.Frames())
	if err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	si := &meta.StreamInfo{
		BlockSizeMin:  flacMinBlockSize,
		BlockSizeMax:  65535,
		SampleRate:    uint32(sampleRate),
		NChannels:     uint8(b.Channels()),
		BitsPerSample: BitDepth,
		NSamples:      uint64(b.Frames()),
	}
	enc, err := flac.NewEncoder(w, si)
	if err != nil {
		return err
	}

	start := 0
	for _, n := range sizes {
		subframes := make([]*frame.Subframe, b.Channels())
		for c := range subframes {
			samples := make([]int32, n)
			constant := true
			for i := 0; i < n; i++ {
				samples[i] = floatToInt(b[c][start+i], BitDepth)
				if samples[i] != samples[0] {
					constant = false
				}
			}
			pred := frame.PredVerbatim
			if constant {
				pred = frame.PredConstant
			}
			subframes[c] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: pred},
				Samples:   samples,
				NSamples:  n,
			}
		}
		fr := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: false,
				BlockSize:         uint16(n),
				SampleRate:        uint32(sampleRate),
				Channels:          channels,
				BitsPerSample:     BitDepth,
			},
			Subframes: subframes,
		}
		if err := enc.WriteFrame(fr); err != nil {
			enc.Close()
			return err
		}
		start += n
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return w.Flush()
}

// intToFloat scales a signed FLAC sample of the given bit depth to [-1, 1).
func intToFloat(v int, depth int) float64 {
	if depth <= 0 {
		depth = BitDepth
	}
	return float64(v) / float64(int64(1)<<(depth-1))
}

func floatToInt(v float64, depth int) int32 {
	full := float64(int64(1)<<(depth-1)) - 1
	s := v * full
	if s > full {
		s = full
	} else if s < -full-1 {
		s = -full - 1
	}
	if s < 0 {
		return int32(s - 0.5)
	}
	return int32(s + 0.5)
}

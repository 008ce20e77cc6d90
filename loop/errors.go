package loop

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInput reports an empty clip list or a malformed request.
	ErrInput = errors.New("invalid mix request")
	// ErrAlignment reports an undefined stretch factor.
	ErrAlignment = errors.New("undefined stretch factor")
	// ErrQuantization reports a fade longer than the quantized audio, or a zero-length clip.
	ErrQuantization = errors.New("quantization failed")
	// ErrIO reports a read, write or copy failure.
	ErrIO = errors.New("audio i/o failed")
	// ErrUnsupportedLayout reports a channel count other than 1 or 2.
	ErrUnsupportedLayout = errors.New("unsupported channel layout")
)

// kindError tags a cause with one of the sentinels above while keeping the
// cause reachable through Unwrap.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string        { return e.kind.Error() + ": " + e.cause.Error() }
func (e *kindError) Unwrap() error        { return e.cause }
func (e *kindError) Is(target error) bool { return target == e.kind }

func ioError(cause error, format string, args ...interface{}) error {
	return &kindError{kind: ErrIO, cause: errors.Wrapf(cause, format, args...)}
}

// Stage names a step of the per-clip pipeline or the join that follows it.
type Stage string

const (
	StageLoad      Stage = "load"
	StageReconcile Stage = "reconcile"
	StageAlign     Stage = "align"
	StageQuantize  Stage = "quantize"
	StageGain      Stage = "gain"
	StageMix       Stage = "mix"
	StageArchive   Stage = "archive"
)

// ClipError identifies the clip whose pipeline aborted a request.
type ClipError struct {
	Index int
	Name  string
	Stage Stage
	Err   error
}

func (e *ClipError) Error() string {
	return fmt.Sprintf("clip %d (%s) failed at %s: %v", e.Index, e.Name, e.Stage, e.Err)
}

func (e *ClipError) Unwrap() error { return e.Err }

// Package errors defines the sentinel errors shared by every stage of an
// all-pairs run, the typed wrappers that carry stage and record context, and
// the mapping from error class to process exit code.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrUnknownMeasure     = errors.New("unknown proximity measure")
	ErrMissingInput       = errors.New("missing input")
	ErrUnsupportedCharset = errors.New("unsupported charset")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrWorkerFailed       = errors.New("worker failed")
	ErrInternal           = errors.New("internal error")
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
	ExitData    = 3
)

// AppError attaches a human readable message and an explicit exit code to a
// sentinel error.
type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: classify(sentinel),
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: classify(sentinel),
	}
}

// Stage names used by StageError.
const (
	StageSetup = "setup"
	StageChunk = "chunk"
	StageMerge = "merge"
)

// StageError records which stage of a run failed. Chunk is only meaningful
// for StageChunk.
type StageError struct {
	Stage string
	Chunk int
	Err   error
}

func (e *StageError) Error() string {
	if e.Stage == StageChunk {
		return fmt.Sprintf("stage %s %d: %v", e.Stage, e.Chunk, e.Err)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// InStage wraps err with the given stage. A nil err stays nil and an error
// that already carries a stage is returned unchanged.
func InStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// InChunk wraps err as a failure of the numbered chunk.
func InChunk(chunk int, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: StageChunk, Chunk: chunk, Err: fmt.Errorf("%w: %w", ErrWorkerFailed, err)}
}

// ExitCode maps err to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	return classify(err)
}

func classify(err error) int {
	switch {
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrUnknownMeasure),
		errors.Is(err, ErrUnsupportedCharset),
		errors.Is(err, ErrMissingInput):
		return ExitConfig
	case errors.Is(err, ErrMalformedRecord):
		return ExitData
	default:
		return ExitFailure
	}
}

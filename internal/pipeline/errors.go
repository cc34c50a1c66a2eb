package pipeline

import "errors"

// Stage identifies which delegated step failed.
type Stage string

const (
	StageDecode Stage = "decode"
	StageOCR    Stage = "ocr"
	StageRender Stage = "render"
	StageIO     Stage = "io"
)

// Error is a processing failure tagged with its origin. Callers outside the
// service see only the message, which is the underlying error's text.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, or "" for untagged errors.
func StageOf(err error) Stage {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Stage
	}
	return ""
}

// Tag marks err as a processing error from stage. Used by callers that own a
// step outside the pipeline (e.g. temporary file handling).
func Tag(stage Stage, err error) error {
	return wrap(stage, err)
}

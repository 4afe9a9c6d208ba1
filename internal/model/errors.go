package model

import (
	"errors"
	"fmt"
)

// FailureKind classifies a per-file failure by pipeline stage.
type FailureKind string

const (
	FailureDecode  FailureKind = "decode"
	FailureExtract FailureKind = "extract"
	FailureEncode  FailureKind = "encode"
	FailureWrite   FailureKind = "write"
)

// ProcessError tags a per-file failure with its stage. Failures are terminal
// for that file for that run; nothing retries them.
type ProcessError struct {
	Kind FailureKind
	Err  error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// FailureKindOf returns the stage a per-file error failed at, or the empty
// kind when err carries none.
func FailureKindOf(err error) FailureKind {
	var pe *ProcessError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Package upstream describes failures of the I/O collaborators the pipeline
// depends on: artifact storage, resume text extraction and document rendering.
package upstream

import (
	"errors"
	"fmt"
)

// Error is returned by a collaborator when an I/O operation fails.
type Error struct {
	// Op is the collaborator operation, for example "save" or "extract text".
	Op string
	// Target is the path or key the operation worked on.
	Target string
	Err    error
}

func (e *Error) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns nil for a nil err and an *Error otherwise.
func Wrap(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Op: op, Target: target, Err: err}
}

// Is reports whether err originates from a collaborator.
func Is(err error) bool {
	var target *Error
	return errors.As(err, &target)
}

package models

import (
	"errors"
	"fmt"
)

// Structural failures: the file cannot be processed at all
var (
	ErrNoHeader    = errors.New("no recognised header")
	ErrNoDelimiter = errors.New("closing delimiter not found")
	ErrNoPayload   = errors.New("no payload after preamble")
)

// StructuralError reports a header or payload that is absent or empty.
// It is the only error that aborts a recovery run.
type StructuralError struct {
	Path   string
	Reason string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("structural error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("structural error in %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// IsStructural reports whether err is (or wraps) a StructuralError
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

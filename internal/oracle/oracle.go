// Package oracle runs the protected file under a real interpreter as a
// last resort and reports what it declared.
package oracle

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the interpreter (or its loader) cannot
// be used. Callers log it and carry on.
var ErrUnavailable = errors.New("oracle unavailable")

// Metadata is what the interpreter saw after including the target
type Metadata struct {
	Oracle    string            `json:"oracle" yaml:"oracle"`
	Functions []string          `json:"functions" yaml:"functions"`
	Classes   []string          `json:"classes" yaml:"classes"`
	Constants map[string]string `json:"constants,omitempty" yaml:"constants,omitempty"`
	Output    string            `json:"output,omitempty" yaml:"output,omitempty"` // captured stdout of the include, truncated
	Errors    []string          `json:"errors,omitempty" yaml:"errors,omitempty"`
	Duration  time.Duration     `json:"duration" yaml:"duration"`
}

// Oracle is an external collaborator that can execute a protected file
type Oracle interface {
	Name() string
	IsAvailable() bool
	RunFallback(ctx context.Context, path string, timeout time.Duration) (*Metadata, error)
}

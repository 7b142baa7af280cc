package models

import "time"

// Outcome classifies what happened to one recovery method
type Outcome string

const (
	OutcomePassed         Outcome = "passed"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeNoMatch        Outcome = "no_match"
	OutcomeSkipped        Outcome = "skipped"
)

// MethodAttempt summarises the run of one method
type MethodAttempt struct {
	Method    string  `json:"method" yaml:"method"`
	Outcome   Outcome `json:"outcome" yaml:"outcome"`
	BestScore int     `json:"best_score" yaml:"best_score"`
	Variant   string  `json:"variant,omitempty" yaml:"variant,omitempty"`
	Attempts  int     `json:"attempts" yaml:"attempts"`
	Decoded   int     `json:"decoded" yaml:"decoded"` // Attempts that produced bytes
}

// Reason returns a human-readable rejection reason
func (m *MethodAttempt) Reason() string {
	switch m.Outcome {
	case OutcomePassed:
		return "accepted"
	case OutcomeBelowThreshold:
		return "decoded but below threshold"
	case OutcomeNoMatch:
		return "no structural match"
	case OutcomeSkipped:
		return "not run: search bound reached or no applicable variant"
	default:
		return string(m.Outcome)
	}
}

// Result is the outcome of a whole search run.
// Best is the highest scoring candidate with a positive score, nil if none.
type Result struct {
	Best      *Scored          `json:"best,omitempty" yaml:"best,omitempty"`
	Accepted  bool             `json:"accepted" yaml:"accepted"`
	Threshold int              `json:"threshold" yaml:"threshold"`
	Methods   []*MethodAttempt `json:"methods" yaml:"methods"`
	Attempts  int64            `json:"attempts" yaml:"attempts"`
	Truncated bool             `json:"truncated" yaml:"truncated"` // Search bound reached
	Workers   int              `json:"workers" yaml:"workers"`

	StartTime time.Time     `json:"start_time" yaml:"start_time"`
	EndTime   time.Time     `json:"end_time" yaml:"end_time"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}

// Text returns the best candidate bytes, or nil
func (r *Result) Text() []byte {
	if r == nil || r.Best == nil {
		return nil
	}
	return r.Best.Candidate.Data
}

// Method returns the attempt record for name, or nil
func (r *Result) Method(name string) *MethodAttempt {
	for _, m := range r.Methods {
		if m.Method == name {
			return m
		}
	}
	return nil
}

package models

// Stage tells whether a transform runs before or after decompression
type Stage string

const (
	StagePre  Stage = "pre"  // transform payload, then decompress
	StagePost Stage = "post" // decompress payload, then transform
)

// Candidate is one guess at the recovered plaintext, tagged with the
// technique that produced it
type Candidate struct {
	Data    []byte            `json:"-" yaml:"-"`
	Method  string            `json:"method" yaml:"method"`
	Variant string            `json:"variant" yaml:"variant"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Stage   Stage             `json:"stage" yaml:"stage"`
	Framing string            `json:"framing" yaml:"framing"`
	Offset  int               `json:"offset" yaml:"offset"`
}

// ScoreReport is the plausibility score of one candidate
type ScoreReport struct {
	Score         int      `json:"score" yaml:"score"`
	StrongMarkers int      `json:"strong_markers" yaml:"strong_markers"`
	WeakMarkers   int      `json:"weak_markers" yaml:"weak_markers"`
	Variables     int      `json:"variables" yaml:"variables"`
	BinaryRatio   float64  `json:"binary_ratio" yaml:"binary_ratio"`
	Entropy       float64  `json:"entropy" yaml:"entropy"`
	Markers       []string `json:"markers,omitempty" yaml:"markers,omitempty"` // Names of strong markers found
}

// Scored pairs a candidate with its score report.
// Seq orders candidates by catalog position for tie breaking.
type Scored struct {
	Candidate *Candidate   `json:"candidate" yaml:"candidate"`
	Report    *ScoreReport `json:"score" yaml:"score"`
	Seq       Seq          `json:"-" yaml:"-"`
}

// Seq is the position of a candidate in the enumeration order
type Seq struct {
	Method  int
	Variant int
	Attempt int
}

// Less reports whether s comes before o in enumeration order
func (s Seq) Less(o Seq) bool {
	if s.Method != o.Method {
		return s.Method < o.Method
	}
	if s.Variant != o.Variant {
		return s.Variant < o.Variant
	}
	return s.Attempt < o.Attempt
}

// Better reports whether s should replace cur as the best result.
// A strictly greater score wins; equal scores keep the earlier candidate.
func (s *Scored) Better(cur *Scored) bool {
	if s == nil {
		return false
	}
	if cur == nil {
		return true
	}
	if s.Report.Score != cur.Report.Score {
		return s.Report.Score > cur.Report.Score
	}
	return s.Seq.Less(cur.Seq)
}

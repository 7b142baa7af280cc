// Package heuristic estimates whether a byte buffer is genuine PHP
// source and describes what recovered source contains.
package heuristic

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/iSundram/ion/pkg/models"
)

// Scoring constants
const (
	WeakDivisor     = 5    // weak marker count per point
	WeakCap         = 3    // maximum weak contribution
	VariableCap     = 5    // maximum variable contribution
	BinaryRatioMax  = 0.15 // non-printable ratio above which the penalty applies
	BinaryPenalty   = 20
	MinCandidateLen = 16      // shorter buffers score zero
	ScanLimit       = 1 << 20 // bytes inspected per candidate
)

// marker is one strong source-syntax indicator
type marker struct {
	name   string
	re     *regexp.Regexp
	weight int
}

var strongMarkers = []marker{
	{"open_tag", regexp.MustCompile(`(?i)<\?php`), 5},
	{"function", regexp.MustCompile(`(?i)\bfunction\s+&?[a-z_][a-z0-9_]*\s*\(`), 5},
	{"class", regexp.MustCompile(`(?i)\bclass\s+[a-z_][a-z0-9_]*`), 5},
	{"namespace", regexp.MustCompile(`(?i)\bnamespace\s+[a-z_\\]`), 4},
	{"output", regexp.MustCompile(`(?i)\b(?:echo|print|return)\b`), 3},
	{"control_flow", regexp.MustCompile(`(?i)\b(?:if|elseif|for|foreach|while|switch)\s*\(`), 3},
	{"superglobal", regexp.MustCompile(`\$(?:_(?:GET|POST|REQUEST|COOKIE|SERVER|SESSION|FILES|ENV)|GLOBALS)\b`), 3},
	{"use", regexp.MustCompile(`(?im)^\s*use\s+[a-z_\\][a-z0-9_\\]*\s*(?:as\s+[a-z_][a-z0-9_]*\s*)?;`), 3},
}

var (
	variableRe = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*`)
	arrowRe    = regexp.MustCompile(`->|=>`)
)

// Scorer rates candidates for plausibility as PHP source.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	threshold int
}

// NewScorer creates a scorer with the given pass threshold
func NewScorer(threshold int) *Scorer {
	return &Scorer{threshold: threshold}
}

// Passes reports whether a score meets the threshold
func (s *Scorer) Passes(r *models.ScoreReport) bool {
	return r != nil && r.Score >= s.threshold
}

// Score rates data. It never fails; empty input scores zero.
func (s *Scorer) Score(data []byte) *models.ScoreReport {
	report := &models.ScoreReport{}
	if len(data) < MinCandidateLen {
		return report
	}
	if len(data) > ScanLimit {
		data = data[:ScanLimit]
	}

	report.Entropy = Entropy(data)
	report.BinaryRatio = BinaryRatio(data)

	strong := 0
	for _, m := range strongMarkers {
		if m.re.Match(data) {
			strong += m.weight
			report.Markers = append(report.Markers, m.name)
		}
	}
	report.StrongMarkers = strong

	weak := 0
	for _, b := range data {
		switch b {
		case ';', '{', '}', '(', ')':
			weak++
		}
	}
	weak += len(arrowRe.FindAllIndex(data, -1))
	report.WeakMarkers = weak

	report.Variables = len(variableRe.FindAllIndex(data, -1))

	// Punctuation and variables only support strong evidence
	score := strong
	if strong > 0 {
		score += min(weak/WeakDivisor, WeakCap) + min(report.Variables, VariableCap)
	}
	if report.BinaryRatio > BinaryRatioMax {
		score -= BinaryPenalty
	}
	report.Score = score

	return report
}

// BinaryRatio returns the share of non-printable runes in data.
// Invalid UTF-8 decodes to U+FFFD and counts as non-printable.
func BinaryRatio(data []byte) float64 {
	runes, bad := 0, 0
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		runes++
		if !printable(r) {
			bad++
		}
	}
	if runes == 0 {
		return 0
	}
	return float64(bad) / float64(runes)
}

func printable(r rune) bool {
	switch r {
	case '\t', '\n', '\r', '\f':
		return true
	case utf8.RuneError:
		return false
	}
	return !unicode.IsControl(r)
}

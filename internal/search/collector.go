package search

import (
	"github.com/iSundram/ion/internal/method"
	"github.com/iSundram/ion/pkg/models"
)

// collector folds unit results into per-method records and the best
// candidate. Only the collector goroutine touches it.
type collector struct {
	catalog  []*method.Method
	methods  []*models.MethodAttempt
	passed   []*models.Scored // per method, lowest passing variant
	closest  []*models.Scored // per method, best non-passing candidate
	complete []int            // per method, units run to completion
	scored   []bool
}

func newCollector(catalog []*method.Method) *collector {
	c := &collector{
		catalog:  catalog,
		methods:  make([]*models.MethodAttempt, len(catalog)),
		passed:   make([]*models.Scored, len(catalog)),
		closest:  make([]*models.Scored, len(catalog)),
		complete: make([]int, len(catalog)),
		scored:   make([]bool, len(catalog)),
	}
	for i, m := range catalog {
		c.methods[i] = &models.MethodAttempt{Method: m.Name, Outcome: models.OutcomeNoMatch}
	}
	return c
}

func (c *collector) add(res *unitResult) {
	mi := res.methodIdx
	ma := c.methods[mi]
	ma.Attempts += res.attempts
	ma.Decoded += res.decoded

	if !res.interrupted || res.passed != nil {
		c.complete[mi]++
	}

	for _, s := range []*models.Scored{res.passed, res.closest} {
		if s == nil {
			continue
		}
		if !c.scored[mi] || s.Report.Score > ma.BestScore {
			ma.BestScore = s.Report.Score
		}
		c.scored[mi] = true
	}

	if p := res.passed; p != nil {
		if cur := c.passed[mi]; cur == nil || p.Seq.Less(cur.Seq) {
			c.passed[mi] = p
		}
	}
	if res.closest.Better(c.closest[mi]) {
		c.closest[mi] = res.closest
	}
}

// finish decides each method's outcome and the overall best.
// Passing candidates compete by score; only when none passed does the
// closest guess become Best, and only with a positive score.
func (c *collector) finish(result *models.Result, truncated bool) {
	var best, closest *models.Scored

	for mi, ma := range c.methods {
		variants := len(c.catalog[mi].Variants)
		switch {
		case c.passed[mi] != nil:
			ma.Outcome = models.OutcomePassed
			ma.Variant = c.passed[mi].Candidate.Variant
			if c.passed[mi].Better(best) {
				best = c.passed[mi]
			}
		case variants == 0 || (truncated && c.complete[mi] < variants):
			ma.Outcome = models.OutcomeSkipped
		case ma.Decoded > 0:
			ma.Outcome = models.OutcomeBelowThreshold
		default:
			ma.Outcome = models.OutcomeNoMatch
		}

		if cl := c.closest[mi]; c.passed[mi] == nil && cl != nil {
			if ma.Variant == "" {
				ma.Variant = cl.Candidate.Variant
			}
			if cl.Better(closest) {
				closest = cl
			}
		}
	}

	result.Methods = c.methods
	if best != nil {
		result.Best = best
		result.Accepted = true
		return
	}
	if closest != nil && closest.Report.Score > 0 {
		result.Best = closest
	}
}

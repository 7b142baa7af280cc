// Package search drives candidate generation against the scorer and
// keeps the best candidate found within the configured bounds.
package search

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iSundram/ion/internal/config"
	"github.com/iSundram/ion/internal/decompress"
	"github.com/iSundram/ion/internal/filesystem"
	"github.com/iSundram/ion/internal/heuristic"
	"github.com/iSundram/ion/internal/method"
	"github.com/iSundram/ion/pkg/models"
	"go.uber.org/zap"
)

// ProgressCallback is called to report search progress
type ProgressCallback func(phase string, current, total int, message string)

// DefaultMaxInflations bounds the post-stage inflations kept per run
const DefaultMaxInflations = 32

// Options bound one search run
type Options struct {
	Mode             config.SearchMode
	Threshold        int // 0 = format variant threshold, else the default
	Workers          int
	OffsetCap        int
	MaxAttempts      int64
	Timeout          time.Duration
	MaxOutput        int64
	ExtendedFramings bool
	MaxInflations    int
}

// OptionsFromConfig builds search options from configuration
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Mode:             cfg.GetSearchMode(),
		Threshold:        cfg.Threshold,
		Workers:          cfg.Workers,
		OffsetCap:        cfg.OffsetCap,
		MaxAttempts:      cfg.MaxAttempts,
		Timeout:          cfg.Timeout,
		MaxOutput:        filesystem.ParseSize(cfg.MaxOutput),
		ExtendedFramings: cfg.ExtendedFramings,
		MaxInflations:    DefaultMaxInflations,
	}
}

// Engine is the search orchestrator
type Engine struct {
	opts             Options
	logger           *zap.Logger
	decompressor     *decompress.Decompressor
	progressCallback ProgressCallback
}

// NewEngine creates a new search engine
func NewEngine(opts Options, logger *zap.Logger) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxInflations <= 0 {
		opts.MaxInflations = DefaultMaxInflations
	}
	return &Engine{
		opts:         opts,
		logger:       logger,
		decompressor: decompress.New(opts.ExtendedFramings, opts.MaxOutput),
	}
}

// SetProgressCallback sets the progress callback function
func (e *Engine) SetProgressCallback(cb ProgressCallback) {
	e.progressCallback = cb
}

func (e *Engine) reportProgress(phase string, current, total int, message string) {
	if e.progressCallback != nil {
		e.progressCallback(phase, current, total, message)
	}
}

// unit is one (method, variant) job
type unit struct {
	methodIdx  int
	variantIdx int
	method     *method.Method
}

// unitResult is what a worker reports for one unit
type unitResult struct {
	unit
	passed      *models.Scored // first passing candidate in enumeration order
	closest     *models.Scored // best non-passing candidate
	attempts    int
	decoded     int
	skipped     bool // a lower variant of the same method already passed
	interrupted bool // the search bound was reached while running
}

// run is the shared state of one search. Workers only touch it
// through the attempt budget and the per-method watermarks.
type run struct {
	ctx        context.Context
	file       *models.EncodedFile
	scorer     *heuristic.Scorer
	offsets    map[decompress.Plan][]int
	inflations []decompress.Attempt
	attempts   atomic.Int64
	budget     int64
	truncated  atomic.Bool
	watermarks []atomic.Int64 // lowest passing variant index per method
}

// next reserves one attempt, or reports that the bound is reached
func (r *run) next() bool {
	if r.ctx.Err() != nil {
		r.truncated.Store(true)
		return false
	}
	if n := r.attempts.Add(1); r.budget > 0 && n > r.budget {
		r.truncated.Store(true)
		return false
	}
	return true
}

// superseded reports whether a lower variant of the method has passed
func (r *run) superseded(methodIdx, variantIdx int) bool {
	return int64(variantIdx) > r.watermarks[methodIdx].Load()
}

func (r *run) lowerWatermark(methodIdx, variantIdx int) {
	w := &r.watermarks[methodIdx]
	for {
		cur := w.Load()
		if int64(variantIdx) >= cur || w.CompareAndSwap(cur, int64(variantIdx)) {
			return
		}
	}
}

// Search explores the candidate space for one file. It never fails:
// on timeout or exhausted budget it returns the best found so far.
// variantThreshold applies only when no global threshold is set.
func (e *Engine) Search(ctx context.Context, file *models.EncodedFile, variantThreshold int) *models.Result {
	threshold := config.ResolveThreshold(e.opts.Threshold, variantThreshold)
	result := &models.Result{
		Threshold: threshold,
		Workers:   e.opts.Workers,
		StartTime: time.Now(),
	}

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	catalog := method.Catalog(file.Header, e.opts.Mode)
	r := &run{
		ctx:        ctx,
		file:       file,
		scorer:     heuristic.NewScorer(threshold),
		offsets:    make(map[decompress.Plan][]int),
		budget:     e.opts.MaxAttempts,
		watermarks: make([]atomic.Int64, len(catalog)),
	}
	for i := range r.watermarks {
		r.watermarks[i].Store(math.MaxInt64)
	}
	for _, p := range []decompress.Plan{decompress.PlanZero, decompress.PlanCurated, decompress.PlanScan} {
		r.offsets[p] = decompress.Offsets(p, e.opts.OffsetCap)
	}

	e.logger.Debug("Starting search",
		zap.String("path", file.Path),
		zap.Int("payload_size", file.Payload.Size()),
		zap.Int("methods", len(catalog)),
		zap.Int("threshold", threshold))

	// Post-stage transforms share one set of inflations
	postPlan := decompress.PlanCurated
	if e.opts.Mode == config.ModeExhaustive {
		postPlan = decompress.PlanScan
	}
	e.reportProgress("inflate", 0, 0, "Inflating raw payload...")
	r.inflations, _ = e.decompressor.All(file.Payload.Data, r.offsets[postPlan], e.opts.MaxInflations, func() bool { return !r.next() })
	e.logger.Debug("Raw payload inflations", zap.Int("count", len(r.inflations)))

	totalUnits := 0
	for _, m := range catalog {
		totalUnits += len(m.Variants)
	}

	units := make(chan unit, e.opts.Workers*2)
	results := make(chan *unitResult, e.opts.Workers*2)

	var wg sync.WaitGroup
	for i := 0; i < e.opts.Workers; i++ {
		wg.Add(1)
		go e.worker(r, &wg, units, results)
	}

	c := newCollector(catalog)
	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		done := 0
		lastReport := time.Now()
		for res := range results {
			c.add(res)
			done++
			if time.Since(lastReport) > 100*time.Millisecond || done == totalUnits {
				e.reportProgress("search", done, totalUnits, fmt.Sprintf("%s %s", res.method.Name, res.method.Variants[res.variantIdx].Label))
				lastReport = time.Now()
			}
		}
	}()

dispatch:
	for mi, m := range catalog {
		for vi := range m.Variants {
			select {
			case <-ctx.Done():
				r.truncated.Store(true)
				break dispatch
			case units <- unit{methodIdx: mi, variantIdx: vi, method: m}:
			}
		}
	}

	close(units)
	wg.Wait()
	close(results)
	collectWg.Wait()

	c.finish(result, r.truncated.Load())
	result.Attempts = r.attempts.Load()
	if r.budget > 0 && result.Attempts > r.budget {
		result.Attempts = r.budget
	}
	result.Truncated = r.truncated.Load()
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	fields := []zap.Field{
		zap.String("path", file.Path),
		zap.Bool("accepted", result.Accepted),
		zap.Int64("attempts", result.Attempts),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("duration", result.Duration),
	}
	if result.Best != nil {
		fields = append(fields,
			zap.String("method", result.Best.Candidate.Method),
			zap.String("variant", result.Best.Candidate.Variant),
			zap.Int("score", result.Best.Report.Score))
	}
	e.logger.Info("Search completed", fields...)

	return result
}

func (e *Engine) worker(r *run, wg *sync.WaitGroup, units <-chan unit, results chan<- *unitResult) {
	defer wg.Done()

	for u := range units {
		select {
		case <-r.ctx.Done():
			r.truncated.Store(true)
			results <- &unitResult{unit: u, interrupted: true}
		default:
			results <- e.runUnit(r, u)
		}
	}
}

// runUnit tries one variant of one method at each of its stages and
// stops at the first passing candidate
func (e *Engine) runUnit(r *run, u unit) *unitResult {
	res := &unitResult{unit: u}
	if r.superseded(u.methodIdx, u.variantIdx) {
		res.skipped = true
		return res
	}

	m := u.method
	v := m.Variants[u.variantIdx]
	seq := 0

	// consider scores one candidate and reports whether it passed
	consider := func(c *models.Candidate) bool {
		scored := &models.Scored{
			Candidate: c,
			Report:    r.scorer.Score(c.Data),
			Seq:       models.Seq{Method: u.methodIdx, Variant: u.variantIdx, Attempt: seq},
		}
		seq++
		res.decoded++
		if r.scorer.Passes(scored.Report) {
			res.passed = scored
			r.lowerWatermark(u.methodIdx, u.variantIdx)
			return true
		}
		if scored.Better(res.closest) {
			res.closest = scored
		}
		return false
	}

	stop := func() bool {
		if r.superseded(u.methodIdx, u.variantIdx) {
			return true
		}
		return !r.next()
	}

	for _, stage := range m.Stages {
		switch stage {
		case models.StagePre:
			input := r.file.Payload.Data
			if m.Input == method.InputText {
				input = r.file.Payload.Text
			}
			if len(input) == 0 {
				continue
			}
			data := v.Apply(input)
			if len(data) == 0 {
				continue
			}
			res.attempts += e.decompressor.Scan(data, r.offsets[m.Plan(e.opts.Mode)], stop, func(a decompress.Attempt) bool {
				return !consider(&models.Candidate{
					Data:    a.Data,
					Method:  m.Name,
					Variant: v.Label,
					Params:  v.Params,
					Stage:   models.StagePre,
					Framing: string(a.Framing),
					Offset:  a.Offset,
				})
			})

		case models.StagePost:
			for _, inf := range r.inflations {
				if stop() {
					break
				}
				res.attempts++
				if consider(&models.Candidate{
					Data:    v.Apply(inf.Data),
					Method:  m.Name,
					Variant: v.Label,
					Params:  v.Params,
					Stage:   models.StagePost,
					Framing: string(inf.Framing),
					Offset:  inf.Offset,
				}) {
					break
				}
			}
		}

		if res.passed != nil {
			break
		}
	}

	res.interrupted = r.truncated.Load()
	if res.decoded == 0 {
		e.logger.Debug("No match",
			zap.String("method", m.Name),
			zap.String("variant", v.Label),
			zap.Int("attempts", res.attempts))
	}
	return res
}

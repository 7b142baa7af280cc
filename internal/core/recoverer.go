// Package core wires loading, searching and post-processing into one
// recovery pipeline.
package core

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/iSundram/ion/internal/ai"
	"github.com/iSundram/ion/internal/config"
	"github.com/iSundram/ion/internal/deobfuscator"
	"github.com/iSundram/ion/internal/filesystem"
	"github.com/iSundram/ion/internal/formats"
	"github.com/iSundram/ion/internal/heuristic"
	"github.com/iSundram/ion/internal/oracle"
	"github.com/iSundram/ion/internal/report"
	"github.com/iSundram/ion/internal/search"
	"github.com/iSundram/ion/pkg/models"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// Version is reported in every batch
const Version = "1.0.0"

// ProgressCallback is called to report recovery progress
type ProgressCallback func(phase string, current, total int, message string)

// AIConfirmCallback is called before a paid review is sent.
// Returns true to proceed, false to skip the review.
type AIConfirmCallback func(estimate *ai.CostEstimate) bool

// Recoverer runs the full pipeline for single files and directories
type Recoverer struct {
	config            *config.Config
	logger            *zap.Logger
	loader            *filesystem.Loader
	engine            *search.Engine
	unwrapper         *deobfuscator.Manager
	analyzer          *heuristic.Analyzer
	oracle            oracle.Oracle
	reviewer          *ai.Reviewer
	progressCallback  ProgressCallback
	aiConfirmCallback AIConfirmCallback
}

// NewRecoverer creates a recoverer. Format catalog errors are fatal;
// an unusable AI configuration only disables the review.
func NewRecoverer(cfg *config.Config, logger *zap.Logger) (*Recoverer, error) {
	fs, err := formats.NewLoader(cfg.FormatsPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load formats: %w", err)
	}
	logger.Debug("Loaded formats", zap.Int("count", len(fs)))

	parser := formats.NewParser(fs)
	r := &Recoverer{
		config:    cfg,
		logger:    logger,
		loader:    filesystem.NewLoader(parser, cfg.RequireHeader, filesystem.ParseSize(cfg.MaxSize), logger),
		engine:    search.NewEngine(search.OptionsFromConfig(cfg), logger),
		unwrapper: deobfuscator.NewDefault(deobfuscator.DefaultMaxDepth),
		analyzer:  heuristic.NewAnalyzer(),
	}
	logger.Debug("Layer unwrappers", zap.Strings("names", r.unwrapper.Names()))

	if cfg.Oracle.Enabled {
		r.oracle = oracle.NewPHPOracle(cfg.Oracle.PHPBinary, cfg.Oracle.LoaderPath, logger)
	}

	if cfg.AI.Enabled {
		reviewer, err := ai.NewReviewer(&cfg.AI, logger)
		if err != nil {
			logger.Warn("AI review disabled", zap.Error(err))
		} else {
			r.reviewer = reviewer
		}
	}

	return r, nil
}

// SetOracle replaces the interpreter oracle
func (r *Recoverer) SetOracle(o oracle.Oracle) {
	r.oracle = o
}

// SetProgressCallback sets the progress callback function
func (r *Recoverer) SetProgressCallback(cb ProgressCallback) {
	r.progressCallback = cb
	r.engine.SetProgressCallback(search.ProgressCallback(cb))
}

// SetAIConfirmCallback sets the AI confirmation callback function
func (r *Recoverer) SetAIConfirmCallback(cb AIConfirmCallback) {
	r.aiConfirmCallback = cb
}

// reportProgress calls the progress callback if set
func (r *Recoverer) reportProgress(phase string, current, total int, message string) {
	if r.progressCallback != nil {
		r.progressCallback(phase, current, total, message)
	}
}

// Recover runs the pipeline on one file. The returned Recovery is never
// nil; err is set only for structural or I/O failures, in which case no
// output file is written.
func (r *Recoverer) Recover(ctx context.Context, path string) (*report.Recovery, error) {
	rec := &report.Recovery{Path: path}

	file, format, err := r.loader.Load(path)
	if err != nil {
		if models.IsStructural(err) {
			r.logger.Error("Structural error", zap.String("path", path), zap.Error(err))
		} else {
			r.logger.Error("Failed to load file", zap.String("path", path), zap.Error(err))
		}
		rec.Error = err.Error()
		return rec, err
	}
	rec.Format = file.Format
	rec.Header = file.Header
	rec.Payload = file.Payload
	rec.PayloadSize = file.Payload.Size()

	// A format variant may carry its own calibration
	result := r.engine.Search(ctx, file, format.Threshold)
	rec.Result = result

	text := result.Text()
	if len(text) > 0 {
		unwrapped, layers := r.unwrapper.Deobfuscate(string(text))
		if len(layers) > 0 {
			r.logger.Debug("Unwrapped layers", zap.String("path", path), zap.Strings("layers", layers))
			text = []byte(unwrapped)
			rec.Layers = layers
		}
		sum := blake3.Sum256(text)
		rec.TextHash = hex.EncodeToString(sum[:])
		rec.Analysis = r.analyzer.Analyze(text)
	}

	if result.Accepted && r.config.WriteOutput {
		out, err := filesystem.WriteRecovered(path, r.config.OutputDir, text)
		if err != nil {
			rec.Error = err.Error()
			return rec, err
		}
		rec.OutputPath = out
	}

	r.runOracle(ctx, rec)
	r.runReview(ctx, rec, text)

	return rec, nil
}

// runOracle asks the interpreter what the file declares. Failures never
// affect the outcome.
func (r *Recoverer) runOracle(ctx context.Context, rec *report.Recovery) {
	if r.oracle == nil {
		return
	}
	r.reportProgress("oracle", 0, 1, fmt.Sprintf("Running %s oracle...", r.oracle.Name()))

	meta, err := r.oracle.RunFallback(ctx, rec.Path, r.config.Oracle.Timeout)
	if err != nil {
		if errors.Is(err, oracle.ErrUnavailable) {
			r.logger.Warn("Oracle unavailable", zap.String("path", rec.Path), zap.Error(err))
		} else {
			r.logger.Warn("Oracle failed", zap.String("path", rec.Path), zap.Error(err))
		}
		rec.OracleError = err.Error()
		r.reportProgress("oracle", 1, 1, "Oracle unavailable")
		return
	}
	rec.Oracle = meta
	r.reportProgress("oracle", 1, 1, fmt.Sprintf("Oracle found %d functions, %d classes", len(meta.Functions), len(meta.Classes)))
}

// runReview sends the best text for AI review when enabled
func (r *Recoverer) runReview(ctx context.Context, rec *report.Recovery, text []byte) {
	if r.reviewer == nil || rec.Result == nil || rec.Result.Best == nil {
		return
	}

	estimate := ai.EstimateCost(r.config.AI.Model, len(text))
	if r.aiConfirmCallback != nil && !r.aiConfirmCallback(estimate) {
		r.reportProgress("ai_skipped", 0, 0, "AI review skipped by user")
		r.logger.Info("AI review skipped by user")
		return
	}

	r.reportProgress("ai_review", 0, 1, "Reviewing recovered text...")
	review, err := r.reviewer.Review(ctx, rec.Path, rec.Result, text, rec.Layers)
	if err != nil {
		rec.ReviewError = err.Error()
		r.reportProgress("ai_error", 0, 0, fmt.Sprintf("AI failed: %s", err.Error()))
		return
	}
	rec.Review = review
	r.reportProgress("ai_complete", review.TokensUsed, 1, "AI review complete")
}

// RecoverDir recovers every candidate file under root. Files whose
// preamble matches no format are skipped; other failures are recorded
// in the batch.
func (r *Recoverer) RecoverDir(ctx context.Context, root string) (*report.Batch, error) {
	batch := r.NewBatch(root)

	var paths []string
	walker := filesystem.NewWalker(r.config, r.logger)
	if err := walker.Walk(root, func(fi *models.FileInfo) error {
		paths = append(paths, fi.Path)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	r.reportProgress("batch", 0, len(paths), fmt.Sprintf("Found %d candidate files", len(paths)))

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Batch cancelled", zap.Int("processed", i))
			break
		}
		rec, err := r.Recover(ctx, path)
		if errors.Is(err, models.ErrNoHeader) {
			r.logger.Debug("Skipping file without header", zap.String("path", path))
			r.reportProgress("batch", i+1, len(paths), path)
			continue
		}
		batch.Add(rec)
		r.reportProgress("batch", i+1, len(paths), path)
	}

	r.FinishBatch(batch)
	return batch, nil
}

// NewBatch starts a batch report
func (r *Recoverer) NewBatch(root string) *report.Batch {
	return &report.Batch{
		Version:   Version,
		Root:      root,
		Mode:      r.config.Mode,
		StartTime: time.Now(),
	}
}

// FinishBatch stamps the end time and logs totals
func (r *Recoverer) FinishBatch(batch *report.Batch) {
	batch.EndTime = time.Now()
	batch.Duration = batch.EndTime.Sub(batch.StartTime)

	r.logger.Info("Recovery completed",
		zap.String("root", batch.Root),
		zap.Duration("duration", batch.Duration),
		zap.Int("files", len(batch.Recoveries)),
		zap.Int("accepted", batch.Accepted),
		zap.Int("failed", batch.Failed),
		zap.Int("errors", batch.Errors))
}

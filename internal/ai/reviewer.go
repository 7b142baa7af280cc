package ai

import (
	"context"
	"errors"

	"github.com/iSundram/ion/internal/config"
	"github.com/iSundram/ion/pkg/models"
	"go.uber.org/zap"
)

// ErrNothingToReview is returned when a search produced no candidate
var ErrNothingToReview = errors.New("no recovered text to review")

// DefaultMaxSource is the number of bytes sent when not configured
const DefaultMaxSource = 24000

// reviewClient is the part of Client the reviewer needs
type reviewClient interface {
	Review(ctx context.Context, req *ReviewRequest, maxSource int) (*Review, error)
}

// Reviewer asks a model whether the best candidate is real source
type Reviewer struct {
	client    reviewClient
	maxSource int
	logger    *zap.Logger
}

// NewReviewer creates a reviewer from configuration
func NewReviewer(cfg *config.AIConfig, logger *zap.Logger) (*Reviewer, error) {
	client, err := NewClient(cfg.Model, cfg.APIToken, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return newReviewer(client, cfg.MaxSource, logger), nil
}

func newReviewer(client reviewClient, maxSource int, logger *zap.Logger) *Reviewer {
	if maxSource <= 0 {
		maxSource = DefaultMaxSource
	}
	return &Reviewer{
		client:    client,
		maxSource: maxSource,
		logger:    logger,
	}
}

// Review assesses text recovered for path. text is the final,
// unwrapped text; result supplies how it was found.
func (r *Reviewer) Review(ctx context.Context, path string, result *models.Result, text []byte, layers []string) (*Review, error) {
	if result == nil || result.Best == nil || len(text) == 0 {
		return nil, ErrNothingToReview
	}

	req := BuildReviewRequest(path, result, text, layers)
	r.logger.Debug("Requesting review",
		zap.String("path", path),
		zap.String("method", req.Method),
		zap.Int("source_bytes", len(req.Source)))

	review, err := r.client.Review(ctx, req, r.maxSource)
	if err != nil {
		r.logger.Warn("Review failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	r.logger.Info("Review complete",
		zap.String("path", path),
		zap.String("verdict", string(review.Verdict)),
		zap.Int("confidence", review.Confidence),
		zap.Int("tokens", review.TokensUsed))
	return review, nil
}

// BuildReviewRequest builds the request for one recovery
func BuildReviewRequest(path string, result *models.Result, text []byte, layers []string) *ReviewRequest {
	best := result.Best
	return &ReviewRequest{
		FilePath:  path,
		Method:    best.Candidate.Method,
		Variant:   best.Candidate.Variant,
		Framing:   best.Candidate.Framing,
		Score:     best.Report.Score,
		Threshold: result.Threshold,
		Accepted:  result.Accepted,
		Markers:   best.Report.Markers,
		Layers:    layers,
		Source:    string(text),
	}
}

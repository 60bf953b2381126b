// Package estimator implements the ordered chain of yield estimation strategies.
//
// A Chain tries each Estimator in turn and returns the first success. The
// conventional order is an external model process, then the statistical
// heuristic, then the crop-average fallback, which never fails.
package estimator

import (
	"context"
	"log/slog"
	"time"

	"github.com/fasalneeti/yield-service/internal/domain"
	"github.com/fasalneeti/yield-service/internal/observability"
)

// Tier names reported in EstimationResult.Tier.
const (
	TierPrimary     = "primary"
	TierStatistical = "statistical"
	TierFallback    = "fallback"
)

// Estimator produces a yield estimate in kg/ha for a request and its factors.
type Estimator interface {
	Name() string
	Estimate(ctx context.Context, req domain.PredictionRequest, factors domain.EnvironmentalFactors) (domain.EstimationResult, error)
}

// Chain runs estimators in order until one succeeds.
type Chain struct {
	tiers      []Estimator
	lastResort *Fallback
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewChain creates a Chain over tiers. lastResort answers when every tier
// fails; pass nil for a fallback without variation.
func NewChain(tiers []Estimator, lastResort *Fallback, logger *slog.Logger, metrics *observability.Metrics) *Chain {
	if lastResort == nil {
		lastResort = NewFallback(nil)
	}
	return &Chain{
		tiers:      tiers,
		lastResort: lastResort,
		logger:     logger,
		metrics:    metrics,
	}
}

// Tiers returns the configured tier names in order.
func (c *Chain) Tiers() []string {
	names := make([]string, 0, len(c.tiers))
	for _, e := range c.tiers {
		names = append(names, e.Name())
	}
	return names
}

// Estimate returns the first successful tier's result. It never fails: when
// every tier errors the last-resort fallback answers.
func (c *Chain) Estimate(ctx context.Context, req domain.PredictionRequest, factors domain.EnvironmentalFactors) domain.EstimationResult {
	for _, e := range c.tiers {
		name := e.Name()
		start := time.Now()
		res, err := e.Estimate(ctx, req, factors)
		c.metrics.EstimatorDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if err != nil {
			c.metrics.EstimatorAttempts.WithLabelValues(name, "error").Inc()
			c.logger.Warn("estimator tier failed",
				"tier", name,
				"crop", req.Crop,
				"district", req.Location.District,
				"error", err,
			)
			continue
		}
		c.metrics.EstimatorAttempts.WithLabelValues(name, "success").Inc()
		if res.Tier == "" {
			res.Tier = name
		}
		res.ConfidencePct = domain.ClampConfidence(res.ConfidencePct)
		return res
	}

	c.logger.Error("all estimator tiers failed, using last-resort fallback", "tiers", len(c.tiers))
	// Fallback.Estimate has no error path.
	res, _ := c.lastResort.Estimate(ctx, req, factors)
	return res
}

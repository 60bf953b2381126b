package estimator

import (
	"context"

	"github.com/fasalneeti/yield-service/internal/domain"
)

const (
	fallbackVariation  = 0.20
	fallbackConfidence = 60.0
	fallbackMAE        = 500.0
	fallbackR2         = 0.50
	fallbackName       = "Fallback"
)

// Fallback answers with a per-crop average. It never fails.
type Fallback struct {
	rand domain.Random
}

// NewFallback returns the last tier. A nil rand disables the ±20% variation.
func NewFallback(rand domain.Random) *Fallback {
	return &Fallback{rand: rand}
}

func (*Fallback) Name() string { return TierFallback }

func (f *Fallback) Estimate(_ context.Context, req domain.PredictionRequest, _ domain.EnvironmentalFactors) (domain.EstimationResult, error) {
	base, ok := cropAverages[cropKey(req.Crop)]
	if !ok {
		base = defaultCropAverage
	}
	return domain.EstimationResult{
		PredictedYield: domain.Jitter(f.rand, base, fallbackVariation),
		ConfidencePct:  fallbackConfidence,
		ModelUsed:      fallbackName,
		Tier:           TierFallback,
		Accuracy:       &domain.Accuracy{MAE: fallbackMAE, R2: fallbackR2, Nominal: true},
	}, nil
}
